package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/favorly/backend/internal/config"
	"github.com/favorly/backend/internal/handler"
	appmw "github.com/favorly/backend/internal/middleware"
	"github.com/favorly/backend/internal/moderation"
	"github.com/favorly/backend/internal/notify"
	"github.com/favorly/backend/internal/realtime"
	"github.com/favorly/backend/internal/repository"
	"github.com/favorly/backend/internal/service"
)

type Server struct {
	e      *echo.Echo
	logger *zap.Logger
	sha    string
	build  string
}

func New(db *gorm.DB, cfg *config.Config, logger *zap.Logger, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-User-ID"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			if strings.HasSuffix(u.Hostname(), "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	chatRepo := repository.NewChatRepository(db)
	favorRepo := repository.NewFavorRepository(db)
	subsRepo := repository.NewSubscriptionRepository(db)

	registry := realtime.NewRegistry(logger)
	hub := realtime.NewHub(registry, nil, chatRepo, logger)

	var relay notify.RelaySender
	if cfg.RelayAppID != "" && cfg.RelayAPIKey != "" {
		relay = notify.NewRelayClient(notify.RelayConfig{
			AppID:   cfg.RelayAppID,
			APIKey:  cfg.RelayAPIKey,
			BaseURL: cfg.RelayAPIURL,
		}, logger)
	}
	var native notify.NativeSender
	if cfg.FCMCredentialsFile != "" {
		nc, err := notify.NewNativeClient(context.Background(), cfg.FCMCredentialsFile, logger)
		if err != nil {
			logger.Warn("native push disabled", zap.Error(err))
		} else {
			native = nc
		}
	}
	router := notify.NewRouter(subsRepo, relay, native, cfg.NotifyTimeout, logger)

	classifier := moderation.NewGeminiClassifier(cfg.ModerationModel, logger)

	chatSvc := service.NewChatService(chatRepo, favorRepo, registry, hub, router, classifier, logger)
	hub.SetChat(chatSvc)
	favorSvc := service.NewFavorService(favorRepo, chatSvc, logger)

	chatHandler := handler.NewChatHandler(chatSvc)
	favorHandler := handler.NewFavorHandler(favorSvc)
	pushHandler := handler.NewPushHandler(subsRepo)
	wsHandler := handler.NewWSHandler(hub, logger)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	e.GET("/ws", wsHandler.Serve)

	api := e.Group("/api")
	api.GET("/chat/topics/:topicId", chatHandler.GetTopicView, appmw.RequireUser)
	api.GET("/chat/rooms/:roomId/messages", chatHandler.ListRoomMessages, appmw.RequireUser)
	api.GET("/chat/conversations", chatHandler.ListConversations, appmw.RequireUser)
	api.POST("/chat/topics/:topicId/messages", chatHandler.SendMessage, appmw.RequireUser)
	api.POST("/chat/topics/:topicId/deactivate", chatHandler.Deactivate, appmw.RequireUser)
	api.POST("/chat/messages/:messageId/delivered", chatHandler.MarkDelivered, appmw.RequireUser)
	api.POST("/chat/messages/:messageId/seen", chatHandler.MarkSeen, appmw.RequireUser)

	api.POST("/favors/:id/accept", favorHandler.Accept, appmw.RequireUser)
	api.POST("/favors/:id/complete", favorHandler.Complete, appmw.RequireUser)

	api.POST("/push/subscribe", pushHandler.Subscribe, appmw.RequireUser)
	api.POST("/push/unsubscribe", pushHandler.Unsubscribe, appmw.RequireUser)
	api.GET("/push/status/:userId", pushHandler.Status, appmw.RequireUser)

	return &Server{e: e, logger: logger, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
