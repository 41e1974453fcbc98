package notify

import (
	"context"
	"errors"
	"time"

	"github.com/favorly/backend/internal/model"
	"github.com/favorly/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelaySender is what the router needs from the relay platform.
type RelaySender interface {
	NotifyUsers(ctx context.Context, externalIDs []string, p Payload) error
	BroadcastAll(ctx context.Context, p Payload) error
	NotifySegment(ctx context.Context, segment string, p Payload) error
}

// NativeSender is what the router needs from the native push gateway. Gone
// classifies a send error as "endpoint permanently gone".
type NativeSender interface {
	Send(ctx context.Context, sub NativeSubscription, p Payload) error
	Gone(err error) bool
}

// Outcome tallies one dispatch: how many users were reached, how many
// adapter calls failed, and how many users had no subscription at all.
type Outcome struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Router resolves each target user's stored subscription and hands the
// payload to the adapter the subscription's platform selects. Per-user
// failures are isolated; one dead endpoint never aborts the rest of a
// batch. Either adapter may be nil when its platform is unconfigured;
// dispatches for it are logged and tallied without being attempted.
type Router struct {
	subs    repository.SubscriptionRepository
	relay   RelaySender
	native  NativeSender
	timeout time.Duration
	logger  *zap.Logger
}

func NewRouter(subs repository.SubscriptionRepository, relay RelaySender, native NativeSender, timeout time.Duration, logger *zap.Logger) *Router {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Router{
		subs:    subs,
		relay:   relay,
		native:  native,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *Router) Dispatch(ctx context.Context, target Target, p Payload) Outcome {
	p = Normalize(p)

	switch target.kind {
	case targetBroadcast:
		if r.relay == nil {
			r.logger.Warn("relay adapter not configured, broadcast dropped")
			return Outcome{Skipped: 1}
		}
		return r.relayOnly(ctx, p, func(ctx context.Context) error {
			return r.relay.BroadcastAll(ctx, p)
		})
	case targetSegment:
		if r.relay == nil {
			r.logger.Warn("relay adapter not configured, segment dispatch dropped",
				zap.String("segment", target.segment))
			return Outcome{Skipped: 1}
		}
		return r.relayOnly(ctx, p, func(ctx context.Context) error {
			return r.relay.NotifySegment(ctx, target.segment, p)
		})
	}

	var out Outcome
	for _, uid := range target.users {
		switch r.dispatchOne(ctx, uid, p) {
		case dispatchSent:
			out.Sent++
		case dispatchFailed:
			out.Failed++
		case dispatchSkipped:
			out.Skipped++
		}
	}
	return out
}

func (r *Router) relayOnly(ctx context.Context, p Payload, call func(context.Context) error) Outcome {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := call(cctx); err != nil {
		r.logger.Warn("relay dispatch failed", zap.Error(err))
		return Outcome{Failed: 1}
	}
	return Outcome{Sent: 1}
}

type dispatchResult int

const (
	dispatchSent dispatchResult = iota
	dispatchFailed
	dispatchSkipped
)

func (r *Router) dispatchOne(ctx context.Context, uid string, p Payload) dispatchResult {
	sub, err := r.subs.FindByUser(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Never subscribed; the message still shows up on next sync.
			r.logger.Debug("no push subscription", zap.String("user", uid))
			return dispatchSkipped
		}
		r.logger.Warn("subscription lookup failed", zap.String("user", uid), zap.Error(err))
		return dispatchFailed
	}

	// Every gateway call is individually timeout-bounded so one unreachable
	// gateway cannot starve the rest of the batch.
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	switch sub.Platform {
	case model.PlatformRelay:
		if r.relay == nil {
			r.logger.Warn("relay adapter not configured", zap.String("user", uid))
			return dispatchFailed
		}
		decoded, err := decodeRelay(sub.Data)
		if err != nil {
			r.logger.Warn("bad relay subscription", zap.String("user", uid), zap.Error(err))
			return dispatchFailed
		}
		if err := r.relay.NotifyUsers(cctx, []string{decoded.ExternalID}, p); err != nil {
			r.logger.Warn("relay push failed", zap.String("user", uid), zap.Error(err))
			return dispatchFailed
		}
		return dispatchSent

	case model.PlatformNative:
		if r.native == nil {
			r.logger.Warn("native adapter not configured", zap.String("user", uid))
			return dispatchFailed
		}
		decoded, err := decodeNative(sub.Data)
		if err != nil {
			r.logger.Warn("bad native subscription", zap.String("user", uid), zap.Error(err))
			return dispatchFailed
		}
		if err := r.native.Send(cctx, decoded, p); err != nil {
			if r.native.Gone(err) {
				// The endpoint will never come back; stop retrying it.
				r.cleanupGone(ctx, uid, decoded.Endpoint)
			} else {
				r.logger.Warn("native push failed", zap.String("user", uid), zap.Error(err))
			}
			return dispatchFailed
		}
		return dispatchSent

	default:
		r.logger.Warn("unknown subscription platform",
			zap.String("user", uid), zap.String("platform", string(sub.Platform)))
		return dispatchFailed
	}
}

func (r *Router) cleanupGone(ctx context.Context, uid, endpoint string) {
	r.logger.Info("removing dead push subscription", zap.String("user", uid))
	if err := r.subs.Delete(ctx, uid); err != nil {
		r.logger.Warn("subscription cleanup failed", zap.String("user", uid), zap.Error(err))
	}
	if endpoint != "" {
		if err := r.subs.DeleteByEndpoint(ctx, endpoint); err != nil {
			r.logger.Warn("endpoint cleanup failed", zap.String("user", uid), zap.Error(err))
		}
	}
}

// NewMessageAlert implements the chat pipeline's Notifier contract: a
// deep-linked alert for a recipient who was reachable on neither path.
func (r *Router) NewMessageAlert(ctx context.Context, recipientID string, msg *model.ChatMessage, topicID uint64) {
	p := Payload{
		Kind:  KindChat,
		Title: "New message",
		Body:  preview(msg.Content, 120),
		RefID: topicID,
	}
	out := r.Dispatch(ctx, Users(recipientID), p)
	r.logger.Info("message alert dispatched",
		zap.String("recipient", recipientID),
		zap.String("message_id", msg.ID),
		zap.Int("sent", out.Sent),
		zap.Int("failed", out.Failed),
		zap.Int("skipped", out.Skipped))
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
