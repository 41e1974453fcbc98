package moderation

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Verdict is the moderation collaborator's answer for one piece of text.
type Verdict struct {
	Allowed    bool
	Reason     string
	Suggestion string
	Severity   string
}

const prompt = `You are a content moderator for a neighborhood favors marketplace chat.
Decide whether the following chat message is acceptable. Unacceptable content:
harassment, threats, scams, requests to move payment off-platform, sharing of
other people's personal data.
Respond with exactly one line and nothing else:
ALLOW
or
BLOCK|<short reason>|<suggestion for rewording>|<severity: low|medium|high>`

// GeminiClassifier asks Gemini for a verdict. Callers treat classifier
// failures as "allowed": moderation is a best-effort veto, not a gate the
// whole chat depends on.
type GeminiClassifier struct {
	model  string
	logger *zap.Logger
}

func NewGeminiClassifier(model string, logger *zap.Logger) *GeminiClassifier {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClassifier{model: model, logger: logger}
}

func (c *GeminiClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	start := time.Now()
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return Verdict{}, err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromText("Message: " + text),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	temp := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	res, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return Verdict{}, err
	}

	verdict, err := ParseVerdict(res.Text())
	if err != nil {
		c.logger.Warn("unparseable moderation output",
			zap.String("model", c.model), zap.Error(err))
		return Verdict{}, err
	}
	c.logger.Debug("moderation verdict",
		zap.Bool("allowed", verdict.Allowed),
		zap.Duration("took", time.Since(start)))
	return verdict, nil
}
