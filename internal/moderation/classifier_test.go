package moderation

import (
	"testing"

	"go.uber.org/zap"
)

func TestClassifierModelSelection(t *testing.T) {
	c := NewGeminiClassifier("", zap.NewNop())
	if c.model != "gemini-2.5-flash" {
		t.Errorf("empty model: got %q", c.model)
	}

	c = NewGeminiClassifier("gemini-2.0-flash-lite", zap.NewNop())
	if c.model != "gemini-2.0-flash-lite" {
		t.Errorf("explicit model: got %q", c.model)
	}
}
