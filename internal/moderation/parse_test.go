package moderation

import (
	"errors"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Verdict
		wantErr bool
	}{
		{"allow", "ALLOW", Verdict{Allowed: true}, false},
		{"allow lowercase", "allow", Verdict{Allowed: true}, false},
		{"allow with surrounding prose", "Sure, here is my verdict:\n\nALLOW\n", Verdict{Allowed: true}, false},
		{"full block", "BLOCK|shares a phone number|remove the number|high",
			Verdict{Reason: "shares a phone number", Suggestion: "remove the number", Severity: "high"}, false},
		{"block without suggestion", "BLOCK|spam",
			Verdict{Reason: "spam", Severity: "medium"}, false},
		{"block bare", "BLOCK",
			Verdict{Reason: "content not allowed", Severity: "medium"}, false},
		{"unknown severity defaults", "BLOCK|abuse||critical",
			Verdict{Reason: "abuse", Severity: "medium"}, false},
		{"no verdict line", "I cannot decide on this one.", Verdict{}, true},
		{"empty", "", Verdict{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrParseFailed) {
					t.Fatalf("expected ErrParseFailed, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("got=%+v want=%+v", got, tt.want)
			}
		})
	}
}
