package priority

import (
	"testing"

	"github.com/gigbase/stagehand/internal/errors"
)

func TestLevel_Rank(t *testing.T) {
	if LevelHigh.Rank() >= LevelNormal.Rank() {
		t.Error("high should rank more urgent than normal")
	}
	if LevelNormal.Rank() >= LevelLow.Rank() {
		t.Error("normal should rank more urgent than low")
	}

	// Unknown levels sort after everything defined
	if Level("urgent").Rank() != LevelLow.Rank() {
		t.Errorf("unknown level should rank with low, got %d", Level("urgent").Rank())
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelHigh, "high"},
		{LevelNormal, "normal"},
		{LevelLow, "low"},
	}

	for _, tc := range tests {
		if tc.level.String() != tc.expected {
			t.Errorf("Level.String() = %q, expected %q", tc.level.String(), tc.expected)
		}
	}
}

func TestLevel_Valid(t *testing.T) {
	for _, l := range []Level{LevelHigh, LevelNormal, LevelLow} {
		if !l.Valid() {
			t.Errorf("expected %v to be valid", l)
		}
	}
	if Level("urgent").Valid() {
		t.Error("expected unknown level to be invalid")
	}
	if Level("").Valid() {
		t.Error("expected empty level to be invalid")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		expected Level
	}{
		{"well above high threshold", 70, LevelHigh},
		{"exactly high threshold", 50, LevelHigh},
		{"just below high threshold", 49, LevelNormal},
		{"exactly normal threshold", 20, LevelNormal},
		{"just below normal threshold", 19, LevelLow},
		{"zero", 0, LevelLow},
		{"negative", -10, LevelLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := LevelFor(tc.score)
			if got != tc.expected {
				t.Errorf("LevelFor(%d) = %v, expected %v", tc.score, got, tc.expected)
			}
		})
	}
}

func TestLevelFor_Monotonicity(t *testing.T) {
	prev := LevelFor(0)
	for score := 1; score <= 100; score++ {
		cur := LevelFor(score)
		if cur.Rank() > prev.Rank() {
			t.Fatalf("LevelFor(%d) = %v is less urgent than LevelFor(%d) = %v", score, cur, score-1, prev)
		}
		prev = cur
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"high", LevelHigh, false},
		{"HIGH", LevelHigh, false},
		{"Normal", LevelNormal, false},
		{"low", LevelLow, false},
		{"urgent", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLevel(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseLevel(%q) expected error, got %v", tc.input, got)
				}
				var vErr *errors.ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) failed: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tc.input, got, tc.expected)
			}
		})
	}
}
