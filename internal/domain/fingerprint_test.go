package domain

import (
	"errors"
	"testing"
)

func TestNewFingerprintStableAcrossCasingAndWhitespace(t *testing.T) {
	a := NewFingerprint("The  Dragon\nsleeps.", "en_us_007")
	b := NewFingerprint("  the dragon sleeps. ", "en_us_007")
	if a != b {
		t.Fatalf("fingerprints differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestNewFingerprintDependsOnParams(t *testing.T) {
	tests := []struct {
		name string
		a, b Fingerprint
	}{
		{"voice", NewFingerprint("hello", "voice-a"), NewFingerprint("hello", "voice-b")},
		{"param order", NewFingerprint("hello", "a", "b"), NewFingerprint("hello", "b", "a")},
		{"param boundary", NewFingerprint("hello", "ab"), NewFingerprint("hello", "a", "b")},
		{"text", NewFingerprint("hello", "x"), NewFingerprint("world", "x")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.a == tc.b {
				t.Fatalf("expected different fingerprints, both %s", tc.a)
			}
		})
	}
}

func TestNormalizeTextFoldsWidthAndCase(t *testing.T) {
	if got := NormalizeText("ＨＥＬＬＯ\tWorld"); got != "hello world" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func TestStageErrorUnwraps(t *testing.T) {
	err := NewStageError(StageSpeech, SentenceUnit(2), ErrExhausted)
	if !errors.Is(err, ErrExhausted) {
		t.Fatal("expected errors.Is to match ErrExhausted")
	}
	if err.Error() != "speech [sentence 2]: generation exhausted" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if NewStageError(StageSpeech, "", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}
