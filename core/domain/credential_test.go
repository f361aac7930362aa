package domain

import (
	"testing"
	"time"
)

func TestCredentialIssuedAt(t *testing.T) {
	if got := (Credential{}).IssuedAt(); !got.IsZero() {
		t.Fatalf("unset credential must have zero issue time, got %v", got)
	}

	issued := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	c := Credential{IssuedAtMillis: issued.UnixMilli()}
	if !c.IssuedAt().Equal(issued) {
		t.Fatalf("issued at %v, want %v", c.IssuedAt(), issued)
	}
}

func TestCredentialAge(t *testing.T) {
	issued := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	c := Credential{IssuedAtMillis: issued.UnixMilli()}

	if got := c.Age(issued.Add(30 * time.Minute)); got != 30*time.Minute {
		t.Fatalf("age %v, want 30m", got)
	}
	if got := c.Age(issued); got != 0 {
		t.Fatalf("age at issue must be zero, got %v", got)
	}
}
