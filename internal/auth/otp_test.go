package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestOTPIssueFormat(t *testing.T) {
	o := NewOTPAuthority()
	player := uuid.New()

	for i := 0; i < 100; i++ {
		code := o.Issue(player)
		if len(code) != 6 {
			t.Fatalf("expected a 6-digit code, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}

func TestOTPVerifyConsumesOnMatch(t *testing.T) {
	o := NewOTPAuthority()
	player := uuid.New()

	code := o.Issue(player)
	if !o.Verify(player, code) {
		t.Fatal("correct code rejected")
	}
	if o.Verify(player, code) {
		t.Error("code was accepted twice")
	}
}

func TestOTPVerifyMismatchKeepsCode(t *testing.T) {
	o := NewOTPAuthority()
	player := uuid.New()

	code := o.Issue(player)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	if o.Verify(player, wrong) {
		t.Fatal("wrong code accepted")
	}
	if !o.Verify(player, code) {
		t.Error("correct code rejected after a failed attempt")
	}
}

func TestOTPReissueReplaces(t *testing.T) {
	o := NewOTPAuthority()
	player := uuid.New()

	first := o.Issue(player)
	second := o.Issue(player)

	if first != second && o.Verify(player, first) {
		t.Error("stale code accepted after reissue")
	}
	if !o.Verify(player, second) {
		t.Error("latest code rejected")
	}
}

func TestOTPUnknownPlayer(t *testing.T) {
	o := NewOTPAuthority()
	if o.Verify(uuid.New(), "123456") {
		t.Error("code accepted for a player with no outstanding code")
	}
}
