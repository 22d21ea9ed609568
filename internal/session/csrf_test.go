package session

import (
	"strings"
	"testing"
	"time"
)

func TestCsrfGuard_IssueAndVerify(t *testing.T) {
	g := NewCsrfGuard()

	secret, err := g.Issue("sess_a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if secret == "" {
		t.Fatal("empty secret")
	}

	if !g.Verify("sess_a", secret) {
		t.Error("correct secret rejected")
	}
	if g.Verify("sess_a", secret+"x") {
		t.Error("tampered secret accepted")
	}
	if g.Verify("sess_a", "") {
		t.Error("absent value accepted")
	}
	if g.Verify("sess_other", secret) {
		t.Error("secret accepted for a different session")
	}
}

func TestCsrfGuard_ReissueStable(t *testing.T) {
	g := NewCsrfGuard()

	first, err := g.Issue("sess_a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := g.Issue("sess_a")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if first != second {
		t.Error("re-issue changed the secret for a live session")
	}
}

func TestCsrfGuard_DistinctPerSession(t *testing.T) {
	g := NewCsrfGuard()
	a, _ := g.Issue("sess_a")
	b, _ := g.Issue("sess_b")
	if a == b {
		t.Error("two sessions share a csrf secret")
	}
}

func TestCsrfGuard_DropInvalidates(t *testing.T) {
	g := NewCsrfGuard()
	secret, _ := g.Issue("sess_a")

	g.Drop("sess_a")
	if g.Verify("sess_a", secret) {
		t.Error("secret survives session destruction")
	}
}

func TestCsrfGuard_PreSessionTicket(t *testing.T) {
	g := NewCsrfGuard()

	ticket, err := g.IssuePreSession()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(ticket, preTicketPrefix) {
		t.Errorf("ticket = %q, want %q prefix", ticket, preTicketPrefix)
	}

	// A pre-session ticket never authorizes a session-bound mutation.
	if g.Verify("sess_a", ticket) {
		t.Error("pre-session ticket verified against a session")
	}
}

func TestCsrfGuard_PreSessionReap(t *testing.T) {
	g := NewCsrfGuard()

	ticket, _ := g.IssuePreSession()
	g.mu.Lock()
	g.pre[ticket] = time.Now().Add(-time.Minute)
	g.mu.Unlock()

	// Next issuance reaps the expired ticket.
	if _, err := g.IssuePreSession(); err != nil {
		t.Fatalf("issue: %v", err)
	}

	g.mu.Lock()
	_, still := g.pre[ticket]
	g.mu.Unlock()
	if still {
		t.Error("expired pre-session ticket not reaped")
	}
}
