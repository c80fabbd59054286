package session

import (
	"errors"
	"testing"

	"github.com/siteops/permitboard/internal/permits"
)

func TestValidPIN(t *testing.T) {
	tests := []struct {
		pin  string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
		{"１２３４５６", false},
	}

	for _, tt := range tests {
		if got := ValidPIN(tt.pin); got != tt.want {
			t.Errorf("ValidPIN(%q): expected %v, got %v", tt.pin, tt.want, got)
		}
	}
}

func TestCredentials_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		creds     Credentials
		wantUser  string
		wantField string
	}{
		{
			name:     "user mode",
			creds:    Credentials{Mode: ModeUser, User: " Anan ", PIN: "123456"},
			wantUser: "Anan",
		},
		{
			name:     "admin mode lowercases",
			creds:    Credentials{Mode: ModeAdmin, User: "ignored", AdminName: "  ADMIN ", PIN: "654321"},
			wantUser: "admin",
		},
		{
			name:      "missing user",
			creds:     Credentials{Mode: ModeUser, PIN: "123456"},
			wantField: "user",
		},
		{
			name:      "missing admin name",
			creds:     Credentials{Mode: ModeAdmin, User: "anan", PIN: "123456"},
			wantField: "user",
		},
		{
			name:      "short pin",
			creds:     Credentials{Mode: ModeUser, User: "anan", PIN: "12345"},
			wantField: "pin",
		},
		{
			name:      "long pin",
			creds:     Credentials{Mode: ModeUser, User: "anan", PIN: "1234567"},
			wantField: "pin",
		},
		{
			name:      "letter in pin",
			creds:     Credentials{Mode: ModeUser, User: "anan", PIN: "12a456"},
			wantField: "pin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, _, err := tt.creds.Resolve()
			if tt.wantField != "" {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if vErr.Field != tt.wantField {
					t.Errorf("expected field %q, got %q", tt.wantField, vErr.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user != tt.wantUser {
				t.Errorf("expected user %q, got %q", tt.wantUser, user)
			}
		})
	}
}

func TestLoginFailureMessage(t *testing.T) {
	if got := LoginFailureMessage("pin must be 6 digits"); got != "PIN is incorrect" {
		t.Errorf("unexpected message %q", got)
	}
	if got := LoginFailureMessage("invalid login"); got != "Name or PIN is incorrect" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestController_BootstrapWithoutSessionPrompts(t *testing.T) {
	c := NewController(false, "", nil)
	c.Bootstrap(nil)

	if c.State() != StatePromptingLogin {
		t.Fatalf("expected PROMPTING_LOGIN, got %s", c.State())
	}
	p := c.Prompt()
	if p == nil || p.Hint != DefaultLoginHint || p.Mode != ModeUser {
		t.Errorf("unexpected prompt: %+v", p)
	}
}

func TestController_BootstrapWithSession(t *testing.T) {
	var seen *permits.Session
	c := NewController(false, "", func(s *permits.Session) { seen = s })
	c.Bootstrap(&permits.Session{User: "anan", Role: "something"})

	if c.State() != StateAuthenticated {
		t.Fatalf("expected AUTHENTICATED, got %s", c.State())
	}
	if c.Session().Role != permits.RoleUser {
		t.Errorf("unknown role should downgrade to user, got %q", c.Session().Role)
	}
	if seen == nil || seen.User != "anan" {
		t.Errorf("expected session callback, got %+v", seen)
	}
	if c.Prompt() != nil {
		t.Error("expected no prompt")
	}
}

func TestController_KioskNeverPrompts(t *testing.T) {
	c := NewController(true, "", nil)
	c.Bootstrap(nil)

	if c.State() != StateReadOnly {
		t.Fatalf("expected READ_ONLY, got %s", c.State())
	}
	if err := c.Gate(); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	c.ShowLogin("")
	c.Expire()
	if c.Prompt() != nil || c.State() != StateReadOnly {
		t.Error("kiosk controller must stay read-only")
	}
}

func TestController_GateWithoutSession(t *testing.T) {
	c := NewController(false, "", nil)

	err := c.Gate()
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
	if c.State() != StatePromptingLogin {
		t.Errorf("expected prompt to open, got %s", c.State())
	}
	if p := c.Prompt(); p == nil || p.Hint != GateLoginHint {
		t.Errorf("expected gate hint, got %+v", p)
	}
}

func TestController_LoginCancelLogout(t *testing.T) {
	var calls []*permits.Session
	c := NewController(false, "", func(s *permits.Session) { calls = append(calls, s) })

	c.ShowLogin("")
	c.Cancel()
	if c.State() != StateAnonymous {
		t.Fatalf("expected ANONYMOUS after cancel, got %s", c.State())
	}
	notices := c.DrainNotices()
	if len(notices) != 1 {
		t.Fatalf("expected read-only notice, got %v", notices)
	}

	c.ShowLogin("")
	c.Authenticate(&permits.Session{User: "admin", Role: permits.RoleAdmin})
	if c.State() != StateAuthenticated {
		t.Fatalf("expected AUTHENTICATED, got %s", c.State())
	}
	if err := c.Gate(); err != nil {
		t.Errorf("expected gate to pass, got %v", err)
	}

	c.Logout()
	if c.State() != StateAnonymous || c.Session() != nil {
		t.Errorf("expected anonymous after logout, got %s", c.State())
	}

	if len(calls) != 2 || calls[0] == nil || calls[1] != nil {
		t.Errorf("expected login then logout callbacks, got %+v", calls)
	}
}

func TestController_ExpireKeepsDraft(t *testing.T) {
	c := NewController(false, "", nil)
	c.Authenticate(&permits.Session{User: "anan"})

	draft := Draft{RiskType: permits.RiskHeight, Department: "RM2", Point: "Bag filter", Control: "Harness", Details: "night shift", StartTime: "07:30"}
	c.SaveDraft(draft)

	c.Expire()

	if c.State() != StatePromptingLogin {
		t.Fatalf("expected PROMPTING_LOGIN after expiry, got %s", c.State())
	}
	if c.Session() != nil {
		t.Error("expected session cleared")
	}
	if got := c.Draft(); got != draft {
		t.Errorf("expected draft kept, got %+v", got)
	}
}

func TestController_ClearDraftText(t *testing.T) {
	c := NewController(false, "", nil)
	c.SaveDraft(Draft{RiskType: permits.RiskHeight, Department: "RM2", Point: "p", Control: "c", Details: "d", StartTime: "07:30"})
	c.ClearDraftText()

	got := c.Draft()
	if got.Point != "" || got.Control != "" || got.Details != "" {
		t.Errorf("expected text fields cleared, got %+v", got)
	}
	if got.Department != "RM2" || got.RiskType != permits.RiskHeight || got.StartTime != "07:30" {
		t.Errorf("expected selections kept, got %+v", got)
	}

	c.ResetDraft()
	if got := c.Draft(); got.RiskType != permits.RiskConfined || got.Department != "" {
		t.Errorf("expected reset draft, got %+v", got)
	}
}

func TestController_PromptModes(t *testing.T) {
	c := NewController(false, "siteadmin", nil)
	c.ShowLogin("")

	c.SetPromptMode(ModeAdmin)
	if p := c.Prompt(); p.Mode != ModeAdmin || p.AdminName != "siteadmin" {
		t.Errorf("expected admin mode with default name, got %+v", p)
	}

	c.SetPromptMode(ModeUser)
	if p := c.Prompt(); p.Mode != ModeUser || p.AdminName != "" {
		t.Errorf("expected user mode with cleared name, got %+v", p)
	}

	c.RejectLogin("PIN is incorrect")
	if p := c.Prompt(); p.Error != "PIN is incorrect" {
		t.Errorf("expected error on prompt, got %+v", p)
	}

	c.ShowLogin("")
	if p := c.Prompt(); p.Error != "" || p.Mode != ModeUser {
		t.Errorf("reopening must reset the prompt, got %+v", p)
	}
}

func TestController_NoticesAreBounded(t *testing.T) {
	c := NewController(false, "", nil)
	for i := 0; i < maxNotices+3; i++ {
		c.Notify("n")
	}
	c.Notify("")
	if got := len(c.DrainNotices()); got != maxNotices {
		t.Errorf("expected %d notices, got %d", maxNotices, got)
	}
	if got := len(c.DrainNotices()); got != 0 {
		t.Errorf("expected drained, got %d", got)
	}
}
