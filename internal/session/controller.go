// Package session implements the login state machine that gates mutating
// dashboard actions.
package session

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/siteops/permitboard/internal/permits"
)

// State is the controller's position in the login state machine.
type State string

const (
	StateAnonymous      State = "ANONYMOUS"
	StatePromptingLogin State = "PROMPTING_LOGIN"
	StateAuthenticated  State = "AUTHENTICATED"
	// StateReadOnly is permanent for kiosk displays; they never prompt.
	StateReadOnly State = "READ_ONLY"
)

// Mode selects how the login form identifies the user.
type Mode string

const (
	ModeUser  Mode = "user"
	ModeAdmin Mode = "admin"
)

const (
	// DefaultLoginHint is shown when the prompt opens on its own.
	DefaultLoginHint = "Select your name and enter your 6-digit PIN"
	// GateLoginHint is shown when a gated action needs a session.
	GateLoginHint = "Please log in first (6-digit PIN). Cancel to keep viewing read-only."

	maxNotices = 8
)

var (
	// ErrLoginRequired is returned by Gate when there is no session.
	ErrLoginRequired = errors.New("login required")
	// ErrReadOnly is returned by Gate on kiosk displays.
	ErrReadOnly = errors.New("read-only display")

	pinPattern = regexp.MustCompile(`^\d{6}$`)
)

// ValidationError is a client-side rejection; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Credentials is what the login form submits.
type Credentials struct {
	Mode      Mode
	User      string
	AdminName string
	PIN       string
}

// Resolve validates the credentials and returns the user name to send.
// Admin names are trimmed and lowercased to match the backend's user file.
func (c Credentials) Resolve() (string, string, error) {
	user := strings.TrimSpace(c.User)
	if c.Mode == ModeAdmin {
		user = strings.ToLower(strings.TrimSpace(c.AdminName))
	}
	pin := strings.TrimSpace(c.PIN)

	if user == "" || pin == "" {
		msg := "Please select your name and enter your PIN"
		if c.Mode == ModeAdmin {
			msg = "Please type the admin name and enter your PIN"
		}
		return "", "", &ValidationError{Field: "user", Message: msg}
	}
	if !ValidPIN(pin) {
		return "", "", &ValidationError{Field: "pin", Message: "PIN must be 6 digits"}
	}
	return user, pin, nil
}

// ValidPIN reports whether pin is exactly six ASCII digits.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// LoginFailureMessage turns a backend login error into the text shown
// under the form.
func LoginFailureMessage(serverMessage string) string {
	if strings.Contains(strings.ToLower(serverMessage), "pin") {
		return "PIN is incorrect"
	}
	return "Name or PIN is incorrect"
}

// Draft holds the open-job form between submissions so a session expiry
// does not lose what the operator typed.
type Draft struct {
	RiskType   permits.RiskType
	Department string
	Point      string
	Control    string
	Details    string
	StartTime  string
}

// Prompt describes the login overlay when it is showing.
type Prompt struct {
	Hint      string
	Error     string
	Mode      Mode
	AdminName string
}

// Controller owns the login state, the draft form and pending notices.
// It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	state     State
	session   *permits.Session
	prompt    Prompt
	draft     Draft
	notices   []string
	adminName string
	onSession func(*permits.Session)
}

// NewController creates a controller. Kiosk controllers start, and stay,
// in StateReadOnly. onSession is called with the new session (or nil)
// whenever the identity changes.
func NewController(kiosk bool, adminName string, onSession func(*permits.Session)) *Controller {
	if adminName == "" {
		adminName = "admin"
	}
	c := &Controller{
		state:     StateAnonymous,
		adminName: adminName,
		onSession: onSession,
		draft:     Draft{RiskType: permits.RiskConfined},
	}
	if kiosk {
		c.state = StateReadOnly
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the authenticated session or nil.
func (c *Controller) Session() *permits.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// Bootstrap applies the session reported by the backend at startup. With no
// session an operator display prompts straight away.
func (c *Controller) Bootstrap(sess *permits.Session) {
	c.mu.Lock()
	if c.state == StateReadOnly {
		c.mu.Unlock()
		return
	}
	if sess != nil && sess.User != "" {
		c.setAuthenticatedLocked(sess)
	} else {
		c.session = nil
		c.openPromptLocked(DefaultLoginHint)
	}
	current := c.session
	c.mu.Unlock()
	c.notify(current)
}

// Gate checks that a mutating action may proceed. Without a session it
// opens the login prompt and returns ErrLoginRequired.
func (c *Controller) Gate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReadOnly:
		return ErrReadOnly
	case StateAuthenticated:
		return nil
	default:
		c.openPromptLocked(GateLoginHint)
		return ErrLoginRequired
	}
}

// ShowLogin opens the prompt on request.
func (c *Controller) ShowLogin(hint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReadOnly || c.state == StateAuthenticated {
		return
	}
	if hint == "" {
		hint = DefaultLoginHint
	}
	c.openPromptLocked(hint)
}

// SetPromptMode switches the segmented user/admin control. Entering admin
// mode pre-fills the configured admin name.
func (c *Controller) SetPromptMode(mode Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt.Mode = mode
	if mode == ModeAdmin {
		if c.prompt.AdminName == "" {
			c.prompt.AdminName = c.adminName
		}
	} else {
		c.prompt.AdminName = ""
	}
}

// Prompt returns the login overlay, or nil when it is hidden.
func (c *Controller) Prompt() *Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePromptingLogin {
		return nil
	}
	p := c.prompt
	return &p
}

// RejectLogin keeps the prompt open and shows msg under the form.
func (c *Controller) RejectLogin(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReadOnly {
		return
	}
	c.state = StatePromptingLogin
	c.prompt.Error = msg
}

// Authenticate completes a login.
func (c *Controller) Authenticate(sess *permits.Session) {
	c.mu.Lock()
	if c.state == StateReadOnly || sess == nil {
		c.mu.Unlock()
		return
	}
	c.setAuthenticatedLocked(sess)
	c.pushNoticeLocked("Logged in: " + sess.User)
	current := c.session
	c.mu.Unlock()
	c.notify(current)
}

// Cancel closes the prompt; the display stays usable read-only.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePromptingLogin {
		return
	}
	c.state = StateAnonymous
	c.prompt = Prompt{}
	c.pushNoticeLocked("Read-only mode: log in to open or close jobs")
}

// Logout drops the session after an explicit logout.
func (c *Controller) Logout() {
	c.mu.Lock()
	if c.state == StateReadOnly {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.state = StateAnonymous
	c.prompt = Prompt{}
	c.pushNoticeLocked("Logged out")
	c.mu.Unlock()
	c.notify(nil)
}

// Expire handles a 401 on a gated call: the session is cleared and the
// prompt reopens. The draft is left untouched.
func (c *Controller) Expire() {
	c.mu.Lock()
	if c.state == StateReadOnly {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.openPromptLocked(GateLoginHint)
	c.mu.Unlock()
	c.notify(nil)
}

// Draft returns the retained open-job form.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SaveDraft stores the form as submitted.
func (c *Controller) SaveDraft(d Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d.RiskType == "" {
		d.RiskType = permits.RiskConfined
	}
	c.draft = d
}

// ClearDraftText empties the free-text fields after a successful open.
// Risk type, department and start time are kept for the next entry.
func (c *Controller) ClearDraftText() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Point = ""
	c.draft.Control = ""
	c.draft.Details = ""
}

// ResetDraft restores an empty form.
func (c *Controller) ResetDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{RiskType: permits.RiskConfined}
}

// Notify queues a toast message.
func (c *Controller) Notify(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushNoticeLocked(msg)
}

// DrainNotices returns and clears pending toast messages.
func (c *Controller) DrainNotices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

func (c *Controller) setAuthenticatedLocked(sess *permits.Session) {
	copied := *sess
	if copied.Role != permits.RoleAdmin {
		copied.Role = permits.RoleUser
	}
	c.session = &copied
	c.state = StateAuthenticated
	c.prompt = Prompt{}
}

// openPromptLocked resets the overlay to user mode each time it opens.
func (c *Controller) openPromptLocked(hint string) {
	c.state = StatePromptingLogin
	c.prompt = Prompt{Hint: hint, Mode: ModeUser}
}

func (c *Controller) pushNoticeLocked(msg string) {
	if msg == "" {
		return
	}
	c.notices = append(c.notices, msg)
	if len(c.notices) > maxNotices {
		c.notices = c.notices[len(c.notices)-maxNotices:]
	}
}

func (c *Controller) notify(sess *permits.Session) {
	if c.onSession == nil {
		return
	}
	if sess != nil {
		copied := *sess
		sess = &copied
	}
	c.onSession(sess)
}
