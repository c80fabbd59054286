// Package board orchestrates the dashboard: it pulls snapshots from the
// backend, runs gated actions through the session controller and builds
// the view for each render.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/siteops/permitboard/internal/logger"
	"github.com/siteops/permitboard/internal/permitclient"
	"github.com/siteops/permitboard/internal/permits"
	"github.com/siteops/permitboard/internal/session"
	"github.com/siteops/permitboard/internal/state"
	"github.com/siteops/permitboard/internal/view"
)

const (
	NoticeSelectDepartment = "Please select a department"
	NoticeEnterPoint       = "Please enter a work point"
	NoticeJobClosed        = "Job closed"
	NoticeThresholdSaved   = "Threshold saved"
	NoticeCloseForbidden   = "Cannot close: only the job owner or an admin may close it"
	NoticeBackendDown      = "Backend unreachable, showing last known data"
	NoticeBackendRestored  = "Connection restored"
)

// Gateway is the subset of the backend client the service needs.
type Gateway interface {
	Status(ctx context.Context) (*permits.Snapshot, error)
	Open(ctx context.Context, req permitclient.OpenRequest) (*permits.Snapshot, error)
	Close(ctx context.Context, id string) (*permits.Snapshot, error)
	SetConfig(ctx context.Context, overdueMinutes int) (*permits.Snapshot, error)
	Login(ctx context.Context, user, pin string) (*permitclient.LoginResponse, error)
	Logout(ctx context.Context)
	Me(ctx context.Context) (*permits.Session, error)
}

// Update is delivered to subscribers after every render-affecting change.
// Toasts are transient messages for live viewers only; notices for the
// operator's next page load stay queued in the controller.
type Update struct {
	Revision uint64
	Toasts   []string
}

// Options configures a Service.
type Options struct {
	View      view.Options
	Users     []string
	AdminName string
	Title     string
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Service is safe for concurrent use by HTTP handlers and the scheduler.
type Service struct {
	gateway    Gateway
	store      *state.Store
	controller *session.Controller
	opts       Options

	mu          sync.Mutex
	subscribers []func(Update)
	unreachable bool
}

// NewService wires a service around the gateway. Kiosk services never
// prompt and never issue gated calls.
func NewService(gateway Gateway, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Title == "" {
		opts.Title = "High-Risk Work Permits"
	}
	if len(opts.View.Departments) == 0 {
		opts.View.Departments = permits.DefaultDepartments
	}
	if opts.View.Location == nil {
		opts.View.Location = time.Local
	}

	s := &Service{
		gateway: gateway,
		store:   state.NewStore(),
		opts:    opts,
	}
	s.controller = session.NewController(opts.View.Kiosk, opts.AdminName, s.store.SetSession)
	return s
}

// Controller exposes the login state machine, mainly for handlers that
// only toggle the prompt.
func (s *Service) Controller() *session.Controller {
	return s.controller
}

// Kiosk reports whether the service is a read-only display.
func (s *Service) Kiosk() bool {
	return s.opts.View.Kiosk
}

// Subscribe registers fn for every Update. fn must not block.
func (s *Service) Subscribe(fn func(Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Bootstrap asks the backend for the current session and loads the first
// snapshot. A failing status call is not fatal: the board stays empty
// until the next refresh.
func (s *Service) Bootstrap(ctx context.Context) error {
	if !s.Kiosk() {
		sess, err := s.gateway.Me(ctx)
		if err != nil {
			logger.Warnf("Board", "Bootstrap", "session lookup failed: %v", err)
			sess = nil
		}
		s.controller.Bootstrap(sess)
		if sess != nil {
			logger.Infof("Board", "Bootstrap", "resumed session for %s (%s)", sess.User, sess.Role)
		}
	}

	if err := s.Refresh(ctx); err != nil {
		logger.Warnf("Board", "Bootstrap", "initial status failed: %v", err)
	}
	return nil
}

// Refresh pulls a fresh snapshot. On failure the previous snapshot stays
// in place and the error is returned for the scheduler to log.
func (s *Service) Refresh(ctx context.Context) error {
	snap, err := s.gateway.Status(ctx)
	if err != nil {
		if s.setReachable(false) {
			s.publish(NoticeBackendDown)
		}
		return fmt.Errorf("failed to refresh status: %w", err)
	}

	s.store.Replace(snap)
	if s.setReachable(true) {
		s.publish(NoticeBackendRestored)
		return nil
	}
	s.publish()
	return nil
}

// Tick re-renders elapsed times from the snapshot already in memory.
func (s *Service) Tick() {
	s.publish()
}

// OpenJob validates the draft locally and opens the job. The draft is
// retained on every failure so the operator can retry after logging in.
func (s *Service) OpenJob(ctx context.Context, draft session.Draft) error {
	draft.Department = strings.TrimSpace(draft.Department)
	draft.Point = strings.TrimSpace(draft.Point)
	draft.Control = strings.TrimSpace(draft.Control)
	draft.Details = strings.TrimSpace(draft.Details)
	if !draft.RiskType.Valid() {
		draft.RiskType = permits.RiskConfined
	}
	s.controller.SaveDraft(draft)

	if err := s.controller.Gate(); err != nil {
		return err
	}
	if draft.Department == "" {
		s.controller.Notify(NoticeSelectDepartment)
		return &session.ValidationError{Field: "department", Message: NoticeSelectDepartment}
	}
	if draft.Point == "" {
		s.controller.Notify(NoticeEnterPoint)
		return &session.ValidationError{Field: "point", Message: NoticeEnterPoint}
	}

	now := s.opts.Now().In(s.opts.View.Location)
	started := now
	if draft.StartTime != "" {
		t, err := permits.StartFromClock(now, draft.StartTime)
		if err != nil {
			msg := "Start time must be HH:MM"
			s.controller.Notify(msg)
			return &session.ValidationError{Field: "startTime", Message: msg}
		}
		started = t
	}

	sess := s.controller.Session()
	if sess == nil {
		return session.ErrLoginRequired
	}
	req := permitclient.OpenRequest{
		RiskType:       draft.RiskType,
		Department:     draft.Department,
		Point:          draft.Point,
		Control:        draft.Control,
		Requester:      sess.User,
		Details:        draft.Details,
		StartedAtISO:   started.UTC().Format(time.RFC3339),
		OverdueMinutes: s.store.Snapshot().Threshold(),
	}

	snap, err := s.gateway.Open(ctx, req)
	if err != nil {
		return s.actionFailed("OpenJob", "Cannot open job", err)
	}

	s.store.Replace(snap)
	s.controller.ClearDraftText()
	s.controller.Notify(fmt.Sprintf("Job opened: %s • %s • %s",
		draft.Department, view.RiskLabel(draft.RiskType, s.opts.View.RiskLabels), draft.Point))
	logger.Infof("Board", "OpenJob", "%s opened %s job at %s/%s", sess.User, draft.RiskType, draft.Department, draft.Point)
	s.publish()
	return nil
}

// CloseJob closes a job by id.
func (s *Service) CloseJob(ctx context.Context, id string) error {
	if err := s.controller.Gate(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return &session.ValidationError{Field: "id", Message: "missing job id"}
	}

	snap, err := s.gateway.Close(ctx, id)
	if err != nil {
		if errors.Is(err, permitclient.ErrForbidden) {
			s.controller.Notify(NoticeCloseForbidden)
			return err
		}
		return s.actionFailed("CloseJob", "Cannot close job", err)
	}

	s.store.Replace(snap)
	s.controller.Notify(NoticeJobClosed)
	logger.Infof("Board", "CloseJob", "closed job %s", id)
	s.publish()
	return nil
}

// SetThreshold clamps and saves the overdue threshold, then refetches
// status so every card is re-evaluated against the saved value.
func (s *Service) SetThreshold(ctx context.Context, minutes int) error {
	if err := s.controller.Gate(); err != nil {
		return err
	}
	minutes = permits.ClampOverdueMinutes(minutes)

	snap, err := s.gateway.SetConfig(ctx, minutes)
	if err != nil {
		return s.actionFailed("SetThreshold", "Cannot save threshold", err)
	}
	if snap != nil {
		s.store.Replace(snap)
	}
	s.controller.Notify(NoticeThresholdSaved)
	logger.Infof("Board", "SetThreshold", "overdue threshold set to %d minutes", minutes)

	if err := s.Refresh(ctx); err != nil {
		logger.Debugf("Board", "SetThreshold", "refresh after save failed: %v", err)
		s.publish()
	}
	return nil
}

// Login validates the credentials locally, signs in and confirms the
// session with the backend.
func (s *Service) Login(ctx context.Context, creds session.Credentials) error {
	if s.Kiosk() {
		return session.ErrReadOnly
	}
	user, pin, err := creds.Resolve()
	if err != nil {
		s.controller.RejectLogin(err.Error())
		return err
	}

	resp, err := s.gateway.Login(ctx, user, pin)
	if err != nil {
		msg := "Login failed"
		var apiErr *permitclient.APIError
		if errors.As(err, &apiErr) {
			msg = session.LoginFailureMessage(apiErr.Message)
		}
		s.controller.RejectLogin(msg)
		logger.Warnf("Board", "Login", "login rejected for %s: %v", user, err)
		return err
	}

	sess, err := s.gateway.Me(ctx)
	if err != nil || sess == nil {
		// Backends without /api/me still report the user on login.
		sess = &permits.Session{User: resp.User, Role: resp.Role}
		if sess.User == "" {
			sess.User = user
		}
	}
	s.controller.Authenticate(sess)
	logger.Infof("Board", "Login", "%s logged in as %s", sess.User, roleOf(sess))
	s.publish()
	return nil
}

// CancelLogin closes the prompt and keeps viewing read-only.
func (s *Service) CancelLogin() {
	s.controller.Cancel()
}

// Logout ends the backend session. It never fails from the caller's view.
func (s *Service) Logout(ctx context.Context) {
	if s.Kiosk() {
		return
	}
	prev := s.controller.Session()
	s.gateway.Logout(ctx)
	s.controller.Logout()
	if prev != nil {
		logger.Infof("Board", "Logout", "%s logged out", prev.User)
	}
	s.publish()
}

// View is what one render needs.
type View struct {
	Board view.Board
	Page  view.Page
}

// View builds the current board. An operator view drains queued notices
// into the page; a kiosk view never shows prompts or controls.
func (s *Service) View(kiosk bool) View {
	opts := s.opts.View
	opts.Kiosk = opts.Kiosk || kiosk

	var sess *permits.Session
	var prompt *session.Prompt
	draft := session.Draft{RiskType: permits.RiskConfined}
	if !opts.Kiosk {
		sess = s.store.Session()
		prompt = s.controller.Prompt()
		draft = s.controller.Draft()
	}

	b := view.Build(s.store.Snapshot(), sess, opts, s.opts.Now())
	page := view.NewPage(s.opts.Title, b, opts, sess, prompt, draft, s.opts.Users)
	if !opts.Kiosk {
		page.Notices = s.controller.DrainNotices()
	}
	return View{Board: b, Page: page}
}

// Board builds only the live region for a viewer.
func (s *Service) Board(kiosk bool, sess *permits.Session) view.Board {
	opts := s.opts.View
	opts.Kiosk = opts.Kiosk || kiosk
	if opts.Kiosk {
		sess = nil
	}
	return view.Build(s.store.Snapshot(), sess, opts, s.opts.Now())
}

// Session returns the signed-in identity or nil.
func (s *Service) Session() *permits.Session {
	return s.store.Session()
}

// Revision is the snapshot revision currently held.
func (s *Service) Revision() uint64 {
	return s.store.Revision()
}

// actionFailed maps a gated call failure: a 401 expires the session and
// re-prompts, anything else is surfaced as a notice with the server text.
func (s *Service) actionFailed(method, prefix string, err error) error {
	if errors.Is(err, permitclient.ErrUnauthenticated) {
		logger.Infof("Board", method, "session expired, prompting for login")
		s.controller.Expire()
		s.publish()
		return session.ErrLoginRequired
	}

	msg := prefix
	if server := permitclient.ServerMessage(err); server != "" {
		msg = prefix + ": " + server
	}
	s.controller.Notify(msg)
	logger.Warnf("Board", method, "%v", err)
	return err
}

// setReachable records backend reachability and reports whether it changed.
func (s *Service) setReachable(ok bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.unreachable == ok
	s.unreachable = !ok
	return changed
}

func (s *Service) publish(toasts ...string) {
	s.mu.Lock()
	subs := make([]func(Update), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	u := Update{Revision: s.store.Revision(), Toasts: toasts}
	for _, fn := range subs {
		fn(u)
	}
}

func roleOf(sess *permits.Session) permits.Role {
	if sess.IsAdmin() {
		return permits.RoleAdmin
	}
	return permits.RoleUser
}
