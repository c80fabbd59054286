package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/siteops/permitboard/internal/logger"
	"github.com/siteops/permitboard/internal/permits"
	"github.com/siteops/permitboard/internal/session"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Mode     string `json:"mode"`
	Revision uint64 `json:"revision"`
	Viewers  int    `json:"viewers"`
}

// HandleHealth reports liveness plus a few counters.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := "operator"
		if s.service.Kiosk() {
			mode = "kiosk"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:   "ok",
			Mode:     mode,
			Revision: s.service.Revision(),
			Viewers:  s.hub.Count(),
		})
	}
}

// HandlePage renders the full document. kiosk forces the read-only page;
// otherwise the configured mode decides.
func (s *Server) HandlePage(kiosk bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := s.service.View(kiosk)
		noStore(w)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.renderer.Page(w, v.Page); err != nil {
			logger.Error("Server", "HandlePage", err)
		}
	}
}

// HandleBoard renders only the live region, for polling clients.
func (s *Server) HandleBoard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kiosk := queryFlag(r, "kiosk")
		b := s.service.Board(kiosk, s.service.Session())
		noStore(w)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.renderer.Board(w, b); err != nil {
			logger.Error("Server", "HandleBoard", err)
		}
	}
}

// HandleWS upgrades to the push channel.
func (s *Server) HandleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.hub.ServeWS(w, r, s.service.Kiosk() || queryFlag(r, "kiosk"))
	}
}

// HandleOpen submits the open-job form. Failures are reported on the next
// page render through the controller's notices and prompt.
func (s *Server) HandleOpen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		draft := session.Draft{
			RiskType:   permits.RiskType(r.PostFormValue("riskType")),
			Department: r.PostFormValue("department"),
			Point:      r.PostFormValue("point"),
			Control:    r.PostFormValue("control"),
			Details:    r.PostFormValue("details"),
			StartTime:  r.PostFormValue("startTime"),
		}
		s.logActionError("HandleOpen", s.service.OpenJob(r.Context(), draft))
		backToBoard(w, r)
	}
}

// HandleClear resets the open-job form.
func (s *Server) HandleClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.service.Controller().ResetDraft()
		backToBoard(w, r)
	}
}

// HandleClose closes the job named by the id field.
func (s *Server) HandleClose() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		s.logActionError("HandleClose", s.service.CloseJob(r.Context(), r.PostFormValue("id")))
		backToBoard(w, r)
	}
}

// HandleThreshold saves the overdue threshold in minutes.
func (s *Server) HandleThreshold() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		minutes, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("overdueMinutes")))
		if err != nil {
			s.service.Controller().Notify("Threshold must be a whole number of minutes")
			backToBoard(w, r)
			return
		}
		s.logActionError("HandleThreshold", s.service.SetThreshold(r.Context(), minutes))
		backToBoard(w, r)
	}
}

// HandleShowLogin opens the login prompt, optionally in admin mode.
func (s *Server) HandleShowLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := s.service.Controller()
		c.ShowLogin("")
		if mode := session.Mode(r.URL.Query().Get("mode")); mode == session.ModeAdmin || mode == session.ModeUser {
			c.SetPromptMode(mode)
		}
		backToBoard(w, r)
	}
}

// HandleLogin submits the login form.
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		mode := session.Mode(r.PostFormValue("mode"))
		if mode != session.ModeAdmin {
			mode = session.ModeUser
		}
		s.service.Controller().SetPromptMode(mode)

		creds := session.Credentials{
			Mode:      mode,
			User:      r.PostFormValue("user"),
			AdminName: r.PostFormValue("adminName"),
			PIN:       r.PostFormValue("pin"),
		}
		s.logActionError("HandleLogin", s.service.Login(r.Context(), creds))
		backToBoard(w, r)
	}
}

// HandleCancelLogin dismisses the prompt and keeps the board read-only.
func (s *Server) HandleCancelLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.service.CancelLogin()
		backToBoard(w, r)
	}
}

// HandleLogout ends the session.
func (s *Server) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.service.Logout(r.Context())
		backToBoard(w, r)
	}
}

// logActionError records failures the page already shows to the operator.
func (s *Server) logActionError(method string, err error) {
	if err == nil {
		return
	}
	var vErr *session.ValidationError
	if errors.Is(err, session.ErrLoginRequired) || errors.As(err, &vErr) {
		logger.Debugf("Server", method, "%v", err)
		return
	}
	logger.Warnf("Server", method, "%v", err)
}

// backToBoard finishes a form post with a 303 so a reload never resubmits.
func backToBoard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

func queryFlag(r *http.Request, key string) bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
