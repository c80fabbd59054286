package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/siteops/permitboard/internal/permits"
	"github.com/siteops/permitboard/internal/session"
)

// RiskOption is one choice in the risk type selector.
type RiskOption struct {
	Value   permits.RiskType
	Label   string
	Checked bool
}

// Page is everything the full dashboard page needs.
type Page struct {
	Title       string
	Board       Board
	Kiosk       bool
	Session     *permits.Session
	Prompt      *session.Prompt
	Draft       session.Draft
	Users       []string
	Departments []string
	RiskOptions []RiskOption
	Notices     []string
}

// NewPage fills the parts of Page derived from the board and the draft.
func NewPage(title string, board Board, opts Options, sess *permits.Session, prompt *session.Prompt, draft session.Draft, users []string) Page {
	departments := opts.Departments
	if len(departments) == 0 {
		departments = permits.DefaultDepartments
	}
	risk := draft.RiskType
	if !risk.Valid() {
		risk = permits.RiskConfined
	}
	return Page{
		Title:       title,
		Board:       board,
		Kiosk:       opts.Kiosk,
		Session:     sess,
		Prompt:      prompt,
		Draft:       draft,
		Users:       users,
		Departments: departments,
		RiskOptions: []RiskOption{
			{Value: permits.RiskConfined, Label: RiskLabel(permits.RiskConfined, opts.RiskLabels), Checked: risk == permits.RiskConfined},
			{Value: permits.RiskHeight, Label: RiskLabel(permits.RiskHeight, opts.RiskLabels), Checked: risk == permits.RiskHeight},
		},
	}
}

// Renderer writes pages and board fragments through html/template, which
// escapes every interpolated value for its context.
type Renderer struct {
	tmpl *template.Template
}

var funcMap = template.FuncMap{
	"sessionLabel": func(s *permits.Session) string {
		if s == nil {
			return ""
		}
		if s.IsAdmin() {
			return s.User + " (Admin)"
		}
		return s.User
	},
	"isAdminMode": func(p *session.Prompt) bool {
		return p != nil && p.Mode == session.ModeAdmin
	},
}

// NewRenderer parses the dashboard templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("page").Funcs(funcMap).Parse(tmplPage)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	if _, err := tmpl.New("board").Parse(tmplBoard); err != nil {
		return nil, fmt.Errorf("failed to parse board template: %w", err)
	}
	if _, err := tmpl.New("login").Parse(tmplLogin); err != nil {
		return nil, fmt.Errorf("failed to parse login template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page writes the full dashboard document.
func (r *Renderer) Page(w io.Writer, p Page) error {
	return r.tmpl.ExecuteTemplate(w, "page", p)
}

// Board writes only the live region: KPIs, cards and summary table.
func (r *Renderer) Board(w io.Writer, b Board) error {
	return r.tmpl.ExecuteTemplate(w, "board", b)
}

// BoardHTML is Board into a string.
func (r *Renderer) BoardHTML(b Board) (string, error) {
	var buf bytes.Buffer
	if err := r.Board(&buf, b); err != nil {
		return "", err
	}
	return buf.String(), nil
}
