// Package view derives what the dashboard shows from the current snapshot
// and session, and writes it out as HTML or plain text.
package view

import (
	"time"

	"github.com/siteops/permitboard/internal/permits"
)

// Options carries the site settings a render depends on.
type Options struct {
	Departments []string
	RiskLabels  map[permits.RiskType]string
	Location    *time.Location
	Kiosk       bool
}

// Card is one job as displayed.
type Card struct {
	ID         string
	RiskType   permits.RiskType
	RiskClass  string
	RiskLabel  string
	Department string
	Point      string
	Control    string
	Requester  string
	Details    string
	StartTime  string
	Elapsed    string
	Overdue    bool
	CanClose   bool
}

// SummaryRow counts open jobs of each risk type in one department.
type SummaryRow struct {
	Department   string
	Confined     int
	Height       int
	ConfinedZero bool
	HeightZero   bool
}

// KPIs are the headline counters.
type KPIs struct {
	Open    int
	Overdue int
}

// Board is the full view model for one render.
type Board struct {
	Cards          []Card
	Summary        []SummaryRow
	KPIs           KPIs
	Empty          bool
	OverdueMinutes int
	UpdatedLabel   string
	Kiosk          bool
}

type tally struct {
	confined int
	height   int
}

// Build projects snapshot and session into a Board. It reads only its
// arguments, so it is safe to call at any time with the latest snapshot.
func Build(snap *permits.Snapshot, sess *permits.Session, opts Options, now time.Time) Board {
	if snap == nil {
		snap = permits.EmptySnapshot()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	departments := opts.Departments
	if len(departments) == 0 {
		departments = permits.DefaultDepartments
	}
	threshold := snap.Threshold()
	now = now.In(loc)

	board := Board{
		Cards:          make([]Card, 0, len(snap.Jobs)),
		Summary:        make([]SummaryRow, 0, len(departments)),
		Empty:          len(snap.Jobs) == 0,
		OverdueMinutes: threshold,
		UpdatedLabel:   now.In(loc).Format("02/01/2006 15:04"),
		Kiosk:          opts.Kiosk,
	}

	counts := make(map[string]*tally, len(departments))
	for _, d := range departments {
		counts[d] = &tally{}
	}

	for _, job := range snap.Jobs {
		overdue := job.IsOverdue(now, threshold)
		if overdue {
			board.KPIs.Overdue++
		}
		board.Cards = append(board.Cards, buildCard(job, sess, opts, loc, now, overdue))

		// Unknown departments are tallied but never get a summary row.
		c, ok := counts[job.Department]
		if !ok {
			c = &tally{}
			counts[job.Department] = c
		}
		switch job.RiskType {
		case permits.RiskConfined:
			c.confined++
		case permits.RiskHeight:
			c.height++
		}
	}
	board.KPIs.Open = len(snap.Jobs)

	for _, d := range departments {
		c := counts[d]
		board.Summary = append(board.Summary, SummaryRow{
			Department:   d,
			Confined:     c.confined,
			Height:       c.height,
			ConfinedZero: c.confined == 0,
			HeightZero:   c.height == 0,
		})
	}

	return board
}

func buildCard(job permits.Job, sess *permits.Session, opts Options, loc *time.Location, now time.Time, overdue bool) Card {
	card := Card{
		ID:         job.ID,
		RiskType:   job.RiskType,
		RiskClass:  riskClass(job.RiskType),
		RiskLabel:  RiskLabel(job.RiskType, opts.RiskLabels),
		Department: job.Department,
		Point:      job.Point,
		Control:    orDash(job.Control),
		Requester:  orDash(job.Requester),
		Details:    job.Details,
		Elapsed:    permits.FormatDuration(job.ElapsedSeconds(now)),
		Overdue:    overdue,
		CanClose:   !opts.Kiosk && sess.CanClose(job),
	}
	if started := job.StartedAt(loc); !started.IsZero() {
		card.StartTime = started.In(loc).Format("15:04")
	} else {
		card.StartTime = "-"
	}
	return card
}

// RiskLabel returns the display name for a risk type.
func RiskLabel(r permits.RiskType, labels map[permits.RiskType]string) string {
	if l, ok := labels[r]; ok && l != "" {
		return l
	}
	if r == permits.RiskConfined {
		return "Confined space"
	}
	return "Working at height"
}

func riskClass(r permits.RiskType) string {
	if r == permits.RiskConfined {
		return "confined"
	}
	return "height"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
