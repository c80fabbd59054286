package permits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RiskType identifies the kind of high-risk work a permit covers.
type RiskType string

const (
	RiskConfined RiskType = "confined"
	RiskHeight   RiskType = "height"
)

// Valid reports whether r is one of the known risk types.
func (r RiskType) Valid() bool {
	return r == RiskConfined || r == RiskHeight
}

// Role is the authorization level the backend grants a session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	// DefaultOverdueMinutes is used when the backend omits the threshold.
	DefaultOverdueMinutes = 120
	// MinOverdueMinutes and MaxOverdueMinutes bound the threshold.
	MinOverdueMinutes = 1
	MaxOverdueMinutes = 9999
)

// DefaultDepartments is the site department list used when no site file
// overrides it.
var DefaultDepartments = []string{"Crusher", "RM1", "RM2", "Petcoke Mill", "Pfister", "Kiln1", "Kiln2"}

// Job is one open work permit as reported by the backend.
type Job struct {
	ID           string   `json:"id"`
	RiskType     RiskType `json:"riskType"`
	Department   string   `json:"department"`
	Point        string   `json:"point"`
	Control      string   `json:"control,omitempty"`
	Requester    string   `json:"requester,omitempty"`
	OpenedBy     string   `json:"openedBy,omitempty"`
	Details      string   `json:"details,omitempty"`
	StartedAtISO string   `json:"startedAtISO"`
}

// Owner returns the user who opened the job. Older records only carry
// Requester.
func (j Job) Owner() string {
	if owner := strings.TrimSpace(j.OpenedBy); owner != "" {
		return owner
	}
	return strings.TrimSpace(j.Requester)
}

// UnmarshalJSON accepts the id as a JSON string or number. The backend
// stores whatever id an open request carried, so both occur in one payload.
func (j *Job) UnmarshalJSON(data []byte) error {
	type jobFields Job
	aux := struct {
		*jobFields
		ID json.RawMessage `json:"id"`
	}{jobFields: (*jobFields)(j)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	j.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("job id must be a string or number, got %s", raw)
	}
	return n.String(), nil
}

// zonelessLayout is a timestamp without an offset; it is read in the
// caller's location, like a browser's Date constructor does.
const zonelessLayout = "2006-01-02T15:04:05.999999999"

// StartedAt parses StartedAtISO, reading timestamps without an offset in
// loc. The zero time is returned for values the backend wrote in an
// unexpected format.
func (j Job) StartedAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, j.StartedAtISO); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(zonelessLayout, j.StartedAtISO, loc); err == nil {
		return t
	}
	return time.Time{}
}

// ElapsedSeconds returns whole seconds since the job started, never
// negative. Future-dated jobs report zero. Timestamps without an offset
// are read in now's location.
func (j Job) ElapsedSeconds(now time.Time) int64 {
	started := j.StartedAt(now.Location())
	if started.IsZero() {
		return 0
	}
	secs := int64(now.Sub(started) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// IsOverdue reports whether the job has run for at least overdueMinutes.
// The boundary is inclusive.
func (j Job) IsOverdue(now time.Time, overdueMinutes int) bool {
	return j.ElapsedSeconds(now) >= int64(ClampOverdueMinutes(overdueMinutes))*60
}

// Snapshot is the full server state the dashboard renders from.
type Snapshot struct {
	Jobs           []Job  `json:"jobs"`
	OverdueMinutes int    `json:"overdueMinutes"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// EmptySnapshot is the state shown before the first successful poll.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Jobs: []Job{}, OverdueMinutes: DefaultOverdueMinutes}
}

// Threshold returns the overdue threshold, falling back to the default when
// the backend sent nothing usable.
func (s *Snapshot) Threshold() int {
	if s == nil || s.OverdueMinutes <= 0 {
		return DefaultOverdueMinutes
	}
	return ClampOverdueMinutes(s.OverdueMinutes)
}

// Session is the identity the backend recognises for this client.
type Session struct {
	User string `json:"user"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// CanClose mirrors the backend rule: admins close anything, users close
// only the jobs they opened.
func (s *Session) CanClose(job Job) bool {
	if s == nil || s.User == "" {
		return false
	}
	return s.IsAdmin() || job.Owner() == s.User
}

// ClampOverdueMinutes bounds a threshold to [MinOverdueMinutes, MaxOverdueMinutes].
func ClampOverdueMinutes(minutes int) int {
	if minutes < MinOverdueMinutes {
		return MinOverdueMinutes
	}
	if minutes > MaxOverdueMinutes {
		return MaxOverdueMinutes
	}
	return minutes
}

// FormatDuration renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// StartFromClock returns today's date (in now's location) at the HH:MM
// given by clock. An empty clock means now.
func StartFromClock(now time.Time, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return now, nil
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time %q: expected HH:MM", clock)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}
