package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/siteops/permitboard/internal/permits"
	"github.com/siteops/permitboard/internal/session"
)

// Validation errors.
var (
	ErrUserRequired  = errors.New("--user flag is required (or --admin)")
	ErrInvalidRisk   = errors.New("--risk must be 'confined' or 'height'")
	ErrIDRequired    = errors.New("--id flag is required")
	ErrMinutesFormat = errors.New("--minutes must be a whole number")
)

// ParseRisk accepts the risk type case-insensitively, with a few aliases.
func ParseRisk(raw string) (permits.RiskType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confined", "confined-space", "cs":
		return permits.RiskConfined, nil
	case "height", "work-at-height", "wah":
		return permits.RiskHeight, nil
	default:
		return "", ErrInvalidRisk
	}
}

// ParseIdentity builds login credentials. admin selects the admin name
// path; otherwise user is required.
func ParseIdentity(user string, admin bool, adminName string) (session.Credentials, error) {
	if admin {
		return session.Credentials{Mode: session.ModeAdmin, AdminName: adminName}, nil
	}
	if strings.TrimSpace(user) == "" {
		return session.Credentials{}, ErrUserRequired
	}
	return session.Credentials{Mode: session.ModeUser, User: user}, nil
}

// ParseCloseID validates a job id argument.
func ParseCloseID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrIDRequired
	}
	return id, nil
}

// ParseMinutes parses and clamps an overdue threshold.
func ParseMinutes(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMinutesFormat, raw)
	}
	return permits.ClampOverdueMinutes(n), nil
}
