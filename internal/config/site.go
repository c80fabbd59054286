package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // kiosk images often ship without zoneinfo

	"gopkg.in/yaml.v3"

	"github.com/siteops/permitboard/internal/permits"
)

// Site describes the plant the dashboard is installed at.
type Site struct {
	Departments []string
	Users       []string
	AdminName   string
	Location    *time.Location
	RiskLabels  map[permits.RiskType]string
}

// siteFile is the on-disk YAML shape.
type siteFile struct {
	Departments []string          `yaml:"departments"`
	Users       []string          `yaml:"users"`
	AdminName   string            `yaml:"admin_name"`
	Timezone    string            `yaml:"timezone"`
	RiskLabels  map[string]string `yaml:"risk_labels"`
}

// DefaultSite is used when no site file is configured.
func DefaultSite() Site {
	return Site{
		Departments: append([]string(nil), permits.DefaultDepartments...),
		AdminName:   "admin",
		Location:    time.Local,
	}
}

// LoadSite reads the YAML site file at path. An empty path yields
// DefaultSite; missing fields fall back to the defaults.
func LoadSite(path string) (Site, error) {
	site := DefaultSite()
	if path == "" {
		return site, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Site{}, fmt.Errorf("failed to read site file: %w", err)
	}

	var raw siteFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Site{}, fmt.Errorf("failed to parse site file %s: %w", path, err)
	}

	if depts := cleanList(raw.Departments); len(depts) > 0 {
		site.Departments = depts
	}
	site.Users = cleanList(raw.Users)
	if name := strings.ToLower(strings.TrimSpace(raw.AdminName)); name != "" {
		site.AdminName = name
	}
	if tz := strings.TrimSpace(raw.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Site{}, fmt.Errorf("invalid timezone %q in site file: %w", tz, err)
		}
		site.Location = loc
	}
	for key, label := range raw.RiskLabels {
		risk := permits.RiskType(strings.TrimSpace(key))
		if !risk.Valid() {
			return Site{}, fmt.Errorf("unknown risk type %q in site file", key)
		}
		if site.RiskLabels == nil {
			site.RiskLabels = map[permits.RiskType]string{}
		}
		site.RiskLabels[risk] = strings.TrimSpace(label)
	}

	return site, nil
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
