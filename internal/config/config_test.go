package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoad_RequiredFields tests that required configuration fields are validated.
func TestLoad_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "missing PERMITBOARD_API_URL",
			envVars: map[string]string{},
			wantErr: true,
			errMsg:  "PERMITBOARD_API_URL is required",
		},
		{
			name: "non-http API URL",
			envVars: map[string]string{
				"PERMITBOARD_API_URL": "ftp://permits.local",
			},
			wantErr: true,
			errMsg:  "PERMITBOARD_API_URL must be an http(s) URL, got 'ftp://permits.local'",
		},
		{
			name: "port out of range",
			envVars: map[string]string{
				"PERMITBOARD_API_URL": "http://permits.local:3000",
				"PERMITBOARD_PORT":    "70000",
			},
			wantErr: true,
			errMsg:  "PERMITBOARD_PORT must be between 1 and 65535, got 70000",
		},
		{
			name: "poll interval too short",
			envVars: map[string]string{
				"PERMITBOARD_API_URL":          "http://permits.local:3000",
				"PERMITBOARD_POLL_INTERVAL_MS": "10",
			},
			wantErr: true,
			errMsg:  "PERMITBOARD_POLL_INTERVAL_MS must be at least 100, got 10",
		},
		{
			name: "all required fields present",
			envVars: map[string]string{
				"PERMITBOARD_API_URL": "http://permits.local:3000/",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error %q, got nil", tt.errMsg)
				} else if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.APIURL != "http://permits.local:3000" {
				t.Errorf("expected trailing slash trimmed, got %s", cfg.APIURL)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("PERMITBOARD_API_URL", "http://permits.local:3000")

	cfg, err := load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.ListenAddr() != "127.0.0.1:8090" {
		t.Errorf("expected listen addr 127.0.0.1:8090, got %s", cfg.ListenAddr())
	}
	if cfg.Kiosk {
		t.Error("expected operator mode by default")
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("expected poll interval 2s, got %v", cfg.PollInterval)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("expected tick interval 1s, got %v", cfg.TickInterval)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Errorf("expected request timeout 10s, got %v", cfg.RequestTimeout())
	}
	if len(cfg.AllowedIPs) != 0 {
		t.Errorf("expected no IP allowlist, got %v", cfg.AllowedIPs)
	}
	if cfg.Site.AdminName != "admin" || len(cfg.Site.Departments) != 7 {
		t.Errorf("expected default site, got %+v", cfg.Site)
	}
}

func TestLoad_Overrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("PERMITBOARD_API_URL", "https://permits.example.com")
	os.Setenv("PERMITBOARD_HOST", "0.0.0.0")
	os.Setenv("PERMITBOARD_PORT", "9000")
	os.Setenv("PERMITBOARD_KIOSK", "YES")
	os.Setenv("PERMITBOARD_POLL_INTERVAL_MS", "5000")
	os.Setenv("PERMITBOARD_ALLOWED_IPS", "127.0.0.1, 10.0.0.0/8,,")

	cfg, err := load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ListenAddr() != "0.0.0.0:9000" {
		t.Errorf("unexpected listen addr %s", cfg.ListenAddr())
	}
	if !cfg.Kiosk {
		t.Error("expected kiosk mode")
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("expected 5s poll, got %v", cfg.PollInterval)
	}
	if strings.Join(cfg.AllowedIPs, "|") != "127.0.0.1|10.0.0.0/8" {
		t.Errorf("unexpected allowlist %v", cfg.AllowedIPs)
	}
}

func TestLoad_EnvFilePrecedence(t *testing.T) {
	dir := t.TempDir()
	cwdFile := filepath.Join(dir, ".env")
	etcFile := filepath.Join(dir, "permitboard.env")

	if err := os.WriteFile(cwdFile, []byte("PERMITBOARD_PORT=9100\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	etc := "PERMITBOARD_API_URL=http://from-etc:3000\nPERMITBOARD_PORT=9200\nPERMITBOARD_KIOSK=true\n"
	if err := os.WriteFile(etcFile, []byte(etc), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	os.Clearenv()
	os.Setenv("PERMITBOARD_KIOSK", "false")

	cfg, err := load(cwdFile, etcFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIURL != "http://from-etc:3000" {
		t.Errorf("expected API URL from lowest file, got %s", cfg.APIURL)
	}
	if cfg.Port != 9100 {
		t.Errorf("expected .env to beat the /etc file, got port %d", cfg.Port)
	}
	if cfg.Kiosk {
		t.Error("expected OS env to beat both files")
	}
}

func TestLoad_SiteFileErrorsSurface(t *testing.T) {
	os.Clearenv()
	os.Setenv("PERMITBOARD_API_URL", "http://permits.local:3000")
	os.Setenv("PERMITBOARD_SITE_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := load(); err == nil {
		t.Fatal("expected error for missing site file")
	}
}
