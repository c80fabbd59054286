package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/siteops/permitboard/internal/board"
	"github.com/siteops/permitboard/internal/cli"
	"github.com/siteops/permitboard/internal/config"
	"github.com/siteops/permitboard/internal/logger"
	"github.com/siteops/permitboard/internal/permitclient"
	"github.com/siteops/permitboard/internal/session"
	"github.com/siteops/permitboard/internal/view"
)

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newService(cfg *config.Config, kiosk bool) *board.Service {
	client := permitclient.NewClient(cfg.APIURL, cfg.RequestTimeout())
	return board.NewService(client, board.Options{
		View: view.Options{
			Departments: cfg.Site.Departments,
			RiskLabels:  cfg.Site.RiskLabels,
			Location:    cfg.Site.Location,
			Kiosk:       kiosk,
		},
		Users:     cfg.Site.Users,
		AdminName: cfg.Site.AdminName,
	})
}

// loginFlags are shared by every command that needs a session.
type loginFlags struct {
	user     *string
	admin    *bool
	pinStdin *bool
}

func addLoginFlags(fs *flag.FlagSet) loginFlags {
	return loginFlags{
		user:     fs.String("user", "", "user name to log in as"),
		admin:    fs.Bool("admin", false, "log in with the configured admin name"),
		pinStdin: fs.Bool("pin-stdin", false, "read the PIN from stdin"),
	}
}

// actionSession runs fn between a CLI login and logout. Logs go to stderr
// so stdout only carries results.
func actionSession(name string, lf loginFlags, fn func(ctx context.Context, svc *board.Service) error) {
	logger.SetOutput(os.Stderr)
	cfg := loadConfigOrExit()

	prompter := cli.NewPrompter()
	creds, err := prompter.Identity(*lf.user, *lf.admin, cfg.Site.AdminName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	pin, err := prompter.PIN(*lf.pinStdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	creds.PIN = pin

	ctx := context.Background()
	svc := newService(cfg, false)
	if err := svc.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reach backend: %v\n", err)
		os.Exit(1)
	}

	if err := svc.Login(ctx, creds); err != nil {
		msg := err.Error()
		if p := svc.Controller().Prompt(); p != nil && p.Error != "" {
			msg = p.Error
		}
		fmt.Fprintf(os.Stderr, "Login failed: %s\n", msg)
		os.Exit(1)
	}
	defer svc.Logout(ctx)

	err = fn(ctx, svc)
	for _, n := range svc.Controller().DrainNotices() {
		fmt.Println(n)
	}
	if err != nil {
		var vErr *session.ValidationError
		if !errors.As(err, &vErr) {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", name, err)
		}
		svc.Logout(ctx)
		os.Exit(1)
	}
}
