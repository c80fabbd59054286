package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/siteops/permitboard/internal/logger"
	"github.com/siteops/permitboard/internal/view"
)

func runStatus() {
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
	asJSON := statusCmd.Bool("json", false, "print the board as JSON")
	kiosk := statusCmd.Bool("kiosk", false, "render as the kiosk display sees it")
	statusCmd.Parse(os.Args[2:])

	logger.SetOutput(os.Stderr)
	cfg := loadConfigOrExit()
	svc := newService(cfg, *kiosk)

	if err := svc.Refresh(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch status: %v\n", err)
		fmt.Fprintf(os.Stderr, "Is the permit backend at %s running?\n", cfg.APIURL)
		os.Exit(1)
	}

	b := svc.Board(*kiosk, nil)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode board: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := view.WriteText(os.Stdout, b); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print board: %v\n", err)
		os.Exit(1)
	}
}
