package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/siteops/permitboard/internal/dashboard"
	"github.com/siteops/permitboard/internal/logger"
	"github.com/siteops/permitboard/internal/view"
)

func runServe() {
	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	logLevel := serveCmd.String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	serveCmd.Parse(os.Args[2:])

	logger.Init()
	if *logLevel != "" {
		logger.SetLevel(*logLevel)
	}
	cfg := loadConfigOrExit()

	logger.Infof("Main", "runServe", "permitboard %s starting with config:", version)
	logger.Infof("Main", "runServe", "  API URL: %s", cfg.APIURL)
	logger.Infof("Main", "runServe", "  Listen: %s", cfg.ListenAddr())
	logger.Infof("Main", "runServe", "  Kiosk: %v", cfg.Kiosk)
	logger.Infof("Main", "runServe", "  Poll/Tick: %v/%v", cfg.PollInterval, cfg.TickInterval)
	logger.Infof("Main", "runServe", "  Request timeout: %v", cfg.RequestTimeout())
	logger.Infof("Main", "runServe", "  Departments: %v", cfg.Site.Departments)
	if len(cfg.AllowedIPs) > 0 {
		logger.Infof("Main", "runServe", "  Allowed IPs: %v", cfg.AllowedIPs)
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load templates: %v\n", err)
		os.Exit(1)
	}

	server, err := dashboard.New(cfg, newService(cfg, cfg.Kiosk), renderer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
