package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/siteops/permitboard/internal/board"
	"github.com/siteops/permitboard/internal/cli"
	"github.com/siteops/permitboard/internal/session"
)

func runOpen() {
	openCmd := flag.NewFlagSet("open", flag.ExitOnError)
	risk := openCmd.String("risk", "confined", "risk type: confined or height")
	department := openCmd.String("department", "", "department (required)")
	point := openCmd.String("point", "", "work point (required)")
	control := openCmd.String("control", "", "control measures")
	details := openCmd.String("details", "", "details")
	start := openCmd.String("start", "", "start time HH:MM today (default now)")
	lf := addLoginFlags(openCmd)
	openCmd.Parse(os.Args[2:])

	riskType, err := cli.ParseRisk(*risk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	draft := session.Draft{
		RiskType:   riskType,
		Department: *department,
		Point:      *point,
		Control:    *control,
		Details:    *details,
		StartTime:  *start,
	}
	actionSession("Open", lf, func(ctx context.Context, svc *board.Service) error {
		return svc.OpenJob(ctx, draft)
	})
}

func runClose() {
	closeCmd := flag.NewFlagSet("close", flag.ExitOnError)
	id := closeCmd.String("id", "", "job id (required)")
	lf := addLoginFlags(closeCmd)
	closeCmd.Parse(os.Args[2:])

	jobID, err := cli.ParseCloseID(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	actionSession("Close", lf, func(ctx context.Context, svc *board.Service) error {
		return svc.CloseJob(ctx, jobID)
	})
}

func runThreshold() {
	thresholdCmd := flag.NewFlagSet("threshold", flag.ExitOnError)
	minutes := thresholdCmd.String("minutes", "", "overdue threshold in minutes (required)")
	lf := addLoginFlags(thresholdCmd)
	thresholdCmd.Parse(os.Args[2:])

	n, err := cli.ParseMinutes(*minutes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	actionSession("Threshold", lf, func(ctx context.Context, svc *board.Service) error {
		return svc.SetThreshold(ctx, n)
	})
}
