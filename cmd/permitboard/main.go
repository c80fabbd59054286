package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "status":
		runStatus()
	case "open":
		runOpen()
	case "close":
		runClose()
	case "threshold":
		runThreshold()
	case "version", "--version", "-v":
		fmt.Printf("permitboard %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: permitboard <command> [flags]

Commands:
  serve       Run the dashboard (operator or kiosk, per PERMITBOARD_KIOSK)
  status      Print the current board once
  open        Open a high-risk job (logs in, opens, logs out)
  close       Close a job by id
  threshold   Set the overdue threshold in minutes
  version     Print the version

Login flags for open/close/threshold:
  --user NAME       log in as NAME
  --admin           log in with the admin name
  --pin-stdin       read the PIN from stdin instead of a terminal

Configuration is read from the environment, ./.env and
/etc/permitboard/permitboard.env. PERMITBOARD_API_URL is required.`)
}
