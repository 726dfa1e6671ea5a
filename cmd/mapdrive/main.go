package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "mapdrive"
)

const usage = `usage:
  mapdrive [configDir]                      run a terminal session
  mapdrive route <lng,lat> <lng,lat> [dir]  compute a route and print it as JSON
  mapdrive version                          print the version`

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "version":
			fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
			return
		case "route":
			if err := runRoute(context.Background(), os.Stdout, os.Stderr, args[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "route: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			fmt.Println(usage)
			return
		}
	}

	configDir := "."
	if len(args) > 0 {
		configDir = args[0]
	}

	a, err := newApp(configDir, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	runErr := runTerminal(a)
	if err := a.close(); err != nil {
		a.log.Error("Error during shutdown", "error", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", runErr)
		os.Exit(1)
	}
}
