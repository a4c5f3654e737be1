// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the loom command line: argument parsing and the
// non-TUI command handlers. Handlers receive their dependencies explicitly
// from main.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/loomchat/loom-tui/internal/api"
	"github.com/loomchat/loom-tui/internal/chat"
	"github.com/loomchat/loom-tui/internal/config"
	"github.com/loomchat/loom-tui/internal/credstore"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdSessions
	CmdChat
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Server  string // --server URL override
	Quiet   bool
	Session string // --session ID for chat

	// Command-specific
	Subcommand string
	Target     string

	// Raw args remaining after flag parsing
	Raw []string
}

// Deps carries the wired application state shared by command handlers.
type Deps struct {
	Config *config.Config
	Store  *credstore.Store
	Client *api.Client
	Coord  *chat.Coordinator
}

const usageText = `loom - terminal client for a remote text-generation service

Usage:
  loom                       Start TUI (default)
  loom login                 Sign in and store the access token
  loom logout                Clear the stored credential
  loom sessions [list]       List sessions
  loom sessions new          Create a session
  loom sessions delete <id>  Delete a session
  loom chat                  Interactive chat REPL
  loom status                Show service metrics
  loom version               Show version
  loom help                  Show this help

Chat Commands (during chat):
  /sessions           List sessions
  /new                Create and switch to a new session
  /switch <id>        Switch to a session
  /quit, /q           Exit chat
  Ctrl+C              Cancel current generation
  Ctrl+D              Exit chat

Global Flags:
  --server URL        Override the configured server URL
  --session ID        Select a session (chat command)
  -q, --quiet         Minimal output

Environment:
  LOOM_SERVER_URL     Override the configured server URL
  LOOM_TOKEN          Use a fixed access token instead of the stored one

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("loom version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	remaining, parsed := parseGlobalFlags(os.Args[1:])

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "login":
		return CmdLogin, parsed

	case "logout":
		return CmdLogout, parsed

	case "session", "sessions":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
		}
		if len(remaining) > 1 {
			parsed.Target = remaining[1]
		}
		return CmdSessions, parsed

	case "chat":
		return CmdChat, parsed

	case "status", "s":
		return CmdStatus, parsed

	case "version", "-v", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			parsed.Quiet = true
		case arg == "--server":
			if i+1 < len(args) {
				i++
				parsed.Server = args[i]
			}
		case strings.HasPrefix(arg, "--server="):
			parsed.Server = strings.TrimPrefix(arg, "--server=")
		case arg == "--session":
			if i+1 < len(args) {
				i++
				parsed.Session = args[i]
			}
		case strings.HasPrefix(arg, "--session="):
			parsed.Session = strings.TrimPrefix(arg, "--session=")
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsed
}
