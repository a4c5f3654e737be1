// loom - a terminal client for a remote text-generation service.
//
// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomchat/loom-tui/internal/api"
	"github.com/loomchat/loom-tui/internal/chat"
	"github.com/loomchat/loom-tui/internal/cli"
	"github.com/loomchat/loom-tui/internal/config"
	"github.com/loomchat/loom-tui/internal/credstore"
	"github.com/loomchat/loom-tui/internal/monitor"
	uichat "github.com/loomchat/loom-tui/internal/ui/chat"
	"github.com/loomchat/loom-tui/internal/ui/styles"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
		return
	case cli.CmdHelp:
		cli.PrintUsage()
		return
	}

	deps, err := buildDeps(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer deps.Store.Close()
	defer deps.Coord.Close()

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(deps)
	case cli.CmdLogin:
		err = cli.HandleLogin(deps, args)
	case cli.CmdLogout:
		err = cli.HandleLogout(deps, args)
	case cli.CmdSessions:
		err = cli.HandleSessions(deps, args)
	case cli.CmdChat:
		err = cli.HandleChat(deps, args)
	case cli.CmdStatus:
		err = cli.HandleStatus(deps, args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildDeps loads configuration and wires the shared application state.
func buildDeps(args cli.Args) (cli.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return cli.Deps{}, fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnvOverrides()
	if args.Server != "" {
		cfg.Server.BaseURL = args.Server
	}
	if err := cfg.Validate(); err != nil {
		return cli.Deps{}, fmt.Errorf("invalid config: %w", err)
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return cli.Deps{}, err
	}
	store, err := credstore.Open(filepath.Join(dir, "loom.db"))
	if err != nil {
		return cli.Deps{}, fmt.Errorf("opening credential store: %w", err)
	}

	var tokens api.TokenSource = store
	if t := os.Getenv("LOOM_TOKEN"); t != "" {
		tokens = api.StaticToken(t)
	}

	client := api.NewClient(cfg.Server.BaseURL, tokens).
		WithTimeout(time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second)

	return cli.Deps{
		Config: cfg,
		Store:  store,
		Client: client,
		Coord:  chat.New(client, store),
	}, nil
}

// runTUI starts the Bubble Tea interface with the metrics poller and the
// config file watcher running alongside it.
func runTUI(deps cli.Deps) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	theme := styles.New(deps.Config.UI.Theme)
	poll := time.Duration(deps.Config.Monitor.PollIntervalSecs) * time.Second
	snapshots := monitor.New(deps.Client, poll).Run(ctx)

	_, loggedIn := deps.Store.Credential()
	model := uichat.New(deps.Coord, theme, snapshots, loggedIn)

	program := tea.NewProgram(model, tea.WithAltScreen())

	if path, err := config.ConfigPath(); err == nil {
		if reloads, err := config.Watch(ctx, path); err == nil {
			go func() {
				for cfg := range reloads {
					program.Send(uichat.ConfigReloadedMsg{Config: cfg})
				}
			}()
		}
	}

	_, err := program.Run()
	return err
}
