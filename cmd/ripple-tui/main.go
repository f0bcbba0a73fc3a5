package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ripple-social/client/internal/api"
	"github.com/ripple-social/client/internal/app"
	"github.com/ripple-social/client/internal/channel"
	"github.com/ripple-social/client/internal/config"
	"github.com/ripple-social/client/internal/notify"
	"github.com/ripple-social/client/internal/session"
	"github.com/ripple-social/client/internal/vault"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	v := vault.New(vault.OpenFileKV(""))
	client := api.NewClient(cfg.Server.BaseURL, v.AccessToken)
	ctrl := session.New(client, v)
	ch := channel.New(cfg.Server.WSURL, v.AccessToken, channel.DialConfig{
		BaseDelay:   cfg.Channel.DialBaseDelay,
		MaxDelay:    cfg.Channel.DialMaxDelay,
		MaxAttempts: cfg.Channel.DialMaxAttempts,
	})
	sync := notify.NewSynchronizer(client, notify.NewCache(""))

	m := app.New(ctrl, ch, sync, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ch.Disconnect()
}

func defaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ripple", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "ripple", "config.yaml")
}
