package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/rules-engine/pkg/actor"
)

type ConsoleConfig struct {
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	PlayerFile string        `env:"PLAYER_FILE"`
	Timeout    time.Duration `env:"CONSOLE_TIMEOUT" envDefault:"30s"`
}

func main() {
	cfg := &ConsoleConfig{}
	if err := env.Parse(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	player, err := loadPlayer(cfg.PlayerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load player: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client, player),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// loadPlayer reads a character from path, or returns a starter hero when path is empty.
func loadPlayer(path string) (*actor.Character, error) {
	if path == "" {
		return defaultPlayer(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var c actor.Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("player in %s has no id", path)
	}
	return &c, nil
}

func defaultPlayer() *actor.Character {
	c := &actor.Character{
		ID:   "hero",
		Name: "Hero",
		Kind: actor.KindPlayer,
		BaseStats: map[string]int{
			actor.StatAttack:  12,
			actor.StatDefense: 8,
			actor.StatSpeed:   10,
		},
		Health:   actor.Resource{Current: 100, Max: 100},
		Mana:     actor.Resource{Current: 50, Max: 50},
		Currency: 100,
	}
	c.RecalculateStats()
	return c
}
