/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		bind:           "127.0.0.1",
		identityTTL:    defaultIdentityTTL,
		port:           8080,
		server:         "ws://localhost:8080",
		wordsMode:      "players",
		wordsPerPlayer: defaultWordsPerPlayer,
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"too few words", func(c *Config) { c.wordsPerPlayer = 1 }, "invalid words per player"},
		{"too many words", func(c *Config) { c.wordsPerPlayer = 51 }, "invalid words per player"},
		{"dictionary mode", func(c *Config) { c.wordsMode = "DICT" }, ""},
		{"unknown mode", func(c *Config) { c.wordsMode = "both" }, "invalid words mode"},
		{"game and resume", func(c *Config) { c.game, c.resume = "g1", true }, "cannot be used together"},
		{"zero ttl", func(c *Config) { c.identityTTL = 0 }, "invalid identity ttl"},
		{"bad server", func(c *Config) { c.server = "ftp://host" }, "invalid server url"},
		{"https server", func(c *Config) { c.server = "https://hat.example.com" }, ""},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, "--tls-cert and --tls-key"},
		{"bad web url", func(c *Config) { c.webURL = "not a url" }, "invalid web url"},
		{"web url", func(c *Config) { c.webURL = "https://hat.example.com" }, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.validate()
			switch {
			case tc.want == "" && err != nil:
				t.Fatalf("validate: %v", err)
			case tc.want != "" && (err == nil || !strings.Contains(err.Error(), tc.want)):
				t.Fatalf("validate = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	if got := cfg.scheme(); got != "http" {
		t.Fatalf("scheme = %q", got)
	}

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	if got := cfg.scheme(); got != "https" {
		t.Fatalf("scheme with tls = %q", got)
	}
}

func TestConfigGameID(t *testing.T) {
	cases := map[string]string{
		"":                                    "",
		"abc123":                              "abc123",
		"  abc123 ":                           "abc123",
		"https://hat.example.com/game/abc123": "abc123",
		"hat.example.com/game/abc123/":        "abc123",
	}

	for in, want := range cases {
		cfg := &Config{game: in}
		if got := cfg.gameID(); got != want {
			t.Errorf("gameID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewCmdReadsEnvironment(t *testing.T) {
	t.Setenv("HAT_WORDS_PER_PLAYER", "8")
	t.Setenv("HAT_SERVER", "wss://hat.example.com")
	t.Setenv("HAT_IDENTITY_TTL", "24h")
	t.Setenv("HAT_OBSERVER", "true")

	cfg := &Config{}
	cmd := newCmd(cfg)

	if cfg.wordsPerPlayer != 8 {
		t.Errorf("wordsPerPlayer = %d, want 8", cfg.wordsPerPlayer)
	}
	if cfg.server != "wss://hat.example.com" {
		t.Errorf("server = %q", cfg.server)
	}
	if cfg.identityTTL != 24*time.Hour {
		t.Errorf("identityTTL = %s", cfg.identityTTL)
	}
	if !cfg.observer {
		t.Error("observer not set from the environment")
	}

	if err := cmd.ParseFlags([]string{"-w", "10", "--words_mode", "dict"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if cfg.wordsPerPlayer != 10 {
		t.Errorf("wordsPerPlayer = %d, want the flag to win", cfg.wordsPerPlayer)
	}
	if cfg.wordsMode != "dict" {
		t.Errorf("wordsMode = %q, want the normalized flag to apply", cfg.wordsMode)
	}
}

func TestNewCmdDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)

	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if mode, _ := cfg.mode(); mode != WordsFromPlayers {
		t.Errorf("mode = %s", mode)
	}
	if !strings.HasSuffix(cfg.identityFile, ".yaml") {
		t.Errorf("identity file = %q", cfg.identityFile)
	}
}
