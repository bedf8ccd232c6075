/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"
)

func TestResolveOptions(t *testing.T) {
	ids := newMemoryIdentity()
	_ = ids.Set(keyPlayerName, "Alice", time.Hour)
	_ = ids.Set(keyGameID, "g9", time.Hour)

	cfg := validConfig()
	cfg.game = "https://hat.example.com/game/g1"
	cfg.wordsMode = "dict"

	opts, err := resolveOptions(cfg, ids)
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	if opts.name != "Alice" || opts.gameID != "g1" || opts.wordsMode != WordsFromDict {
		t.Fatalf("opts = %+v", opts)
	}

	cfg = validConfig()
	cfg.name = "Bob"
	cfg.resume = true

	opts, err = resolveOptions(cfg, ids)
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	if opts.name != "Bob" || opts.gameID != "g9" {
		t.Fatalf("opts = %+v", opts)
	}

	_ = ids.Delete(keyGameID)
	if _, err := resolveOptions(cfg, ids); err == nil {
		t.Fatal("resume without a saved game succeeded")
	}
}
