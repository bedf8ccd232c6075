/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const removedNotice = "You were removed from the game by the organizer"

// Play runs one session with the terminal attached, plus the status page
// when requested.
func Play(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger(cfg, os.Stderr)

	log.Info().Msgf("START: hat v%s", releaseVersion)

	ids, err := openIdentity(cfg.identityFile)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}

	opts, err := resolveOptions(cfg, ids)
	if err != nil {
		return err
	}

	client, err := newClient(opts, ids, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.status {
		go func() {
			if err := ServeStatus(ctx, cfg, client, log); err != nil {
				log.Warn().Err(err).Msg("SERVE: Shutdown failed")
			}
		}()
	}

	go func() {
		_ = newTerminal(client, in, out, log).Run(ctx)
		cancel()
	}()

	err = client.Run(ctx)
	if errors.Is(err, ErrRemoved) {
		fmt.Fprintln(out, removedNotice)

		return nil
	}

	return err
}

// resolveOptions fills in what the flags left out from persisted identity.
func resolveOptions(cfg *Config, ids Identity) (clientOptions, error) {
	mode, err := cfg.mode()
	if err != nil {
		return clientOptions{}, err
	}

	name := cfg.name
	if name == "" {
		name, _ = ids.Get(keyPlayerName)
	}

	gameID := cfg.gameID()
	if cfg.resume {
		id, ok := ids.Get(keyGameID)
		if !ok {
			return clientOptions{}, errors.New("no game to resume")
		}
		gameID = id
	}

	return clientOptions{
		server:         cfg.server,
		name:           name,
		gameID:         gameID,
		wordsPerPlayer: cfg.wordsPerPlayer,
		wordsMode:      mode,
		observer:       cfg.observer,
		webURL:         cfg.webURL,
		identityTTL:    cfg.identityTTL,
	}, nil
}
