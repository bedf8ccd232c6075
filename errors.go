/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnknownPlayer    = errors.New("player not in roster")
	ErrConflictingPhase = errors.New("conflicting phase flags")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyRunning   = errors.New("connection manager already running")
	ErrClosed           = errors.New("closed")
	ErrRemoved          = errors.New("removed from the game by the organizer")

	ErrEmptyName        = errors.New("please, enter a name")
	ErrNameTooLong      = errors.New("name must be at most 64 characters")
	ErrEmptyWord        = errors.New("please fill all the words")
	ErrWordCount        = errors.New("wrong number of words")
	ErrUnknownDict      = errors.New("unknown dictionary")
	ErrUnknownMode      = errors.New("unknown game mode")
	ErrRoundSeconds     = errors.New("round length must be between 5 and 180 seconds")
	ErrNotOwner         = errors.New("only the game owner can do that")
	ErrNotAllowed       = errors.New("not allowed right now")
	ErrPlayersNotReady  = errors.New("not every player is ready")
	ErrPairsIncomplete  = errors.New("pairs are incomplete")
	ErrOddPlayers       = errors.New("pair mode is possible only with even number of players")
	ErrActionCoolingOff = errors.New("buttons are disabled for a moment")
)

// TransportError wraps a dial, read or write failure on the socket.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means client and server disagree about the protocol, or the
// server sent state that breaks a roster invariant. It is never recovered
// locally.
type ProtocolError struct {
	Event string
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("protocol: %v", e.Err)
	}

	return fmt.Sprintf("protocol: event %q: %v", e.Event, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ValidationError is bad local input caught before anything is sent.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func protocolError(event string, err error) error {
	return &ProtocolError{Event: event, Err: err}
}

func newLogger(cfg *Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: logDate,
		NoColor:    true,
	}).Level(level).With().Timestamp().Logger()
}

// logError routes an error to the level its kind deserves.
func logError(log zerolog.Logger, err error, msg string) {
	var (
		perr *ProtocolError
		terr *TransportError
		verr *ValidationError
	)

	switch {
	case errors.As(err, &perr):
		log.Error().Err(err).Str("event", perr.Event).Msg(msg)
	case errors.As(err, &terr):
		log.Warn().Err(err).Str("op", terr.Op).Msg(msg)
	case errors.As(err, &verr):
		log.Info().Err(err).Msg(msg)
	default:
		log.Error().Err(err).Msg(msg)
	}
}
