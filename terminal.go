/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

var errQuit = errors.New("quit")

// player is what the terminal needs from a session.
type player interface {
	ConfirmRound(ctx context.Context) error
	Guessed(ctx context.Context) error
	CompleteRound(ctx context.Context, result WordResult) error
	ReplayPreviousRound(ctx context.Context) error
	PutWords(ctx context.Context, words []string) error
	PutDict(ctx context.Context, name string) error
	SetObserver(ctx context.Context, observer bool) error
	StartGame(ctx context.Context, mode GameMode, seconds int, pairs [][2]string) error
	RemovePlayer(ctx context.Context, id string) error
	View() View
	Updates() <-chan View
}

type command struct {
	name string
	args []string
	rest string
}

func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, false
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	return command{
		name: strings.ToLower(name),
		args: strings.Fields(rest),
		rest: rest,
	}, true
}

// splitWords accepts words separated by commas or newlines.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	})
}

func parseMode(s string) (GameMode, bool) {
	switch strings.ToLower(s) {
	case "circle":
		return ModeCircle, true
	case "random", "random-pairs", "random_pairs":
		return ModeRandomPairs, true
	case "assigned", "assigned-pairs", "assigned_pairs":
		return ModeAssignedPairs, true
	}

	return "", false
}

// resolvePlayer maps a name or identifier onto a roster identifier.
func resolvePlayer(v View, ref string) (string, error) {
	var id string

	for _, p := range slices.Concat(v.Players, v.Observers) {
		if p.ID == ref {
			return p.ID, nil
		}
		if strings.EqualFold(p.Name, ref) {
			if id != "" {
				return "", invalid("player", fmt.Errorf("name %q is ambiguous", ref))
			}
			id = p.ID
		}
	}
	if id == "" {
		return "", invalid("player", fmt.Errorf("%w: %q", ErrUnknownPlayer, ref))
	}

	return id, nil
}

type Terminal struct {
	game player
	in   io.Reader
	out  io.Writer
	log  zerolog.Logger
}

func newTerminal(game player, in io.Reader, out io.Writer, log zerolog.Logger) *Terminal {
	return &Terminal{game: game, in: in, out: out, log: log}
}

// Run echoes state changes and executes commands until ctx ends or the
// user quits. Reaching the end of input only stops reading.
func (t *Terminal) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-t.game.Updates():
			if s := summarize(v); s != last {
				last = s
				fmt.Fprintln(t.out, s)
			}
		case line, ok := <-lines:
			if !ok {
				lines = nil

				continue
			}

			cmd, ok := parseCommand(line)
			if !ok {
				continue
			}

			t.log.Debug().Str("command", cmd.name).Msg("TERM: Command")

			err := t.execute(ctx, cmd)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case err != nil:
				fmt.Fprintf(t.out, "error: %v\n", err)
			}
		}
	}
}

func (t *Terminal) execute(ctx context.Context, cmd command) error {
	switch cmd.name {
	case "ready", "confirm":
		return t.game.ConfirmRound(ctx)
	case "guessed", "g":
		return t.game.Guessed(ctx)
	case "error":
		return t.game.CompleteRound(ctx, ResultError)
	case "next", "skip":
		return t.game.CompleteRound(ctx, ResultNotGuessed)
	case "replay":
		return t.game.ReplayPreviousRound(ctx)
	case "words":
		return t.game.PutWords(ctx, splitWords(cmd.rest))
	case "dict":
		if len(cmd.args) != 1 {
			return invalid("dictionary", fmt.Errorf("usage: dict %s", strings.Join(dictionaries, "|")))
		}
		return t.game.PutDict(ctx, cmd.args[0])
	case "observer":
		return t.observer(ctx, cmd)
	case "start":
		return t.start(ctx, cmd)
	case "remove", "kick":
		if cmd.rest == "" {
			return invalid("player", errors.New("usage: remove NAME|ID"))
		}
		id, err := resolvePlayer(t.game.View(), cmd.rest)
		if err != nil {
			return err
		}
		return t.game.RemovePlayer(ctx, id)
	case "link":
		return t.link()
	case "state":
		fmt.Fprintln(t.out, describe(t.game.View()))
		return nil
	case "help":
		fmt.Fprintln(t.out, help)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd.name)
	}
}

func (t *Terminal) observer(ctx context.Context, cmd command) error {
	if len(cmd.args) != 1 {
		return invalid("observer", errors.New("usage: observer on|off"))
	}

	switch strings.ToLower(cmd.args[0]) {
	case "on", "yes", "true":
		return t.game.SetObserver(ctx, true)
	case "off", "no", "false":
		return t.game.SetObserver(ctx, false)
	default:
		return invalid("observer", errors.New("usage: observer on|off"))
	}
}

// start handles "start [MODE] [SECONDS] [A:B ...]".
func (t *Terminal) start(ctx context.Context, cmd command) error {
	v := t.game.View()

	mode := ModeCircle
	seconds := v.SecondsPerRound
	if seconds == 0 {
		seconds = defaultSecondsPerRound
	}
	var pairs [][2]string

	for _, arg := range cmd.args {
		if m, ok := parseMode(arg); ok {
			mode = m

			continue
		}
		if n, err := strconv.Atoi(arg); err == nil {
			seconds = n

			continue
		}

		a, b, ok := strings.Cut(arg, ":")
		if !ok {
			return invalid("start", fmt.Errorf("unrecognized argument %q", arg))
		}
		first, err := resolvePlayer(v, a)
		if err != nil {
			return err
		}
		second, err := resolvePlayer(v, b)
		if err != nil {
			return err
		}
		pairs = append(pairs, [2]string{first, second})
	}

	return t.game.StartGame(ctx, mode, seconds, pairs)
}

func (t *Terminal) link() error {
	v := t.game.View()
	if v.GameID == "" {
		return invalid("link", errors.New("no game yet"))
	}

	target := v.GameLink
	if target == "" {
		fmt.Fprintf(t.out, "game id: %s\n", v.GameID)

		return nil
	}

	q, err := qrcode.New(target, qrcode.Medium)
	if err != nil {
		return err
	}

	fmt.Fprintln(t.out, target)
	fmt.Fprint(t.out, q.ToSmallString(false))

	return nil
}

const help = `commands:
  ready                       confirm you are ready for your round
  guessed                     the word was guessed
  error                       report a rule violation and end the round
  next | skip                 end the round without guessing
  replay                      replay the previous round (owner)
  words A, B, ...             put your words in the hat
  dict simple|medium|hard     fill the hat from a dictionary (owner)
  observer on|off             watch instead of playing (owner)
  start [circle|random|assigned] [SECONDS] [A:B ...]
  remove NAME|ID              remove a player (owner)
  link                        show the game link
  state                       show players and scores
  quit`

// legal lists the commands the view allows right now.
func legal(v View) []string {
	a := v.Allowed

	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}

	add(a.WordsForm == FormTyped, "words")
	add(a.WordsForm == FormDict, "dict")
	add(a.ToggleObserver, "observer")
	add(a.StartGame, "start")
	add(a.RemovePlayers, "remove")
	add(a.Confirm, "ready")
	add(a.Guessed, "guessed")
	add(a.ReportError, "error")
	add(a.SkipRound, "skip")
	add(a.NextRound, "next")
	add(a.Replay, "replay")

	return out
}

// summarize renders a view as one status line.
func summarize(v View) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s]", v.Connection)
	if v.GameID != "" {
		fmt.Fprintf(&b, " game %s", v.GameID)
	}
	fmt.Fprintf(&b, " | %s", v.Phase)

	switch v.Phase {
	case PhaseTypingWords:
		if v.Typing == TypingNeedsWords {
			fmt.Fprintf(&b, " | put %d words in the hat", v.WordsPerPlayer)
		} else {
			b.WriteString(" | waiting for others")
		}
		if v.Allowed.StartBlocker != "" {
			fmt.Fprintf(&b, " (%s)", v.Allowed.StartBlocker)
		}
	case PhasePlaying:
		fmt.Fprintf(&b, " | round %d", v.RoundNumber)
		if v.Explainer != nil && v.Guesser != nil {
			fmt.Fprintf(&b, " %s -> %s", v.Explainer.Name, v.Guesser.Name)
		}
		if v.Round != RoundNone {
			fmt.Fprintf(&b, " %s", v.Round)
		}
		if v.Round == RoundActive {
			fmt.Fprintf(&b, " %ds", v.SecondsLeft)
		}
		if v.Word != "" {
			fmt.Fprintf(&b, " | word: %s", v.Word)
		}
		fmt.Fprintf(&b, " | hat %d/%d", v.CurrentWordsInHat, v.InitialWordsInHat)
	}

	if actions := legal(v); len(actions) > 0 {
		fmt.Fprintf(&b, " | %s", strings.Join(actions, ", "))
		if v.Allowed.Disabled {
			b.WriteString(" (wait)")
		}
	}

	return b.String()
}

// describe renders the roster and scores.
func describe(v View) string {
	var b strings.Builder

	b.WriteString(summarize(v))
	ended := v.Phase == PhaseEnded
	if ended && len(v.Players) > 0 {
		fmt.Fprintf(&b, "\n  %-20s %15s  %15s  %15s", "", "total", "circle", "epoch")
	}
	for _, p := range v.Players {
		if ended {
			fmt.Fprintf(&b, "\n  %-20s %7d / %-5d  %7d / %-5d  %7d / %-5d", tag(v, p),
				p.GuessedTotal, p.ExplainedTotal,
				p.GuessedByCircle, p.ExplainedByCircle,
				p.GuessedByEpoch, p.ExplainedByEpoch)

			continue
		}
		fmt.Fprintf(&b, "\n  %-20s guessed %3d  explained %3d", tag(v, p), p.GuessedTotal, p.ExplainedTotal)
	}
	for _, p := range v.Observers {
		fmt.Fprintf(&b, "\n  %-20s observer", tag(v, p))
	}

	return b.String()
}

func tag(v View, p Player) string {
	name := p.Name
	if p.Owner {
		name += "*"
	}
	if p.ID != "" && p.ID == v.Me.ID {
		name += " (you)"
	}
	if v.Phase == PhaseTypingWords && p.PutWordsInHat {
		name += " +"
	}

	return name
}
