/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	actionCooldown = time.Second
	wsPath         = "/wsapiv1"

	minRoundSeconds = 5
	maxRoundSeconds = 180

	maxNameLength = 64
)

type clientOptions struct {
	server         string
	name           string
	gameID         string
	wordsPerPlayer int
	wordsMode      WordsMode
	observer       bool
	webURL         string
	identityTTL    time.Duration
}

type request struct {
	fn    func() error
	reply chan error
}

// Client is one participant's session. Everything that touches the store
// runs on the goroutine executing Run; the exported methods hand work to it.
type Client struct {
	opts  clientOptions
	log   zerolog.Logger
	ids   Identity
	creds credentials

	conn     *Connector
	out      *Outbox
	dispatch *Dispatcher
	store    *Store
	lobby    lobby

	timer       *Countdown
	ticks       chan tick
	secondsLeft int

	requests chan request
	updates  chan View
	view     atomic.Pointer[View]
	running  atomic.Bool
	done     chan struct{}
	ctx      context.Context

	now           func() time.Time
	cooldownUntil time.Time
	refresh       <-chan time.Time
	removed       bool
}

func newClient(opts clientOptions, ids Identity, log zerolog.Logger) (*Client, error) {
	opts.name = strings.TrimSpace(opts.name)
	if opts.name == "" {
		return nil, invalid("name", ErrEmptyName)
	}
	if utf8.RuneCountInString(opts.name) > maxNameLength {
		return nil, invalid("name", ErrNameTooLong)
	}

	endpoint, err := wsURL(opts.server)
	if err != nil {
		return nil, err
	}

	creds, err := bootstrapIdentity(ids, opts.name, opts.gameID, opts.identityTTL)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}

	c := &Client{
		opts:     opts,
		log:      log,
		ids:      ids,
		creds:    creds,
		lobby:    lobby{mode: ModeCircle},
		timer:    newCountdown(),
		ticks:    make(chan tick, 4),
		requests: make(chan request),
		updates:  make(chan View, 1),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		now:      time.Now,
	}

	c.conn = newConnector(endpoint, handshakeHeader(creds), log)
	c.out = newOutbox(c.conn, log)
	c.store = newStore(Player{Name: opts.name, Observer: opts.observer}, opts.wordsPerPlayer, opts.wordsMode)
	c.dispatch = c.handlers()

	if opts.gameID != "" {
		c.store.SetGameID(opts.gameID)
		c.out.SetGameID(opts.gameID)
	}

	c.publish()

	return c, nil
}

// wsURL maps a server base address onto the websocket endpoint.
func wsURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(server))
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", server, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server url %q: scheme must be ws, wss, http or https", server)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing host", server)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + wsPath

	return u.String(), nil
}

func handshakeHeader(creds credentials) http.Header {
	cookies := []string{
		(&http.Cookie{Name: keyUserID, Value: creds.UserID}).String(),
		(&http.Cookie{Name: keySessionID, Value: creds.SessionID}).String(),
	}

	return http.Header{"Cookie": {strings.Join(cookies, "; ")}}
}

func (c *Client) handlers() *Dispatcher {
	d := newDispatcher()

	on(d, EvUserIDHash, c.onUserIDHash)
	on(d, EvPlayersUpdated, func(data playersUpdatedData) error {
		return c.store.ApplyPlayers(data)
	})
	on(d, EvGameCreated, c.onGameCreated)
	on(d, EvGameUpdated, func(data gameUpdatedData) error {
		return c.store.ApplyGame(data.Game)
	})
	on(d, EvNextWord, func(data nextWordData) error {
		c.store.ApplyNextWord(data.Word)

		return nil
	})
	on(d, EvPlayerRemoved, func(playerRemovedData) error {
		c.evict()

		return nil
	})

	return d
}

func (c *Client) onUserIDHash(data userIDHashData) error {
	if data.UserIDHash == "" {
		return protocolError(string(EvUserIDHash), fmt.Errorf("%w: empty userIdHash", ErrMalformedFrame))
	}

	c.store.SetIdentity(data.UserIDHash)
	c.log.Debug().Str("id", data.UserIDHash).Msg("GAME: Identified")

	return nil
}

func (c *Client) onGameCreated(data gameCreatedData) error {
	if data.GameID == "" {
		return protocolError(string(EvGameCreated), fmt.Errorf("%w: empty gameId", ErrMalformedFrame))
	}

	c.store.SetGameID(data.GameID)
	c.out.SetGameID(data.GameID)

	if err := c.ids.Set(keyGameID, data.GameID, c.opts.identityTTL); err != nil {
		c.log.Warn().Err(err).Msg("GAME: Could not persist game id")
	}

	c.log.Info().Str("game", data.GameID).Str("link", c.GameLink()).Msg("GAME: Created")

	return c.join()
}

func (c *Client) join() error {
	observer, owner := c.store.Me().Observer, false

	return c.out.Send(OutPlayerJoined, joinGameData{
		Player: playerIntro{Name: c.opts.name, Observer: &observer, Owner: &owner},
	})
}

func (c *Client) create() error {
	return c.out.Send(OutGameCreated, createGameData{
		Player: playerIntro{Name: c.opts.name},
		Game:   gameSettings{WordsPerPlayer: c.opts.wordsPerPlayer, WordsMode: c.opts.wordsMode},
	})
}

// onOpened announces this player on a fresh connection. Signals for a
// connection that has already been replaced are ignored.
func (c *Client) onOpened(gen uint64) {
	if gen != c.conn.Generation() {
		c.log.Debug().Uint64("generation", gen).Msg("CONN: Ignoring stale open")

		return
	}

	var err error
	if c.store.GameID != "" {
		c.log.Info().Str("game", c.store.GameID).Msg("GAME: Joining")
		err = c.join()
	} else {
		c.log.Info().Msg("GAME: Creating")
		err = c.create()
	}
	if err != nil {
		logError(c.log, err, "SEND: Could not queue announcement")
	}
}

func (c *Client) evict() {
	if err := c.ids.Delete(keyGameID); err != nil {
		c.log.Warn().Err(err).Msg("GAME: Could not clear game id")
	}

	c.timer.Stop()
	c.secondsLeft = 0
	c.store.Evict()
	c.out.SetGameID("")
	c.removed = true

	c.log.Info().Msg("GAME: Removed by the organizer")
}

func (c *Client) onTick(t tick) {
	if !c.timer.Live(t) {
		return
	}

	if !t.expired {
		c.secondsLeft = t.left

		return
	}

	c.timer.Stop()
	c.secondsLeft = 0
	if c.store.ExpireRound(t.round) {
		c.log.Debug().Int("round", t.round).Msg("GAME: Round time is up")
	}
}

// syncTimer keeps the countdown running exactly while the round is active.
func (c *Client) syncTimer() {
	r := c.store.Round
	active := c.store.Playing && r.Playing && !c.removed

	switch {
	case active && c.timer.Round() != r.Number:
		c.secondsLeft = c.store.SecondsPerRound
		c.timer.Start(c.ctx, r.Number, time.Duration(c.store.SecondsPerRound)*time.Second, c.ticks)
	case !active && c.timer.Round() != noRound:
		c.timer.Stop()
		c.secondsLeft = 0
	}
}

func (c *Client) disabled() bool {
	return c.now().Before(c.cooldownUntil)
}

func (c *Client) startCooldown() {
	c.cooldownUntil = c.now().Add(actionCooldown)
	c.refresh = time.After(actionCooldown)
}

func (c *Client) current() (View, error) {
	return derive(c.store, c.lobby, c.disabled())
}

func (c *Client) publish() {
	v, err := c.current()
	if err != nil {
		logError(c.log, err, "GAME: Inconsistent round")
	}

	v.GameLink = c.GameLink()
	v.SecondsLeft = c.secondsLeft

	c.view.Store(&v)

	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- v:
	default:
	}
}

func (c *Client) settle() {
	c.syncTimer()
	c.publish()
}

// Run drives the session until ctx ends or the organizer removes this
// player, in which case it returns ErrRemoved.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.timer.Stop()

	c.ctx = ctx

	if err := c.conn.Start(ctx); err != nil {
		return err
	}
	defer c.conn.Close()

	go c.out.Run(ctx)

	c.settle()

	for {
		select {
		case <-ctx.Done():
			return nil
		case gen := <-c.conn.Opened():
			c.onOpened(gen)
		case frame := <-c.conn.Frames():
			if err := c.dispatch.Dispatch(frame); err != nil {
				logError(c.log, err, "RECV: Frame rejected")
			}
		case t := <-c.ticks:
			c.onTick(t)
		case req := <-c.requests:
			req.reply <- req.fn()
		case <-c.refresh:
			c.refresh = nil
		}

		c.settle()

		if c.removed {
			return ErrRemoved
		}
	}
}

// do runs fn on the session goroutine and waits for its result.
func (c *Client) do(ctx context.Context, fn func() error) error {
	req := request{fn: fn, reply: make(chan error, 1)}

	select {
	case c.requests <- req:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the latest snapshot. It is safe to call from any goroutine.
func (c *Client) View() View {
	v := *c.view.Load()
	v.Connection = c.conn.State()

	return v
}

// Updates delivers a snapshot after every state change. Only the most recent
// one is kept for slow readers.
func (c *Client) Updates() <-chan View { return c.updates }

func (c *Client) GameLink() string {
	if c.opts.webURL == "" || c.store.GameID == "" {
		return ""
	}

	return strings.TrimSuffix(c.opts.webURL, "/") + "/game/" + url.PathEscape(c.store.GameID)
}

func (c *Client) ConfirmRound(ctx context.Context) error { return c.do(ctx, c.confirmRound) }

func (c *Client) Guessed(ctx context.Context) error { return c.do(ctx, c.guessed) }

func (c *Client) CompleteRound(ctx context.Context, result WordResult) error {
	return c.do(ctx, func() error { return c.completeRound(result) })
}

func (c *Client) ReplayPreviousRound(ctx context.Context) error { return c.do(ctx, c.replay) }

func (c *Client) PutWords(ctx context.Context, words []string) error {
	return c.do(ctx, func() error { return c.putWords(words) })
}

func (c *Client) PutDict(ctx context.Context, name string) error {
	return c.do(ctx, func() error { return c.putDict(name) })
}

func (c *Client) SetObserver(ctx context.Context, observer bool) error {
	return c.do(ctx, func() error { return c.setObserver(observer) })
}

func (c *Client) StartGame(ctx context.Context, mode GameMode, seconds int, pairs [][2]string) error {
	return c.do(ctx, func() error { return c.startGame(mode, seconds, pairs) })
}

func (c *Client) RemovePlayer(ctx context.Context, id string) error {
	return c.do(ctx, func() error { return c.removePlayer(id) })
}

// roundAction returns the current view if round buttons may be pressed.
func (c *Client) roundAction() (View, error) {
	v, err := c.current()
	if err != nil {
		return v, err
	}
	if v.Phase != PhasePlaying {
		return v, invalid("round", ErrNotAllowed)
	}
	if v.Allowed.Disabled {
		return v, invalid("round", ErrActionCoolingOff)
	}

	return v, nil
}

func (c *Client) confirmRound() error {
	v, err := c.roundAction()
	if err != nil {
		return err
	}
	if !v.Allowed.Confirm {
		return invalid("round", ErrNotAllowed)
	}

	return c.out.Send(OutRoundConfirmed, roundNumberData{RoundNumber: c.store.Round.Number})
}

// guessed reports the word as explained. Once time is up it also ends the
// round.
func (c *Client) guessed() error {
	v, err := c.roundAction()
	if err != nil {
		return err
	}
	if !v.Allowed.Guessed {
		return invalid("round", ErrNotAllowed)
	}
	if v.Allowed.GuessedCompletes {
		return c.completeRound(ResultGuessed)
	}

	c.startCooldown()

	return c.out.Send(OutWordGuessed, emptyData{})
}

func (c *Client) completeRound(result WordResult) error {
	v, err := c.roundAction()
	if err != nil {
		return err
	}

	a := v.Allowed
	switch result {
	case ResultGuessed:
		if !a.Guessed || !a.GuessedCompletes {
			return invalid("round", ErrNotAllowed)
		}
	case ResultError:
		if !a.ReportError {
			return invalid("round", ErrNotAllowed)
		}
	case ResultNotGuessed:
		if !a.SkipRound && !a.NextRound {
			return invalid("round", ErrNotAllowed)
		}
	default:
		return invalid("result", fmt.Errorf("%w: %q", ErrNotAllowed, result))
	}

	c.startCooldown()
	c.store.CompleteRound()

	return c.out.Send(OutRoundComplete, roundCompleteData{LastWordResult: result})
}

func (c *Client) replay() error {
	v, err := c.roundAction()
	if err != nil {
		return err
	}
	if !c.store.Me().Owner {
		return invalid("round", ErrNotOwner)
	}
	if !v.Allowed.Replay {
		return invalid("round", ErrNotAllowed)
	}

	return c.out.Send(OutReplayPreviousRound, roundNumberData{RoundNumber: c.store.Round.Number})
}

func (c *Client) typingAction() (View, error) {
	v, err := c.current()
	if err != nil {
		return v, err
	}
	if v.Phase != PhaseTypingWords {
		return v, invalid("game", ErrNotAllowed)
	}

	return v, nil
}

func (c *Client) putWords(words []string) error {
	v, err := c.typingAction()
	if err != nil {
		return err
	}
	if v.Allowed.WordsForm != FormTyped {
		return invalid("words", ErrNotAllowed)
	}

	clean := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			return invalid("words", ErrEmptyWord)
		}
		clean = append(clean, w)
	}
	if len(clean) != c.store.WordsPerPlayer {
		return invalid("words", fmt.Errorf("%w: got %d, want %d", ErrWordCount, len(clean), c.store.WordsPerPlayer))
	}

	return c.out.Send(OutPutWordsInHat, putWordsData{Player: c.store.Me(), Words: clean})
}

func (c *Client) putDict(name string) error {
	v, err := c.typingAction()
	if err != nil {
		return err
	}
	if v.Allowed.WordsForm != FormDict {
		return invalid("dictionary", ErrNotAllowed)
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(dictionaries, name) {
		return invalid("dictionary", fmt.Errorf("%w: %q", ErrUnknownDict, name))
	}

	return c.out.Send(OutPutWordsInHat, putWordsData{Player: c.store.Me(), Words: []string{}, Dictionary: &name})
}

func (c *Client) setObserver(observer bool) error {
	v, err := c.typingAction()
	if err != nil {
		return err
	}
	if !v.Me.Owner {
		return invalid("observer", ErrNotOwner)
	}
	if !v.Allowed.ToggleObserver {
		return invalid("observer", ErrNotAllowed)
	}

	c.store.SetObserver(observer)

	return c.out.Send(OutPlayerUpdated, updatePlayerData{Player: observerChange{Observer: observer}})
}

func (c *Client) startGame(mode GameMode, seconds int, pairs [][2]string) error {
	v, err := c.typingAction()
	if err != nil {
		return err
	}
	if !v.Me.Owner {
		return invalid("game", ErrNotOwner)
	}

	switch mode {
	case ModeCircle, ModeRandomPairs, ModeAssignedPairs:
	default:
		return invalid("mode", fmt.Errorf("%w: %q", ErrUnknownMode, mode))
	}
	if seconds < minRoundSeconds || seconds > maxRoundSeconds {
		return invalid("seconds", ErrRoundSeconds)
	}

	if mode != ModeAssignedPairs {
		pairs = nil
	}
	c.lobby = lobby{mode: mode, pairs: pairs}

	if v.Typing != TypingWaiting {
		return invalid("game", ErrPlayersNotReady)
	}
	if err := startReadiness(c.store, c.lobby); err != nil {
		return invalid("game", err)
	}

	return c.out.Send(OutGameStarted, startGameData{
		SecondsPerRound: seconds,
		GameMode:        mode,
		OwnerIsObserver: v.Me.Observer,
		PlayersPairs:    pairs,
	})
}

func (c *Client) removePlayer(id string) error {
	v, err := c.typingAction()
	if err != nil {
		return err
	}
	if !v.Me.Owner {
		return invalid("player", ErrNotOwner)
	}
	if !v.Allowed.RemovePlayers || id == v.Me.ID {
		return invalid("player", ErrNotAllowed)
	}
	if _, ok := c.store.Player(id); !ok {
		return invalid("player", fmt.Errorf("%w: %q", ErrUnknownPlayer, id))
	}

	return c.out.Send(OutRemovePlayer, removePlayerData{PlayerToRemoveID: id})
}
