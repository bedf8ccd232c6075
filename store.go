/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"slices"
)

const (
	defaultSecondsPerRound = 22
	noRound                = -1
)

// Round is the explain/guess turn currently on the table.
type Round struct {
	Number int
	Circle int
	Epoch  int

	ExplainID string
	GuessID   string

	Confirmation bool
	Playing      bool
	Finishing    bool

	// nil until the server says otherwise
	ExplainConfirmed *bool
	GuessConfirmed   *bool

	Word *string
}

// renumber starts a fresh round under number n. Only the seats and the
// circle and epoch counters carry over.
func (r Round) renumber(n int) Round {
	return Round{
		Number:    n,
		Circle:    r.Circle,
		Epoch:     r.Epoch,
		ExplainID: r.ExplainID,
		GuessID:   r.GuessID,
	}
}

// Store is the client's copy of the shared game. Only the session loop
// touches it.
type Store struct {
	GameID      string
	Initialized bool
	Removed     bool

	WordsPerPlayer  int
	WordsMode       WordsMode
	SecondsPerRound int
	OwnerID         string

	TypingWords bool
	Playing     bool
	Ended       bool

	Round Round

	InitialWordsInHat int
	CurrentWordsInHat int

	players        map[string]Player
	playersOrder   []string
	observersOrder []string

	me      Player
	myRound bool
}

func newStore(me Player, wordsPerPlayer int, mode WordsMode) *Store {
	return &Store{
		WordsPerPlayer:  wordsPerPlayer,
		WordsMode:       mode,
		SecondsPerRound: defaultSecondsPerRound,
		Round: Round{
			Number: noRound,
			Circle: noRound,
			Epoch:  noRound,
		},
		players: make(map[string]Player),
		me:      me,
	}
}

func (s *Store) Me() Player { return s.me }

func (s *Store) MyRound() bool { return s.myRound }

// Player looks up a roster record. Callers that cannot continue without it
// must turn a miss into a ProtocolError.
func (s *Store) Player(id string) (Player, bool) {
	p, ok := s.players[id]

	return p, ok
}

func (s *Store) PlayerCount() int { return len(s.players) }

// Players returns the active players in turn order. Order entries without a
// record are skipped.
func (s *Store) Players() []Player {
	return s.resolve(s.playersOrder)
}

func (s *Store) Observers() []Player {
	return s.resolve(s.observersOrder)
}

func (s *Store) PlayersOrder() []string {
	return slices.Clone(s.playersOrder)
}

func (s *Store) ObserversOrder() []string {
	return slices.Clone(s.observersOrder)
}

func (s *Store) resolve(order []string) []Player {
	out := make([]Player, 0, len(order))
	for _, id := range order {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}

	return out
}

func (s *Store) recomputeMyRound() {
	id := s.me.ID
	s.myRound = id != "" && (id == s.Round.ExplainID || id == s.Round.GuessID)
}

// SetIdentity records the identifier the server assigned to this client and
// points "me" at the matching roster record, if there is one.
func (s *Store) SetIdentity(id string) {
	if p, ok := s.players[id]; ok {
		s.me = p
	}
	s.me.ID = id
	s.recomputeMyRound()
}

func (s *Store) SetGameID(id string) {
	s.GameID = id
}

// ApplyPlayers merges a roster update. Records overwrite by identifier; an
// order list, when present, is the new membership and prunes everything
// outside it. Without an order list membership is unchanged.
func (s *Store) ApplyPlayers(d playersUpdatedData) error {
	for _, p := range d.Players {
		if p.ID == "" {
			return protocolError(string(EvPlayersUpdated), errors.New("player record without userIdHash"))
		}
	}

	for _, p := range d.Players {
		s.players[p.ID] = p
		if s.me.ID != "" && p.ID == s.me.ID {
			s.me = p
		}
	}

	if d.PlayersOrder == nil && d.ObserversOrder == nil {
		s.recomputeMyRound()

		return nil
	}

	if d.PlayersOrder != nil {
		s.playersOrder = *d.PlayersOrder
	}
	if d.ObserversOrder != nil {
		s.observersOrder = *d.ObserversOrder
	}
	// Both lists are filtered even when only one arrived, so neither can name
	// a player without a record.
	s.playersOrder = s.known(s.playersOrder)
	s.observersOrder = s.known(s.observersOrder)

	keep := make(map[string]bool, len(s.playersOrder)+len(s.observersOrder))
	for _, id := range s.playersOrder {
		keep[id] = true
	}
	for _, id := range s.observersOrder {
		keep[id] = true
	}
	for id := range s.players {
		if !keep[id] {
			delete(s.players, id)
		}
	}

	s.recomputeMyRound()

	return nil
}

func (s *Store) known(order []string) []string {
	out := make([]string, 0, len(order))
	for _, id := range order {
		if _, ok := s.players[id]; ok {
			out = append(out, id)
		}
	}

	return out
}

func countTrue(flags ...*bool) int {
	n := 0
	for _, f := range flags {
		if f != nil && *f {
			n++
		}
	}

	return n
}

// setExclusive applies v to target. Raising one flag of a mutually
// exclusive group lowers its siblings.
func setExclusive(v *bool, target *bool, siblings ...*bool) {
	if v == nil {
		return
	}

	*target = *v
	if *v {
		for _, s := range siblings {
			*s = false
		}
	}
}

// ApplyGame merges a sparse session/round update. Only fields present in p
// are written; derived fields are recomputed afterwards. A patch that raises
// two flags of one phase group is rejected whole.
func (s *Store) ApplyGame(p GamePatch) error {
	if countTrue(p.TypingWords, p.Playing, p.Ended) > 1 {
		return protocolError(string(EvGameUpdated), ErrConflictingPhase)
	}
	if countTrue(p.RoundConfirmation, p.RoundPlaying) > 1 {
		return protocolError(string(EvGameUpdated), ErrConflictingPhase)
	}

	s.Initialized = true

	if p.WordsPerPlayer != nil {
		s.WordsPerPlayer = *p.WordsPerPlayer
	}
	if p.SecondsPerRound != nil {
		s.SecondsPerRound = *p.SecondsPerRound
	}
	if p.WordsMode != nil {
		s.WordsMode = *p.WordsMode
	}
	if p.OwnerID != nil {
		s.OwnerID = *p.OwnerID
	}

	setExclusive(p.TypingWords, &s.TypingWords, &s.Playing, &s.Ended)
	setExclusive(p.Playing, &s.Playing, &s.TypingWords, &s.Ended)
	setExclusive(p.Ended, &s.Ended, &s.TypingWords, &s.Playing)

	if p.PlayersOrder != nil {
		s.playersOrder = slices.Clone(*p.PlayersOrder)
	}
	if p.ObserversOrder != nil {
		s.observersOrder = slices.Clone(*p.ObserversOrder)
	}

	// A new round number replaces the round before the patch's own round
	// fields land on it.
	r := &s.Round
	if p.RoundNumber != nil && *p.RoundNumber != r.Number {
		*r = r.renumber(*p.RoundNumber)
	}
	if p.ExplainID != nil {
		r.ExplainID = *p.ExplainID
	}
	if p.GuessID != nil {
		r.GuessID = *p.GuessID
	}
	if p.ExplainConfirmed != nil {
		v := *p.ExplainConfirmed
		r.ExplainConfirmed = &v
	}
	if p.GuessConfirmed != nil {
		v := *p.GuessConfirmed
		r.GuessConfirmed = &v
	}

	setExclusive(p.RoundConfirmation, &r.Confirmation, &r.Playing, &r.Finishing)
	setExclusive(p.RoundPlaying, &r.Playing, &r.Confirmation, &r.Finishing)

	if p.CircleNumber != nil {
		r.Circle = *p.CircleNumber
	}
	if p.EpochNumber != nil {
		r.Epoch = *p.EpochNumber
	}

	if p.InitialWordsInHat != nil {
		s.InitialWordsInHat = *p.InitialWordsInHat
	}
	if p.CurrentWordsInHat != nil {
		s.CurrentWordsInHat = *p.CurrentWordsInHat
	}

	s.recomputeMyRound()

	return nil
}

// ApplyNextWord moves the round into its active phase. word is nil for
// everyone but the explaining player.
func (s *Store) ApplyNextWord(word *string) {
	r := &s.Round
	if word != nil {
		w := *word
		r.Word = &w
	} else {
		r.Word = nil
	}
	r.Confirmation = false
	r.Playing = true
	r.Finishing = false
}

// ExpireRound is the local countdown reaching zero. Expiries for any round
// other than the current one are ignored.
func (s *Store) ExpireRound(number int) bool {
	r := &s.Round
	if number != r.Number || !r.Playing {
		return false
	}

	r.Confirmation = false
	r.Playing = false
	r.Finishing = true

	return true
}

// CompleteRound clears the round locally while the server prepares the next
// one.
func (s *Store) CompleteRound() {
	r := &s.Round
	r.Confirmation = false
	r.Playing = false
	r.Finishing = false
	r.ExplainConfirmed = nil
	r.GuessConfirmed = nil
	r.Word = nil
}

func (s *Store) SetObserver(v bool) {
	s.me.Observer = v
	if s.me.ID != "" {
		if p, ok := s.players[s.me.ID]; ok {
			p.Observer = v
			s.players[s.me.ID] = p
		}
	}
}

// Evict drops this client out of the game and back to the pre-join state.
func (s *Store) Evict() {
	me := s.me
	me.Owner = false
	me.PutWordsInHat = false

	*s = *newStore(me, s.WordsPerPlayer, s.WordsMode)
	s.Removed = true
}
