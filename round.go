/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "fmt"

type Phase string

const (
	PhasePreJoin     Phase = "PRE_JOIN"
	PhaseWaiting     Phase = "WAITING"
	PhaseTypingWords Phase = "TYPING_WORDS"
	PhasePlaying     Phase = "PLAYING"
	PhaseEnded       Phase = "ENDED"
)

type RoundPhase string

const (
	RoundNone         RoundPhase = ""
	RoundConfirmation RoundPhase = "CONFIRMATION"
	RoundActive       RoundPhase = "ACTIVE"
	RoundFinishing    RoundPhase = "FINISHING"
)

type TypingState string

const (
	TypingNone       TypingState = ""
	TypingNeedsWords TypingState = "NEEDS_WORDS"
	TypingWaiting    TypingState = "WAITING_FOR_OTHERS"
)

type WordsForm string

const (
	FormNone  WordsForm = ""
	FormTyped WordsForm = "TYPED"
	FormDict  WordsForm = "DICT"
)

// Actions lists what the local player may do right now.
type Actions struct {
	WordsForm      WordsForm `json:"wordsForm,omitempty"`
	ToggleObserver bool      `json:"toggleObserver,omitempty"`
	ChooseMode     bool      `json:"chooseMode,omitempty"`
	StartGame      bool      `json:"startGame,omitempty"`
	StartBlocker   string    `json:"startBlocker,omitempty"`
	RemovePlayers  bool      `json:"removePlayers,omitempty"`

	Confirm     bool `json:"confirm,omitempty"`
	SkipRound   bool `json:"skipRound,omitempty"`
	Replay      bool `json:"replay,omitempty"`
	Guessed     bool `json:"guessed,omitempty"`
	ReportError bool `json:"reportError,omitempty"`
	NextRound   bool `json:"nextRound,omitempty"`

	// Guessed ends the round instead of asking for another word.
	GuessedCompletes bool `json:"guessedCompletes,omitempty"`
	// Round buttons are briefly disabled after each answer.
	Disabled bool `json:"disabled,omitempty"`
}

// View is a read-only snapshot of everything presentation needs.
type View struct {
	Connection ConnState `json:"connection"`
	GameID     string    `json:"gameId,omitempty"`
	GameLink   string    `json:"gameLink,omitempty"`

	Phase  Phase       `json:"phase"`
	Typing TypingState `json:"typing,omitempty"`
	Round  RoundPhase  `json:"round,omitempty"`

	RoundNumber  int `json:"roundNumber"`
	CircleNumber int `json:"circleNumber"`
	EpochNumber  int `json:"epochNumber"`

	Me        Player  `json:"me"`
	MyRound   bool    `json:"myRound"`
	Explainer *Player `json:"explainer,omitempty"`
	Guesser   *Player `json:"guesser,omitempty"`
	Word      string  `json:"word,omitempty"`

	WordsPerPlayer  int       `json:"wordsPerPlayer"`
	WordsMode       WordsMode `json:"wordsMode,omitempty"`
	SecondsPerRound int       `json:"secondsPerRound"`
	SecondsLeft     int       `json:"secondsLeft"`

	InitialWordsInHat int `json:"initialWordsInHat"`
	CurrentWordsInHat int `json:"currentWordsInHat"`

	Players   []Player `json:"players"`
	Observers []Player `json:"observers"`

	Allowed Actions `json:"allowed"`
}

// lobby is the owner's not-yet-sent game setup.
type lobby struct {
	mode  GameMode
	pairs [][2]string
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func roundPhase(r Round) RoundPhase {
	switch {
	case r.Confirmation:
		return RoundConfirmation
	case r.Playing:
		return RoundActive
	case r.Finishing:
		return RoundFinishing
	default:
		return RoundNone
	}
}

func gamePhase(s *Store) Phase {
	switch {
	case s.Removed, !s.Initialized:
		return PhasePreJoin
	case s.Ended:
		return PhaseEnded
	case s.Playing:
		return PhasePlaying
	case s.TypingWords:
		return PhaseTypingWords
	default:
		return PhaseWaiting
	}
}

// needsWords reports whether the local player still owes words to the hat.
// In dictionary mode only the owner picks the dictionary.
func needsWords(s *Store) bool {
	me := s.Me()
	if me.PutWordsInHat {
		return false
	}

	switch s.WordsMode {
	case WordsFromPlayers:
		return true
	case WordsFromDict:
		return me.Owner
	default:
		return false
	}
}

// startReadiness returns nil when the owner may start the game with the
// chosen mode and pairs.
func startReadiness(s *Store, l lobby) error {
	if s.PlayerCount() < 2 {
		return ErrPlayersNotReady
	}
	for _, p := range s.players {
		if !p.PutWordsInHat {
			return ErrPlayersNotReady
		}
	}

	// Observers never take a seat, whoever they are.
	active := 0
	for _, p := range s.players {
		if !p.Observer {
			active++
		}
	}
	if l.mode.paired() && active%2 == 1 {
		return ErrOddPlayers
	}

	if l.mode == ModeAssignedPairs {
		if len(l.pairs)*2 != active {
			return ErrPairsIncomplete
		}
		seen := make(map[string]bool, active)
		for _, pair := range l.pairs {
			for _, id := range pair {
				p, ok := s.Player(id)
				if id == "" || !ok || p.Observer || seen[id] {
					return ErrPairsIncomplete
				}
				seen[id] = true
			}
		}
	}

	return nil
}

// derive computes the participant's phase and legal actions. A round that
// names a player outside the roster yields a ProtocolError alongside a view
// without seat details.
func derive(s *Store, l lobby, disabled bool) (View, error) {
	r := s.Round
	me := s.Me()

	v := View{
		GameID:            s.GameID,
		Phase:             gamePhase(s),
		RoundNumber:       r.Number,
		CircleNumber:      r.Circle,
		EpochNumber:       r.Epoch,
		Me:                me,
		MyRound:           s.MyRound(),
		WordsPerPlayer:    s.WordsPerPlayer,
		WordsMode:         s.WordsMode,
		SecondsPerRound:   s.SecondsPerRound,
		InitialWordsInHat: s.InitialWordsInHat,
		CurrentWordsInHat: s.CurrentWordsInHat,
		Players:           s.Players(),
		Observers:         s.Observers(),
	}

	switch v.Phase {
	case PhaseTypingWords:
		deriveTyping(s, l, &v)
	case PhasePlaying:
		v.Round = roundPhase(r)
		if r.Number < 0 {
			return v, nil
		}

		return v, derivePlaying(s, disabled, &v)
	}

	return v, nil
}

func deriveTyping(s *Store, l lobby, v *View) {
	me := s.Me()

	if needsWords(s) {
		v.Typing = TypingNeedsWords
		if s.Initialized {
			switch {
			case s.WordsMode == WordsFromPlayers:
				v.Allowed.WordsForm = FormTyped
			case s.WordsMode == WordsFromDict && me.Owner:
				v.Allowed.WordsForm = FormDict
			}
		}
	} else {
		v.Typing = TypingWaiting
	}

	if !me.Owner {
		return
	}

	v.Allowed.RemovePlayers = true
	if v.Typing == TypingWaiting {
		v.Allowed.ChooseMode = true
		v.Allowed.ToggleObserver = s.WordsMode == WordsFromDict
		if err := startReadiness(s, l); err != nil {
			v.Allowed.StartBlocker = err.Error()
		} else {
			v.Allowed.StartGame = true
		}
	}
}

func derivePlaying(s *Store, disabled bool, v *View) error {
	r := s.Round
	me := s.Me()

	explainer, ok := s.Player(r.ExplainID)
	if !ok {
		return protocolError(string(EvGameUpdated), fmt.Errorf("%w: explain player %q", ErrUnknownPlayer, r.ExplainID))
	}
	guesser, ok := s.Player(r.GuessID)
	if !ok {
		return protocolError(string(EvGameUpdated), fmt.Errorf("%w: guess player %q", ErrUnknownPlayer, r.GuessID))
	}
	v.Explainer = &explainer
	v.Guesser = &guesser

	if r.Word != nil && (r.Playing || r.Finishing) {
		v.Word = *r.Word
	}

	a := &v.Allowed
	a.Disabled = disabled
	replay := me.Owner && r.Number != 0

	switch {
	case s.MyRound():
		waiting := (me.ID == explainer.ID && !isTrue(r.ExplainConfirmed)) ||
			(me.ID == guesser.ID && !isTrue(r.GuessConfirmed))
		if r.Confirmation && waiting {
			a.Confirm = true
			a.SkipRound = true
			a.Replay = replay
		}
		if v.Word != "" && (r.Playing || r.Finishing) {
			a.Guessed = true
			a.GuessedCompletes = r.Finishing
			a.ReportError = true
			a.NextRound = r.Finishing
		}
	case me.Owner:
		if r.Confirmation && (!isTrue(r.ExplainConfirmed) || !isTrue(r.GuessConfirmed)) {
			a.SkipRound = true
			a.Replay = replay
		}
	}

	return nil
}
