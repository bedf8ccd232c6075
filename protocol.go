/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "encoding/json"

// InEvent is the closed set of events the server may send.
type InEvent string

const (
	EvUserIDHash     InEvent = "userIdHash"
	EvPlayersUpdated InEvent = "playersUpdated"
	EvGameCreated    InEvent = "gameCreated"
	EvGameUpdated    InEvent = "gameUpdated"
	EvNextWord       InEvent = "nextWord"
	EvPlayerRemoved  InEvent = "playerRemoved"
)

// OutEvent is the closed set of events the client may send.
type OutEvent string

const (
	OutGameCreated         OutEvent = "gameCreated"
	OutPlayerJoined        OutEvent = "playerJoined"
	OutPlayerUpdated       OutEvent = "playerUpdated"
	OutGameStarted         OutEvent = "gameStarted"
	OutRoundConfirmed      OutEvent = "roundConfirmed"
	OutWordGuessed         OutEvent = "wordGuessed"
	OutRoundComplete       OutEvent = "roundComplete"
	OutPutWordsInHat       OutEvent = "putWordsInHat"
	OutRemovePlayer        OutEvent = "removePlayer"
	OutReplayPreviousRound OutEvent = "replayPreviousRound"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type WordsMode string

const (
	WordsFromPlayers WordsMode = "PLAYERS"
	WordsFromDict    WordsMode = "DICT"
)

type GameMode string

const (
	ModeCircle        GameMode = "CIRCLE"
	ModeRandomPairs   GameMode = "RANDOM_PAIRS"
	ModeAssignedPairs GameMode = "ASSIGNED_PAIRS"
)

func (m GameMode) paired() bool {
	return m == ModeRandomPairs || m == ModeAssignedPairs
}

type WordResult string

const (
	ResultGuessed    WordResult = "GUESSED"
	ResultNotGuessed WordResult = "NOT_GUESSED"
	ResultError      WordResult = "ERROR"
)

var dictionaries = []string{"simple", "medium", "hard"}

type Player struct {
	Name              string `json:"name"`
	ID                string `json:"userIdHash,omitempty"`
	Owner             bool   `json:"owner"`
	Observer          bool   `json:"observer"`
	PutWordsInHat     bool   `json:"putWordsInHat"`
	GuessedTotal      int    `json:"guessedTotal"`
	ExplainedTotal    int    `json:"explainedTotal"`
	GuessedByCircle   int    `json:"guessedByCircle"`
	ExplainedByCircle int    `json:"explainedByCircle"`
	GuessedByEpoch    int    `json:"guessedByEpoch"`
	ExplainedByEpoch  int    `json:"explainedByEpoch"`
}

// Inbound payloads.

type userIDHashData struct {
	UserIDHash string `json:"userIdHash"`
	GameID     string `json:"gameId,omitempty"`
}

type playersUpdatedData struct {
	Players        []Player  `json:"players"`
	PlayersOrder   *[]string `json:"playersOrder"`
	ObserversOrder *[]string `json:"observersOrder"`
}

type gameCreatedData struct {
	GameID string `json:"gameId"`
}

type gameUpdatedData struct {
	Game GamePatch `json:"game"`
}

// GamePatch is a sparse update. A nil field was absent (or null) on the wire
// and must not touch the store.
type GamePatch struct {
	WordsPerPlayer  *int       `json:"wordsPerPlayer,omitempty"`
	WordsMode       *WordsMode `json:"wordsMode,omitempty"`
	SecondsPerRound *int       `json:"secondsPerRound,omitempty"`
	OwnerID         *string    `json:"ownerUserIdHash,omitempty"`

	TypingWords *bool `json:"gameStateTypingWords,omitempty"`
	Playing     *bool `json:"gameStatePlaying,omitempty"`
	Ended       *bool `json:"gameStateEnded,omitempty"`

	PlayersOrder   *[]string `json:"playersOrder,omitempty"`
	ObserversOrder *[]string `json:"observersOrder,omitempty"`

	ExplainID        *string `json:"explainPlayerId,omitempty"`
	GuessID          *string `json:"guessPlayerId,omitempty"`
	ExplainConfirmed *bool   `json:"explainPlayerConfirmed,omitempty"`
	GuessConfirmed   *bool   `json:"guessPlayerConfirmed,omitempty"`

	RoundConfirmation *bool `json:"roundStateConfirmation,omitempty"`
	RoundPlaying      *bool `json:"roundStatePlaying,omitempty"`

	RoundNumber  *int `json:"roundNumber,omitempty"`
	CircleNumber *int `json:"circleNumber,omitempty"`
	EpochNumber  *int `json:"epochNumber,omitempty"`

	InitialWordsInHat *int `json:"initialWordsInHat,omitempty"`
	CurrentWordsInHat *int `json:"currentWordsInHat,omitempty"`
}

type nextWordData struct {
	Word *string `json:"word"`
}

type playerRemovedData struct{}

// Outbound payloads.

type playerIntro struct {
	Name     string `json:"name"`
	Observer *bool  `json:"observer,omitempty"`
	Owner    *bool  `json:"owner,omitempty"`
}

type gameSettings struct {
	WordsPerPlayer int       `json:"wordsPerPlayer"`
	WordsMode      WordsMode `json:"wordsMode"`
}

type createGameData struct {
	Player playerIntro  `json:"player"`
	Game   gameSettings `json:"game"`
}

type joinGameData struct {
	Player playerIntro `json:"player"`
}

type observerChange struct {
	Observer bool `json:"observer"`
}

type updatePlayerData struct {
	Player observerChange `json:"player"`
}

type startGameData struct {
	SecondsPerRound int         `json:"secondsPerRound"`
	GameMode        GameMode    `json:"gameMode"`
	OwnerIsObserver bool        `json:"ownerIsObserver"`
	PlayersPairs    [][2]string `json:"playersPairs"`
}

type roundNumberData struct {
	RoundNumber int `json:"roundNumber"`
}

type roundCompleteData struct {
	LastWordResult WordResult `json:"lastWordResult"`
}

type putWordsData struct {
	Player     Player   `json:"player"`
	Words      []string `json:"words"`
	Dictionary *string  `json:"dictionary"`
}

type removePlayerData struct {
	PlayerToRemoveID string `json:"playerToRemoveId"`
}

type emptyData struct{}
