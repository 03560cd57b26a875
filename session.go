package main

import (
	"sync"
	"time"
)

const maxRosterSize = 16

// Session is one game room's lifetime state machine: lobby, round loop,
// resolution, next round. All mutation is serialized by mu; helpers with
// a Locked suffix assume it is held.
type Session struct {
	name     string
	password string

	mu sync.Mutex

	players          []*Client // join order; players[0] is the host
	started          bool
	firstRound       bool
	deciderIndex     int // -1 until the first round starts
	currentSituation Card

	nouns      *Deck
	verbs      *Deck
	situations *Deck

	lastActive time.Time
}

func newSession(name, password string, set *CardSet) *Session {
	return &Session{
		name:         name,
		password:     password,
		firstRound:   true,
		deciderIndex: -1,
		nouns:        newDeck(set.Nouns),
		verbs:        newDeck(set.Verbs),
		situations:   newDeck(set.Situations),
		lastActive:   time.Now(),
	}
}

func (s *Session) passworded() bool {
	return s.password != ""
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastActive
}

func (s *Session) info() RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return RoomInfo{
		Name:       s.name,
		Players:    len(s.players),
		Host:       s.hostLocked(),
		Started:    s.started,
		Passworded: s.passworded(),
	}
}

func (s *Session) hostLocked() string {
	if len(s.players) == 0 {
		return ""
	}
	return s.players[0].username
}

func (s *Session) rosterLocked() []string {
	names := make([]string, 0, len(s.players))
	for _, p := range s.players {
		names = append(names, p.username)
	}
	return names
}

func (s *Session) memberLocked(c *Client) bool {
	for _, p := range s.players {
		if p == c {
			return true
		}
	}
	return false
}

func (s *Session) broadcastLocked(msg any) {
	for _, p := range s.players {
		p.trySend(msg)
	}
}

// join appends a player to the roster and announces them to everyone
// already in the room. Joining after the game has started is permitted;
// the late joiner observes the current round and is dealt a hand at the
// next round start. Reports whether the player was admitted.
func (s *Session) join(cfg *Config, c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	if len(s.players) >= maxRosterSize {
		c.trySend(joinResultMessage{Type: "join-result"})
		return false
	}

	for _, p := range s.players {
		if p != c {
			p.trySend(playerJoinedMessage{Type: "player-joined", Player: c.username})
		}
	}

	s.players = append(s.players, c)

	c.trySend(joinResultMessage{
		Type:    "join-result",
		Success: true,
		Waiting: !s.started,
		Players: s.rosterLocked(),
		Host:    s.hostLocked(),
	})

	logf(cfg, "GAMES: %q joined room %q", c.username, s.name)

	return true
}

// startRound advances the decider, deals a fresh situation card, and
// deals every roster member a hand. Any member may call it; each call
// begins the next round, including the first.
func (s *Session) startRound(cfg *Config, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	if !s.memberLocked(c) || len(s.players) == 0 {
		return
	}

	s.deciderIndex = (s.deciderIndex + 1) % len(s.players)
	s.started = true
	s.currentSituation = s.situations.Deal(1)[0]

	for _, p := range s.players {
		p.trySend(roundStartedMessage{
			Type:       "round-started",
			Decider:    s.players[s.deciderIndex].username,
			Nouns:      s.nouns.Deal(cfg.handSize),
			Verbs:      s.verbs.Deal(cfg.handSize),
			Situation:  s.currentSituation,
			FirstRound: s.firstRound,
		})
	}

	if s.firstRound {
		s.firstRound = false
	}

	logf(cfg, "GAMES: Round started in room %q, decider %q", s.name, s.players[s.deciderIndex].username)
}

// submitPlay validates a play against the current situation. On success
// the completed play is broadcast to the whole room and the submitter is
// dealt replacements for what they consumed; on failure only the
// submitter hears about it and nothing changes.
func (s *Session) submitPlay(cfg *Config, c *Client, cards []Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	if !s.started || !s.memberLocked(c) {
		c.trySend(playResultMessage{Type: "play-result"})
		return
	}

	res, err := validatePlay(s.currentSituation, cards, s.nouns, s.verbs)
	if err != nil {
		c.trySend(playResultMessage{Type: "play-result"})
		logf(cfg, "GAMES: Rejected play from %q in room %q: %v", c.username, s.name, err)
		return
	}

	completed := append(append([]Card{}, cards...), res.fillers...)

	s.broadcastLocked(playSubmittedMessage{
		Type:      "play-submitted",
		Player:    c.username,
		Cards:     completed,
		Situation: s.currentSituation,
		Rendered:  renderCard(s.currentSituation.Text, cardTexts(completed)),
	})

	c.trySend(playResultMessage{
		Type:    "play-result",
		Success: true,
		Nouns:   s.nouns.Deal(res.nounsConsumed),
		Verbs:   s.verbs.Deal(res.verbsConsumed),
	})

	logf(cfg, "GAMES: %q submitted a play in room %q", c.username, s.name)
}

// decideWinner broadcasts the winning play. Only the current decider may
// call it; anyone else gets an explicit rejection and the room state is
// untouched. The round does not auto-advance, the next explicit
// start-round does.
func (s *Session) decideWinner(cfg *Config, c *Client, player string, cards []Card) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	if s.deciderIndex < 0 || s.deciderIndex >= len(s.players) || s.players[s.deciderIndex] != c {
		c.trySend(winnerResultMessage{Type: "winner-result"})
		return
	}

	s.broadcastLocked(winnerMessage{
		Type:      "winner",
		Player:    player,
		Cards:     cards,
		Situation: s.currentSituation,
		Rendered:  renderCard(s.currentSituation.Text, cardTexts(cards)),
	})

	logf(cfg, "GAMES: %q won a round in room %q", player, s.name)
}

// removePlayer splices a player out of the roster immediately and tells
// the rest of the room. The decider index stays positional: it is only
// clamped back into range, never moved to chase a player's identity, so
// a removal can skip or repeat a turn. Reports whether the roster is now
// empty.
func (s *Session) removePlayer(cfg *Config, c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()

	found := false
	dst := s.players[:0]
	for _, p := range s.players {
		if p == c {
			found = true
			continue
		}
		dst = append(dst, p)
	}
	s.players = dst

	if !found {
		return len(s.players) == 0
	}

	if s.deciderIndex >= len(s.players) {
		s.deciderIndex = len(s.players) - 1
	}

	s.broadcastLocked(playerLeftMessage{
		Type:   "player-left",
		Player: c.username,
		Host:   s.hostLocked(),
	})

	logf(cfg, "GAMES: %q left room %q", c.username, s.name)

	return len(s.players) == 0
}

// closeAll disconnects every player in the room (used by the reaper).
func (s *Session) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.players {
		p.close()
	}
	s.players = nil
}

func cardTexts(cards []Card) []string {
	texts := make([]string, 0, len(cards))
	for _, card := range cards {
		texts = append(texts, card.Text)
	}
	return texts
}
