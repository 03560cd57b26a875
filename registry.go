package main

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// RoomInfo is the lobby-facing summary of a session.
type RoomInfo struct {
	Name       string `json:"name"`
	Players    int    `json:"players"`
	Host       string `json:"host,omitempty"`
	Started    bool   `json:"started"`
	Passworded bool   `json:"passworded"`
}

// Registry is the process-wide table of active rooms and logged-in
// identities. Username and room-name uniqueness is arbitrated here with
// check-and-insert under a single lock; everything inside a room is
// serialized by that Session's own lock, so unrelated rooms never
// contend.
type Registry struct {
	cfg *Config
	set *CardSet

	mu       sync.Mutex
	clients  map[string]*Client
	sessions map[string]*Session
}

func newRegistry(cfg *Config, set *CardSet) *Registry {
	r := &Registry{
		cfg:      cfg,
		set:      set,
		clients:  make(map[string]*Client),
		sessions: make(map[string]*Session),
	}
	if cfg.sessionTimeout > 0 {
		go r.reaperLoop()
	}
	return r
}

// dispatch routes one inbound intent from a client's read loop. Session
// intents from clients that are not in a room get an explicit rejection
// where the protocol has an acknowledgment for them.
func (r *Registry) dispatch(cfg *Config, c *Client, msg clientMessage) {
	switch msg.Type {
	case "login":
		r.login(cfg, c, msg.Username)
	case "refresh-list":
		if c.username == "" {
			c.trySend(roomListMessage{Type: "room-list"})
			return
		}
		c.trySend(roomListMessage{Type: "room-list", Success: true, Rooms: r.roomList()})
	case "create-room":
		r.createRoom(cfg, c, msg.Name, msg.Password)
	case "join-room":
		r.joinRoom(cfg, c, msg.Name, "", false)
	case "answer-challenge":
		r.joinRoom(cfg, c, msg.Name, msg.Password, true)
	case "start-round":
		if c.session != nil {
			c.session.startRound(cfg, c)
		}
	case "submit-play":
		if c.session == nil {
			c.trySend(playResultMessage{Type: "play-result"})
			return
		}
		c.session.submitPlay(cfg, c, msg.Cards)
	case "decide-winner":
		if c.session == nil {
			c.trySend(winnerResultMessage{Type: "winner-result"})
			return
		}
		c.session.decideWinner(cfg, c, msg.Player, msg.Cards)
	default:
		// ignore unknown types
	}
}

// login claims a username for this connection. The check and the insert
// happen under one lock so two concurrent logins can never both observe
// the name as free.
func (r *Registry) login(cfg *Config, c *Client, username string) {
	username = strings.TrimSpace(username)

	r.mu.Lock()
	_, taken := r.clients[username]
	ok := username != "" && c.username == "" && !taken
	if ok {
		r.clients[username] = c
		c.username = username
	}
	r.mu.Unlock()

	if !ok {
		c.trySend(loginResultMessage{Type: "login-result"})
		logf(cfg, "GAMES: Rejected login for %q (taken or invalid)", username)
		return
	}

	c.trySend(loginResultMessage{Type: "login-result", Success: true, Rooms: r.roomList()})
	logf(cfg, "GAMES: %q logged in", username)
}

func (r *Registry) roomList() []RoomInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	rooms := make([]RoomInfo, 0, len(sessions))
	for _, s := range sessions {
		rooms = append(rooms, s.info())
	}

	slices.SortFunc(rooms, func(a, b RoomInfo) int {
		return strings.Compare(a.Name, b.Name)
	})

	return rooms
}

// createRoom allocates a session with the creator as host, under the
// same check-and-insert discipline as login.
func (r *Registry) createRoom(cfg *Config, c *Client, name, password string) {
	name = strings.TrimSpace(name)

	if c.username == "" || c.session != nil || name == "" {
		c.trySend(roomCreatedMessage{Type: "room-created"})
		return
	}

	sess := newSession(name, password, r.set)

	r.mu.Lock()
	_, taken := r.sessions[name]
	if !taken {
		r.sessions[name] = sess
	}
	r.mu.Unlock()

	if taken {
		c.trySend(roomCreatedMessage{Type: "room-created"})
		logf(cfg, "GAMES: Rejected room %q (name taken)", name)
		return
	}

	sess.join(cfg, c)
	c.session = sess

	c.trySend(roomCreatedMessage{Type: "room-created", Success: true})
	logf(cfg, "GAMES: %q created room %q", c.username, name)
}

// joinRoom admits a player to an existing room. Password-protected rooms
// challenge the first attempt; the client answers with the password and
// is let in only on an exact match.
func (r *Registry) joinRoom(cfg *Config, c *Client, name, password string, answered bool) {
	if c.username == "" || c.session != nil {
		c.trySend(joinResultMessage{Type: "join-result"})
		return
	}

	r.mu.Lock()
	sess := r.sessions[name]
	r.mu.Unlock()

	if sess == nil {
		c.trySend(joinResultMessage{Type: "join-result"})
		return
	}

	if sess.passworded() && !answered {
		c.trySend(joinChallengeMessage{Type: "join-challenge", Name: name})
		return
	}

	if sess.passworded() && password != sess.password {
		c.trySend(joinResultMessage{Type: "join-result"})
		logf(cfg, "GAMES: Rejected %q joining room %q (wrong password)", c.username, name)
		return
	}

	if sess.join(cfg, c) {
		c.session = sess
	}
}

// disconnect tears down a connection's identity and roster membership.
// A room whose roster drains to zero is destroyed.
func (r *Registry) disconnect(cfg *Config, c *Client) {
	sess := c.session
	c.session = nil

	if sess != nil && sess.removePlayer(cfg, c) {
		r.mu.Lock()
		if r.sessions[sess.name] == sess {
			delete(r.sessions, sess.name)
		}
		r.mu.Unlock()
		logf(cfg, "GAMES: Destroyed empty room %q", sess.name)
	}

	if c.username != "" {
		r.mu.Lock()
		if r.clients[c.username] == c {
			delete(r.clients, c.username)
		}
		r.mu.Unlock()
		logf(cfg, "GAMES: %q disconnected", c.username)
	}
}

// reaperLoop periodically destroys rooms that have been idle longer than
// the configured session timeout.
func (r *Registry) reaperLoop() {
	ticker := time.NewTicker(r.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-r.cfg.sessionTimeout)

		r.mu.Lock()
		for name, sess := range r.sessions {
			if sess.idleSince().Before(cutoff) {
				delete(r.sessions, name)
				go sess.closeAll()
			}
		}
		r.mu.Unlock()
	}
}
