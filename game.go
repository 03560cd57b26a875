// Fillin
//
// A party-style fill-in-the-blank card game. Each round one situation
// card with typed blanks ([noun], [verb], [bi]) is dealt, players slot
// noun and verb cards from their hands into the blanks, and a rotating
// decider picks the funniest completion. Noun and verb cards may
// themselves contain blanks (chainers), which expand the round's fill
// target when played.
//
// Features:
// - Single WebSocket endpoint: /path/ws; rooms are created in-band
// - Unique in-memory usernames claimed at login
// - Rooms listed in the lobby with player count and lock state
// - Optional room passwords, gated by a join challenge
// - Decider rotates by roster position each round
// - Chainer blanks the player cannot fill are completed with
//   server-dealt filler cards
// - Idle rooms reaped after a configurable timeout
// - In-browser QR button to share the server, backed by go-qrcode

package main

import (
	_ "embed"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// clientMessage is the single envelope for all inbound intents.
type clientMessage struct {
	Type     string `json:"type"`               // "login", "refresh-list", "create-room", "join-room", "answer-challenge", "start-round", "submit-play", "decide-winner"
	Username string `json:"username,omitempty"` // login
	Name     string `json:"name,omitempty"`     // create-room / join-room / answer-challenge
	Password string `json:"password,omitempty"` // create-room / answer-challenge
	Player   string `json:"player,omitempty"`   // decide-winner
	Cards    []Card `json:"cards,omitempty"`    // submit-play / decide-winner
}

type loginResultMessage struct {
	Type    string     `json:"type"` // "login-result"
	Success bool       `json:"success"`
	Rooms   []RoomInfo `json:"rooms,omitempty"`
}

type roomListMessage struct {
	Type    string     `json:"type"` // "room-list"
	Success bool       `json:"success"`
	Rooms   []RoomInfo `json:"rooms"`
}

type roomCreatedMessage struct {
	Type    string `json:"type"` // "room-created"
	Success bool   `json:"success"`
}

// Sent instead of join-result when the room is password-protected; the
// client replies with answer-challenge.
type joinChallengeMessage struct {
	Type string `json:"type"` // "join-challenge"
	Name string `json:"name"`
}

type joinResultMessage struct {
	Type    string   `json:"type"` // "join-result"
	Success bool     `json:"success"`
	Waiting bool     `json:"waiting,omitempty"`
	Players []string `json:"players,omitempty"`
	Host    string   `json:"host,omitempty"`
}

type playerJoinedMessage struct {
	Type   string `json:"type"` // "player-joined"
	Player string `json:"player"`
}

type playerLeftMessage struct {
	Type   string `json:"type"` // "player-left"
	Player string `json:"player"`
	Host   string `json:"host,omitempty"`
}

// Sent to each player individually, since every hand differs.
type roundStartedMessage struct {
	Type       string `json:"type"` // "round-started"
	Decider    string `json:"decider"`
	Nouns      []Card `json:"nouns"`
	Verbs      []Card `json:"verbs"`
	Situation  Card   `json:"situation"`
	FirstRound bool   `json:"firstRound"`
}

// The submitter's acknowledgment; nouns/verbs replenish what the
// accepted play consumed.
type playResultMessage struct {
	Type    string `json:"type"` // "play-result"
	Success bool   `json:"success"`
	Nouns   []Card `json:"nouns,omitempty"`
	Verbs   []Card `json:"verbs,omitempty"`
}

type playSubmittedMessage struct {
	Type      string `json:"type"` // "play-submitted"
	Player    string `json:"player"`
	Cards     []Card `json:"cards"`
	Situation Card   `json:"situation"`
	Rendered  string `json:"rendered"`
}

type winnerResultMessage struct {
	Type    string `json:"type"` // "winner-result"
	Success bool   `json:"success"`
}

type winnerMessage struct {
	Type      string `json:"type"` // "winner"
	Player    string `json:"player"`
	Cards     []Card `json:"cards"`
	Situation Card   `json:"situation"`
	Rendered  string `json:"rendered"`
}

type Client struct {
	conn *websocket.Conn
	send chan any

	// username and session are written only from this connection's read
	// loop (and registry calls made from it), so they need no lock.
	username string
	session  *Session

	mu     sync.Mutex
	closed bool
}

// trySend queues a message without blocking; a client too slow to drain
// its buffer is dropped. Safe to call after the client has been closed,
// since a dropped client can stay on a roster until its read loop exits.
func (c *Client) trySend(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		c.closed = true
		close(c.send)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump(cfg *Config, reg *Registry) {
	defer func() {
		reg.disconnect(cfg, c)
		c.close()
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		reg.dispatch(cfg, c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		go client.writePump()
		client.readPump(cfg, reg)
	}
}

// QR handler: generates a PNG QR code for the game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../qr; strip the trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed assets/fillin/index.html
var indexHTML []byte

//go:embed assets/fillin/app.css
var fillinCSS []byte

//go:embed assets/fillin/app.js
var fillinJS []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(fillinCSS)
	}
}

func getJsHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(fillinJS)
	}
}

// registerFillinGame sets up routes so that:
//   - $path        → HTML client
//   - $path/ws     → shared WebSocket endpoint (rooms created in-band)
//   - $path/qr     → PNG QR code for the game URL
func registerFillinGame(cfg *Config, path string, mux *httprouter.Router, reg *Registry) {
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	// Shared assets
	mux.GET(cfg.prefix+"/assets/fillin/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/fillin/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, reg))

	mux.GET(cfg.prefix+path+"/qr", qrHandler)
}
