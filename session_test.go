package main

import (
	"testing"
)

func testClient(name string) *Client {
	return &Client{
		send:     make(chan any, 64),
		username: name,
	}
}

// recv pulls one already-queued message, failing if none is waiting.
func recv(t *testing.T, c *Client) any {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatalf("no message queued for %q", c.username)
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message for %q: %#v", c.username, msg)
	default:
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func testCardSet() *CardSet {
	return &CardSet{
		Nouns:      testCards(CardNoun, 20),
		Verbs:      testCards(CardVerb, 20),
		Situations: []Card{{ID: 900, Type: CardSituation, Text: "[noun] [verb]"}},
	}
}

func testSession(t *testing.T, cfg *Config, names ...string) (*Session, []*Client) {
	t.Helper()

	sess := newSession("room", "", testCardSet())

	clients := make([]*Client, 0, len(names))
	for _, name := range names {
		c := testClient(name)
		if !sess.join(cfg, c) {
			t.Fatalf("join failed for %q", name)
		}
		clients = append(clients, c)
		drain(c)
	}
	for _, c := range clients {
		drain(c)
	}

	return sess, clients
}

func TestDeciderRotation(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben", "cat", "dee")

	want := []int{0, 1, 2, 3, 0}
	for i, expected := range want {
		sess.startRound(cfg, clients[0])
		if sess.deciderIndex != expected {
			t.Fatalf("round %d: decider index %d, want %d", i+1, sess.deciderIndex, expected)
		}
	}
}

func TestFirstRoundFlag(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, clients[0])
	first := recv(t, clients[0]).(roundStartedMessage)
	if !first.FirstRound {
		t.Fatalf("first round not flagged")
	}
	drain(clients[0])
	drain(clients[1])

	sess.startRound(cfg, clients[0])
	second := recv(t, clients[0]).(roundStartedMessage)
	if second.FirstRound {
		t.Fatalf("second round flagged as first")
	}
}

func TestRoundStartDealsHands(t *testing.T) {
	cfg := &Config{handSize: 4}
	sess, clients := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, clients[0])

	for _, c := range clients {
		msg := recv(t, c).(roundStartedMessage)
		if len(msg.Nouns) != 4 || len(msg.Verbs) != 4 {
			t.Fatalf("%q dealt %d/%d cards, want 4/4", c.username, len(msg.Nouns), len(msg.Verbs))
		}
		if msg.Decider != "ann" {
			t.Fatalf("decider %q, want ann", msg.Decider)
		}
		if msg.Situation.Type != CardSituation {
			t.Fatalf("situation card has type %q", msg.Situation.Type)
		}
	}
}

func TestNonMemberCannotStartRound(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, _ := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, testClient("mallory"))

	if sess.started {
		t.Fatalf("outsider started the round")
	}
}

func TestSubmitPlayBroadcasts(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, clients[0])
	for _, c := range clients {
		drain(c)
	}

	play := []Card{
		{ID: 501, Type: CardNoun, Text: "a rented alpaca"},
		{ID: 502, Type: CardVerb, Text: "yodel aggressively"},
	}
	sess.submitPlay(cfg, clients[1], play)

	for _, c := range clients {
		msg := recv(t, c).(playSubmittedMessage)
		if msg.Player != "ben" {
			t.Fatalf("play attributed to %q, want ben", msg.Player)
		}
		if msg.Rendered != "a rented alpaca yodel aggressively" {
			t.Fatalf("rendered %q", msg.Rendered)
		}
	}

	res := recv(t, clients[1]).(playResultMessage)
	if !res.Success {
		t.Fatalf("valid play rejected")
	}
	if len(res.Nouns) != 1 || len(res.Verbs) != 1 {
		t.Fatalf("replenished %d/%d cards, want 1/1", len(res.Nouns), len(res.Verbs))
	}

	assertSilent(t, clients[0])
}

func TestRejectedPlayOnlyNotifiesSubmitter(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, clients[0])
	for _, c := range clients {
		drain(c)
	}

	// Three cards against two blanks.
	play := []Card{
		{ID: 501, Type: CardNoun, Text: "x"},
		{ID: 502, Type: CardVerb, Text: "y"},
		{ID: 503, Type: CardNoun, Text: "z"},
	}
	sess.submitPlay(cfg, clients[1], play)

	res := recv(t, clients[1]).(playResultMessage)
	if res.Success {
		t.Fatalf("invalid play accepted")
	}

	assertSilent(t, clients[0])
	assertSilent(t, clients[1])
}

func TestDeciderGating(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, clients[0])
	for _, c := range clients {
		drain(c)
	}

	deciderBefore := sess.deciderIndex

	// ben is not the decider; his decision gets an explicit rejection
	// and nobody else hears a thing.
	sess.decideWinner(cfg, clients[1], "ben", nil)

	res := recv(t, clients[1]).(winnerResultMessage)
	if res.Success {
		t.Fatalf("non-decider decision accepted")
	}
	assertSilent(t, clients[0])

	if sess.deciderIndex != deciderBefore {
		t.Fatalf("decider index changed")
	}
}

func TestDeciderDecisionBroadcasts(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, clients[0])
	for _, c := range clients {
		drain(c)
	}

	cards := []Card{{ID: 501, Type: CardNoun, Text: "a tiny hat"}}
	sess.decideWinner(cfg, clients[0], "ben", cards)

	for _, c := range clients {
		msg := recv(t, c).(winnerMessage)
		if msg.Player != "ben" {
			t.Fatalf("winner %q, want ben", msg.Player)
		}
	}

	// The round does not auto-advance.
	if sess.deciderIndex != 0 {
		t.Fatalf("decider index advanced without a start-round")
	}
}

func TestLateJoinObservesWithoutHand(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben")

	sess.startRound(cfg, clients[0])
	for _, c := range clients {
		drain(c)
	}

	late := testClient("cat")
	if !sess.join(cfg, late) {
		t.Fatalf("late join refused")
	}

	res := recv(t, late).(joinResultMessage)
	if !res.Success {
		t.Fatalf("late join rejected")
	}
	if res.Waiting {
		t.Fatalf("late joiner told the room is waiting mid-round")
	}

	// No hand until the next round starts.
	assertSilent(t, late)
}

func TestRemovePlayerClampsDecider(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann", "ben", "cat")

	for i := 0; i < 3; i++ {
		sess.startRound(cfg, clients[0])
	}
	if sess.deciderIndex != 2 {
		t.Fatalf("decider index %d, want 2", sess.deciderIndex)
	}
	for _, c := range clients {
		drain(c)
	}

	if sess.removePlayer(cfg, clients[2]) {
		t.Fatalf("roster reported empty with players remaining")
	}

	if sess.deciderIndex != 1 {
		t.Fatalf("decider index %d after removal, want 1", sess.deciderIndex)
	}

	for _, c := range clients[:2] {
		msg := recv(t, c).(playerLeftMessage)
		if msg.Player != "cat" || msg.Host != "ann" {
			t.Fatalf("player-left = %#v", msg)
		}
	}
}

func TestRemoveLastPlayerEmptiesRoster(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess, clients := testSession(t, cfg, "ann")

	if !sess.removePlayer(cfg, clients[0]) {
		t.Fatalf("expected empty roster")
	}
}

func TestJoinFullRoster(t *testing.T) {
	cfg := &Config{handSize: 1}
	sess := newSession("room", "", testCardSet())

	for i := 0; i < maxRosterSize; i++ {
		c := testClient("player")
		if !sess.join(cfg, c) {
			t.Fatalf("join %d refused below the cap", i)
		}
	}

	extra := testClient("extra")
	if sess.join(cfg, extra) {
		t.Fatalf("join accepted past the cap")
	}
	res := recv(t, extra).(joinResultMessage)
	if res.Success {
		t.Fatalf("full room reported success")
	}
}
