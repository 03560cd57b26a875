package main

import (
	"fmt"
	"math/rand"
)

// Deck is a shuffled, replenishing supply of cards of one category.
// A deck only ever knows about the cards still inside it plus the
// pristine original set; cards that have been dealt out are never
// returned mid-game, only drawn fresh on demand.
type Deck struct {
	original []Card
	cards    []Card
}

func newDeck(cards []Card) *Deck {
	d := &Deck{original: cards}
	d.reset()
	return d
}

// Deal removes and returns n cards from the tail of the current shuffle
// order. If fewer than n remain, the deck resets first. Asking for more
// cards than the deck can ever hold is an invariant violation; hand
// sizes keep normal play far below that.
func (d *Deck) Deal(n int) []Card {
	if len(d.cards) < n {
		d.reset()
	}

	if n > len(d.cards) {
		panic(fmt.Sprintf("deck: asked for %d cards from a pool of %d", n, len(d.cards)))
	}

	dealt := make([]Card, n)
	copy(dealt, d.cards[len(d.cards)-n:])
	d.cards = d.cards[:len(d.cards)-n]

	return dealt
}

// Remaining reports how many cards are left before the next reset.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// reset recombines the original set with whatever still remains in the
// deck, then reshuffles.
func (d *Deck) reset() {
	merged := make([]Card, 0, len(d.original)+len(d.cards))
	merged = append(merged, d.original...)
	merged = append(merged, d.cards...)
	d.cards = merged
	d.shuffle()
}

func (d *Deck) shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}
