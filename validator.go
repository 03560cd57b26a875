package main

import (
	"errors"
	"math/rand"
)

var (
	errTooManyCards     = errors.New("more cards submitted than open slots")
	errNoCompatibleSlot = errors.New("no compatible slot for submitted card type")
)

// playResult reports what a validated play consumed and any filler cards
// synthesized to satisfy leftover blanks. Consumed counts drive how many
// replacement cards the submitter is dealt afterwards.
type playResult struct {
	nounsConsumed int
	verbsConsumed int
	fillers       []Card
}

// validatePlay reconciles a submitted play against the situation card's
// blank structure, treating the situation's slots as a FIFO queue.
//
// Each submitted card fills the frontmost compatible slot. A card played
// against a mismatched slot forfeits that slot and is retried against the
// next, as long as some compatible slot remains anywhere in the queue. A
// filled chainer pushes its own blanks onto the front of the queue, so
// they must be satisfied before the rest of the situation.
//
// Blanks still open after the last submitted card (typically from an
// unsatisfied chainer) are filled with cards dealt on the player's
// behalf; a bi slot flips a coin between the two decks. Rejections leave
// both decks untouched.
func validatePlay(situation Card, played []Card, nouns, verbs *Deck) (playResult, error) {
	var res playResult

	queue := parseSlots(situation.Text)

	for _, card := range played {
		for {
			if len(queue) == 0 {
				return playResult{}, errTooManyCards
			}

			slot := queue[0]
			queue = queue[1:]

			if slot.accepts(card.Type) {
				switch card.Type {
				case CardNoun:
					res.nounsConsumed++
				case CardVerb:
					res.verbsConsumed++
				}
				queue = append(parseSlots(card.Text), queue...)
				break
			}

			if !anyAccepts(queue, card.Type) {
				return playResult{}, errNoCompatibleSlot
			}
			// The mismatched slot is forfeited; retry this card against
			// the next one.
		}
	}

	for len(queue) > 0 {
		slot := queue[0]
		queue = queue[1:]

		kind := slot
		if kind == SlotBi {
			if rand.Intn(2) == 0 {
				kind = SlotNoun
			} else {
				kind = SlotVerb
			}
		}

		var filler Card
		if kind == SlotNoun {
			filler = nouns.Deal(1)[0]
		} else {
			filler = verbs.Deal(1)[0]
		}

		res.fillers = append(res.fillers, filler)
		queue = append(parseSlots(filler.Text), queue...)
	}

	return res, nil
}

func anyAccepts(queue []SlotKind, t CardType) bool {
	for _, slot := range queue {
		if slot.accepts(t) {
			return true
		}
	}
	return false
}
