package main

import (
	"strings"
)

// SlotKind is the type of a single blank in a card template.
type SlotKind string

const (
	SlotNoun SlotKind = "noun"
	SlotVerb SlotKind = "verb"
	SlotBi   SlotKind = "bi" // accepts either a noun or a verb
)

var slotMarkers = map[string]SlotKind{
	"[noun]": SlotNoun,
	"[verb]": SlotVerb,
	"[bi]":   SlotBi,
}

// accepts reports whether a card of type t may fill this slot.
func (k SlotKind) accepts(t CardType) bool {
	return k == SlotBi || string(k) == string(t)
}

// parseSlots scans template text for blank markers in left-to-right
// order. The parse is deliberately lenient: anything that is not one of
// the three markers contributes zero slots, so malformed or misspelled
// markers yield fewer blanks rather than an error.
func parseSlots(text string) []SlotKind {
	var slots []SlotKind

	for {
		idx, marker := nextMarker(text)
		if idx < 0 {
			break
		}
		slots = append(slots, slotMarkers[marker])
		text = text[idx+len(marker):]
	}

	return slots
}

// nextMarker finds the leftmost blank marker in text, returning its
// index and the marker itself, or -1 if none remain.
func nextMarker(text string) (int, string) {
	best := -1
	bestMarker := ""

	for marker := range slotMarkers {
		if i := strings.Index(text, marker); i >= 0 && (best < 0 || i < best) {
			best = i
			bestMarker = marker
		}
	}

	return best, bestMarker
}

// renderCard substitutes blank markers, in order, with the supplied fill
// texts. Substituted text is rescanned, so a fill that itself contains
// markers (a chainer) exposes its own blanks to the following fills.
// Markers beyond the supplied fills are left in place; extra fills are
// ignored.
func renderCard(text string, fills []string) string {
	for _, fill := range fills {
		idx, marker := nextMarker(text)
		if idx < 0 {
			break
		}
		text = text[:idx] + fill + text[idx+len(marker):]
	}

	return text
}
