package main

import (
	_ "embed"
	"encoding/json"
	"errors"
)

type CardType string

const (
	CardNoun      CardType = "noun"
	CardVerb      CardType = "verb"
	CardSituation CardType = "situation"
)

// Card is an immutable card value. Text may contain blank markers
// ([noun], [verb], [bi]); a noun or verb card whose own text contains
// markers is a chainer, and a situation card always has at least one.
type Card struct {
	ID   int      `json:"id"`
	Type CardType `json:"type"`
	Text string   `json:"text"`
}

// CardSet holds the full card pools each room's decks are built from.
type CardSet struct {
	Nouns      []Card `json:"nounCards"`
	Verbs      []Card `json:"verbCards"`
	Situations []Card `json:"situationCards"`
}

//go:embed cards.json
var cardsJSON []byte

func loadCardSet() (*CardSet, error) {
	var set CardSet

	if err := json.Unmarshal(cardsJSON, &set); err != nil {
		return nil, err
	}

	if len(set.Nouns) == 0 || len(set.Verbs) == 0 || len(set.Situations) == 0 {
		return nil, errors.New("card set must contain nouns, verbs, and situations")
	}

	return &set, nil
}
