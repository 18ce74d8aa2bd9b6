package domain

import (
	"slices"
	"strings"
)

type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"-"`
}

const DefaultPersonaID = "standard"

var personas = map[string]Persona{
	"standard": {
		ID:           "standard",
		Name:         "Standard AI",
		Description:  "A balanced player.",
		SystemPrompt: "You are a casual player in a 20 questions style game. Ask reasonable questions and make logical guesses. Keep it brief.",
	},
	"sherlock": {
		ID:           "sherlock",
		Name:         "Sherlock",
		Description:  "Highly logical and precise.",
		SystemPrompt: "You are Sherlock Holmes. You are playing a 20 questions game. Your goal is to deduce the identity using pure logic. Ask highly specific, binary questions. When you guess, be 100% sure. Speak in a deductive, slightly arrogant tone.",
	},
	"joker": {
		ID:           "joker",
		Name:         "The Joker",
		Description:  "Chaotic and funny.",
		SystemPrompt: "You are The Joker. You are playing a game. You are chaotic. Ask weird, funny, or slightly unhinged questions that are still technically valid. Make wild guesses occasionally. Speak with a chaotic, manic energy.",
	},
	"toddler": {
		ID:           "toddler",
		Name:         "Toddler",
		Description:  "Asks simple questions.",
		SystemPrompt: "You are a 4 year old child. You are playing a guessing game. Ask very simple, innocent questions. Use simple words. Get excited easily.",
	},
}

// LookupPersona never fails: unknown ids get the standard persona.
func LookupPersona(id string) Persona {
	if p, ok := personas[strings.ToLower(strings.TrimSpace(id))]; ok {
		return p
	}
	return personas[DefaultPersonaID]
}

// Personas lists every persona ordered by id.
func Personas() []Persona {
	list := make([]Persona, 0, len(personas))
	for _, p := range personas {
		list = append(list, p)
	}
	slices.SortFunc(list, func(a, b Persona) int { return strings.Compare(a.ID, b.ID) })
	return list
}

type Action string

const (
	ActionQuestion Action = "QUESTION"
	ActionGuess    Action = "GUESS"
)

func ParseAction(s string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionQuestion:
		return ActionQuestion, nil
	case ActionGuess:
		return ActionGuess, nil
	}
	return "", ErrInvalidAction
}

type Move struct {
	Action  Action `json:"action"`
	Content string `json:"content"`
}
