package domain

import (
	"strconv"
	"strings"
	"time"
)

type GameState string

const (
	StateLobby   GameState = "LOBBY"
	StatePlaying GameState = "PLAYING"
	StateEnded   GameState = "ENDED"
)

const (
	MaxPlayers      = 10
	DefaultCategory = "Animals"
	AIPlayerPrefix  = "ai_"
)

var Categories = []string{"People", "Animals", "Countries", "Places"}

// NormalizeCategory maps an arbitrary client value onto a known category,
// matching case-insensitively and falling back to DefaultCategory.
func NormalizeCategory(category string) string {
	for _, c := range Categories {
		if strings.EqualFold(c, strings.TrimSpace(category)) {
			return c
		}
	}
	return DefaultCategory
}

func IsAIPlayerID(id string) bool {
	return strings.HasPrefix(id, AIPlayerPrefix)
}

type SecretIdentity struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	FullText string `json:"fullText,omitempty"`
	Image    string `json:"image"`
}

// Context is the text questions and guesses are adjudicated against.
func (si SecretIdentity) Context() string {
	if si.FullText != "" {
		return si.FullText
	}
	return si.Summary
}

type Player struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Score          int             `json:"score"`
	IsReady        bool            `json:"isReady"`
	SecretIdentity *SecretIdentity `json:"secretIdentity,omitempty"`
	Winner         bool            `json:"winner,omitempty"`
	IsAI           bool            `json:"isAI,omitempty"`
	PersonaID      string          `json:"personaId,omitempty"`
}

func (p Player) clone() Player {
	if p.SecretIdentity != nil {
		si := *p.SecretIdentity
		p.SecretIdentity = &si
	}
	return p
}

type Room struct {
	ID               string    `json:"id"`
	HostID           string    `json:"hostId"`
	Players          []Player  `json:"players"`
	GameState        GameState `json:"gameState"`
	CurrentTurnIndex int       `json:"currentTurnIndex"`
	Category         string    `json:"category"`
	IsPublic         bool      `json:"isPublic"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Clone returns a deep copy; identities are copied, not shared.
func (r Room) Clone() Room {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = p.clone()
	}
	r.Players = players
	return r
}

// SanitizedFor returns the copy of the room a given viewer is allowed to see:
// while a game is running the viewer's own identity is removed.
func (r Room) SanitizedFor(viewerID string) Room {
	c := r.Clone()
	if c.GameState != StatePlaying {
		return c
	}
	for i := range c.Players {
		if c.Players[i].ID == viewerID {
			c.Players[i].SecretIdentity = nil
		}
	}
	return c
}

func (r Room) IndexOf(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r Room) CurrentPlayer() (Player, bool) {
	if len(r.Players) == 0 || r.CurrentTurnIndex < 0 || r.CurrentTurnIndex >= len(r.Players) {
		return Player{}, false
	}
	return r.Players[r.CurrentTurnIndex], true
}

func (r Room) HasHumans() bool {
	for _, p := range r.Players {
		if !p.IsAI {
			return true
		}
	}
	return false
}

func (r Room) Winner() (Player, bool) {
	for _, p := range r.Players {
		if p.Winner {
			return p, true
		}
	}
	return Player{}, false
}

// RemovePlayer drops the player at index i and keeps CurrentTurnIndex pointing
// at the same logical turn-holder. When the turn-holder itself is removed the
// turn passes to whoever now occupies that slot.
func (r *Room) RemovePlayer(i int) {
	if i < 0 || i >= len(r.Players) {
		return
	}
	r.Players = append(r.Players[:i:i], r.Players[i+1:]...)
	if i < r.CurrentTurnIndex {
		r.CurrentTurnIndex--
	}
	if r.CurrentTurnIndex >= len(r.Players) {
		r.CurrentTurnIndex = 0
	}
}

// UniqueName returns name, suffixed with a counter if a player in the room
// already uses it. Ledger filtering relies on names being unique.
func (r Room) UniqueName(name string) string {
	taken := make(map[string]bool, len(r.Players))
	for _, p := range r.Players {
		taken[strings.ToLower(p.Name)] = true
	}
	if !taken[strings.ToLower(name)] {
		return name
	}
	for n := 2; ; n++ {
		candidate := name + " " + strconv.Itoa(n)
		if !taken[strings.ToLower(candidate)] {
			return candidate
		}
	}
}
