package domain

import "time"

// RoomRow is a room as the store keeps it. Players are an opaque JSON document;
// only game/adapter.go reads or writes it.
type RoomRow struct {
	ID               string
	HostID           string
	PlayersJSON      []byte
	State            string
	CurrentTurnIndex int
	Category         string
	IsPublic         bool
	CreatedAt        time.Time
}

type GameHistoryRow struct {
	RoomID      string
	WinnerID    string
	WinnerName  string
	PlayersJSON []byte
	CreatedAt   time.Time
}
