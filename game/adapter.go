package game

import (
	"encoding/json"
	"fmt"

	"github.com/matt-wisdom/WhoDat/domain"
)

// toRoom and toRow are the only places the players document is decoded or
// encoded; everything else in the package works on domain.Room.
func toRoom(row domain.RoomRow) (domain.Room, error) {
	players := []domain.Player{}
	if len(row.PlayersJSON) > 0 {
		if err := json.Unmarshal(row.PlayersJSON, &players); err != nil {
			return domain.Room{}, fmt.Errorf("%w: decode players of room %s: %w", domain.UnexpectedDatabaseError, row.ID, err)
		}
	}

	room := domain.Room{
		ID:               row.ID,
		HostID:           row.HostID,
		Players:          players,
		GameState:        domain.GameState(row.State),
		CurrentTurnIndex: row.CurrentTurnIndex,
		Category:         row.Category,
		IsPublic:         row.IsPublic,
		CreatedAt:        row.CreatedAt,
	}
	if room.CurrentTurnIndex < 0 || room.CurrentTurnIndex >= len(room.Players) {
		room.CurrentTurnIndex = 0
	}
	return room, nil
}

func toRow(room domain.Room) (domain.RoomRow, error) {
	players := room.Players
	if players == nil {
		players = []domain.Player{}
	}
	data, err := json.Marshal(players)
	if err != nil {
		return domain.RoomRow{}, fmt.Errorf("encode players of room %s: %w", room.ID, err)
	}
	return domain.RoomRow{
		ID:               room.ID,
		HostID:           room.HostID,
		PlayersJSON:      data,
		State:            string(room.GameState),
		CurrentTurnIndex: room.CurrentTurnIndex,
		Category:         room.Category,
		IsPublic:         room.IsPublic,
		CreatedAt:        room.CreatedAt,
	}, nil
}

func playersJSON(players []domain.Player) []byte {
	data, err := json.Marshal(players)
	if err != nil {
		return []byte("[]")
	}
	return data
}
