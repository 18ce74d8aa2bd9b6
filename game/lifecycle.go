package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
)

type LeaveResult struct {
	RoomID    string
	Room      *domain.Room
	Cancelled bool
	// Members lists the human ids that were in a cancelled room.
	Members []string
}

func (s *Service) CreateRoom(ctx context.Context, hostID, hostName, category string, isPublic bool) (domain.Room, error) {
	room := domain.Room{
		HostID:    hostID,
		Players:   []domain.Player{{ID: hostID, Name: cleanName(hostName)}},
		GameState: domain.StateLobby,
		Category:  domain.NormalizeCategory(category),
		IsPublic:  isPublic,
		CreatedAt: s.clock.Now().UTC(),
	}

	for range maxCodeAttempts {
		room.ID = s.codes.Generate()
		row, err := toRow(room)
		if err != nil {
			return domain.Room{}, err
		}

		err = s.store.InsertRoom(ctx, row)
		if errors.Is(err, domain.ErrDuplicateRoomID) {
			continue
		}
		if err != nil {
			return domain.Room{}, err
		}

		s.setMember(hostID, room.ID)
		log.Info().Str("room_id", room.ID).Str("player_id", hostID).Bool("public", isPublic).Msg("room created")
		return room, nil
	}

	return domain.Room{}, fmt.Errorf("%w: no free room code after %d attempts", domain.ErrDuplicateRoomID, maxCodeAttempts)
}

func (s *Service) Join(ctx context.Context, roomID, playerID, playerName string) (domain.Room, error) {
	var room domain.Room
	err := s.inRoom(ctx, roomID, func(ctx context.Context) error {
		var err error
		room, err = s.load(ctx, roomID)
		if err != nil {
			return err
		}
		if room.GameState != domain.StateLobby {
			return domain.ErrInvalidRoomState
		}

		if room.IndexOf(playerID) >= 0 {
			s.setMember(playerID, roomID)
			return nil
		}
		if len(room.Players) >= domain.MaxPlayers {
			return domain.ErrRoomFull
		}

		room.Players = append(room.Players, domain.Player{ID: playerID, Name: room.UniqueName(cleanName(playerName))})
		if err := s.save(ctx, room); err != nil {
			return err
		}
		s.setMember(playerID, roomID)
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *Service) AddBot(ctx context.Context, roomID, requesterID, personaID string) (domain.Room, error) {
	var room domain.Room
	err := s.inRoom(ctx, roomID, func(ctx context.Context) error {
		var err error
		room, err = s.load(ctx, roomID)
		if err != nil {
			return err
		}
		if requesterID != room.HostID {
			return domain.ErrNotAuthorized
		}
		if room.GameState != domain.StateLobby {
			return domain.ErrInvalidRoomState
		}
		if len(room.Players) >= domain.MaxPlayers {
			return domain.ErrRoomFull
		}

		persona := domain.LookupPersona(personaID)
		room.Players = append(room.Players, domain.Player{
			ID:        newBotID(),
			Name:      room.UniqueName(persona.Name),
			IsReady:   true,
			IsAI:      true,
			PersonaID: persona.ID,
		})
		return s.save(ctx, room)
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *Service) Kick(ctx context.Context, roomID, requesterID, targetID string) (domain.Room, error) {
	var room domain.Room
	err := s.inRoom(ctx, roomID, func(ctx context.Context) error {
		var err error
		room, err = s.load(ctx, roomID)
		if err != nil {
			return err
		}
		if requesterID != room.HostID {
			return domain.ErrNotAuthorized
		}
		if targetID == requesterID {
			return domain.ErrInvalidAction
		}
		idx := room.IndexOf(targetID)
		if idx < 0 {
			return domain.ErrPlayerNotInRoom
		}

		s.removeAt(&room, idx)
		if err := s.save(ctx, room); err != nil {
			return err
		}
		s.clearMember(targetID, roomID)
		s.ensureAITurn(room)
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *Service) Leave(ctx context.Context, playerID string) (LeaveResult, error) {
	roomID, ok := s.RoomOf(playerID)
	if !ok {
		return LeaveResult{}, domain.ErrPlayerNotInRoom
	}

	res := LeaveResult{RoomID: roomID}
	err := s.inRoom(ctx, roomID, func(ctx context.Context) error {
		room, err := s.load(ctx, roomID)
		if isNotFound(err) {
			s.clearMember(playerID, roomID)
		}
		if err != nil {
			return err
		}

		idx := room.IndexOf(playerID)
		if idx < 0 {
			s.clearMember(playerID, roomID)
			return domain.ErrPlayerNotInRoom
		}

		if playerID == room.HostID && room.GameState == domain.StateLobby {
			if err := s.store.DeleteRoom(ctx, roomID); err != nil && !isNotFound(err) {
				return err
			}
			for _, p := range room.Players {
				s.clearMember(p.ID, roomID)
				if !p.IsAI && p.ID != playerID {
					res.Members = append(res.Members, p.ID)
				}
			}
			s.dropSession(roomID)
			res.Cancelled = true
			log.Info().Str("room_id", roomID).Msg("room cancelled by host")
			return nil
		}

		s.removeAt(&room, idx)
		if room.HostID == playerID {
			room.HostID = ""
			if len(room.Players) > 0 {
				room.HostID = room.Players[idx%len(room.Players)].ID
			}
		}
		if err := s.save(ctx, room); err != nil {
			return err
		}
		s.clearMember(playerID, roomID)
		s.ensureAITurn(room)
		res.Room = &room
		return nil
	})
	if err != nil {
		return LeaveResult{}, err
	}
	return res, nil
}

// removeAt takes a player out of a loaded room. A running game that is left
// without humans ends without a winner.
func (s *Service) removeAt(room *domain.Room, idx int) {
	wasTurn := idx == room.CurrentTurnIndex
	room.RemovePlayer(idx)

	if room.GameState != domain.StatePlaying {
		return
	}
	sess := s.session(room.ID)
	if !room.HasHumans() {
		room.GameState = domain.StateEnded
		clear(sess.votes)
		sess.cancelAI()
		log.Info().Str("room_id", room.ID).Msg("no humans left, game ended")
		return
	}
	if wasTurn {
		sess.cancelAI()
	}
}

// ListPublicLobbies is best effort: store failures yield an empty list.
func (s *Service) ListPublicLobbies(ctx context.Context) []domain.Room {
	rows, err := s.store.ListPublicLobbies(ctx, s.cfg.PublicRoomsLimit)
	if err != nil {
		log.Error().Err(err).Msg("listing public lobbies")
		return []domain.Room{}
	}

	rooms := make([]domain.Room, 0, len(rows))
	for _, row := range rows {
		room, err := toRoom(row)
		if err != nil {
			log.Error().Err(err).Str("room_id", row.ID).Msg("skipping unreadable room")
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms
}

// ReapStaleLobbies deletes lobbies older than the configured TTL and returns
// how many were removed.
func (s *Service) ReapStaleLobbies(ctx context.Context) (int, error) {
	rows, err := s.store.DeleteStaleLobbies(ctx, s.cfg.LobbyTTL)
	if err != nil {
		return 0, err
	}

	observer := s.currentObserver()
	for _, row := range rows {
		room, err := toRoom(row)
		if err != nil {
			room = domain.Room{ID: row.ID, HostID: row.HostID, GameState: domain.StateLobby}
			room.Players = []domain.Player{{ID: row.HostID}}
		}

		for _, p := range room.Players {
			s.clearMember(p.ID, room.ID)
		}
		_ = s.inRoom(ctx, room.ID, func(context.Context) error {
			s.dropSession(room.ID)
			return nil
		})
		if observer != nil {
			observer.RoomReaped(room)
		}
	}
	if observer == nil && len(rows) > 0 {
		log.Warn().Int("rooms", len(rows)).Msg("rooms reaped with no subscriber registered")
	}
	return len(rows), nil
}

// RunReaper reaps stale lobbies on every tick until ctx is done.
func (s *Service) RunReaper(ctx context.Context) {
	ticks, stop := s.clock.Ticker(s.cfg.ReapInterval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			n, err := s.ReapStaleLobbies(ctx)
			if err != nil {
				log.Error().Err(err).Msg("reaping stale lobbies")
				continue
			}
			if n > 0 {
				log.Info().Int("rooms", n).Msg("reaped stale lobbies")
			}
		}
	}
}
