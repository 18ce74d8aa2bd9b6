package game

import (
	"context"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
)

type VoteResult struct {
	VotesFor    int         `json:"votesFor"`
	VotesNeeded int         `json:"votesNeeded"`
	Ended       bool        `json:"ended"`
	Room        domain.Room `json:"room"`
}

// VoteToEnd records playerID's vote. A strict majority of the room's players,
// bots included, ends the game without a winner.
func (s *Service) VoteToEnd(ctx context.Context, roomID, playerID string) (VoteResult, error) {
	var res VoteResult
	err := s.inRoom(ctx, roomID, func(ctx context.Context) error {
		room, err := s.load(ctx, roomID)
		if err != nil {
			return err
		}
		if room.IndexOf(playerID) < 0 {
			return domain.ErrNotAuthorized
		}
		if room.GameState != domain.StatePlaying {
			return domain.ErrInvalidRoomState
		}

		sess := s.session(roomID)
		votes := 0
		for id := range sess.votes {
			if room.IndexOf(id) >= 0 {
				votes++
			}
		}
		if _, dup := sess.votes[playerID]; !dup {
			votes++
		}

		res.VotesFor = votes
		res.VotesNeeded = len(room.Players)/2 + 1
		if votes < res.VotesNeeded {
			sess.votes[playerID] = struct{}{}
			res.Room = room
			return nil
		}

		room.GameState = domain.StateEnded
		if err := s.save(ctx, room); err != nil {
			return err
		}
		clear(sess.votes)
		sess.cancelAI()

		log.Info().Str("room_id", roomID).Int("votes", votes).Msg("game ended by vote")
		res.Ended = true
		res.Room = room
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}
	return res, nil
}
