package game

import (
	"context"
	"strings"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
)

// fallbackMove is played when the move generator fails or returns nonsense.
var fallbackMove = domain.Move{Action: domain.ActionQuestion, Content: "Is it a person?"}

// ensureAITurn schedules a move if the room is waiting on a bot that has none
// pending. It must be called from inside the room's actor.
func (s *Service) ensureAITurn(room domain.Room) {
	if room.GameState != domain.StatePlaying {
		return
	}
	current, ok := room.CurrentPlayer()
	if !ok || !current.IsAI {
		return
	}
	sess := s.session(room.ID)
	if sess.aiFor == current.ID {
		return
	}
	s.scheduleAITurn(room.ID, sess, current.ID)
}

func (s *Service) scheduleAITurn(roomID string, sess *session, aiID string) {
	sess.cancelAI()
	ticket := sess.aiTicket
	sess.aiFor = aiID
	sess.aiTimer = s.clock.AfterFunc(s.cfg.AIThinkDelay, func() {
		s.runAITurn(roomID, aiID, ticket)
	})
	log.Debug().Str("room_id", roomID).Str("player_id", aiID).Msg("ai turn scheduled")
}

// runAITurn fires from the think timer. Anything that happened to the room in
// the meantime (a human move, a vote, a re-deal, a kick) invalidates the
// ticket and the turn is dropped.
func (s *Service) runAITurn(roomID, aiID string, ticket uint64) {
	var (
		result TurnResult
		played bool
	)

	err := s.inRoom(s.ctx, roomID, func(ctx context.Context) error {
		sess := s.existingSession(roomID)
		if sess == nil || sess.aiTicket != ticket || sess.aiFor != aiID {
			return nil
		}
		sess.aiFor = ""
		sess.aiTimer = nil

		room, err := s.load(ctx, roomID)
		if err != nil {
			return err
		}
		current, ok := room.CurrentPlayer()
		if room.GameState != domain.StatePlaying || !ok || current.ID != aiID || !current.IsAI {
			return nil
		}

		persona := domain.LookupPersona(current.PersonaID)
		move := s.nextMove(ctx, roomID, persona, room.Category, filterLedger(sess.ledger, current.Name))

		result, err = s.adjudicate(ctx, room, aiID, move.Action, move.Content)
		if err != nil {
			return err
		}
		played = true
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Str("player_id", aiID).Msg("ai turn failed")
		return
	}
	if played {
		s.notifyAITurn(roomID, result)
	}
}

func (s *Service) nextMove(ctx context.Context, roomID string, persona domain.Persona, category string, history []string) domain.Move {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	move, err := s.mover.NextMove(cctx, persona, category, history)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("move generator failed, using fallback")
		return fallbackMove
	}
	if move.Action != domain.ActionQuestion && move.Action != domain.ActionGuess {
		return fallbackMove
	}
	if strings.TrimSpace(move.Content) == "" {
		return fallbackMove
	}
	return move
}

func (s *Service) notifyAITurn(roomID string, result TurnResult) {
	observer := s.currentObserver()
	if observer == nil {
		log.Warn().Str("room_id", roomID).Msg("ai turn resolved with no subscriber registered")
		return
	}
	observer.AITurnResolved(roomID, result)
}
