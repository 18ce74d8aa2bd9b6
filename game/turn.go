package game

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
)

const (
	AnswerYes       = "Yes"
	AnswerNo        = "No"
	ResultCorrect   = "Correct!"
	ResultIncorrect = "Incorrect"
)

type TurnResult struct {
	Action           domain.Action  `json:"action"`
	Content          string         `json:"content"`
	Result           string         `json:"result"`
	Correct          bool           `json:"correct"`
	ActingPlayerID   string         `json:"actingPlayerId"`
	ActingPlayerName string         `json:"actingPlayerName"`
	NextTurnPlayerID string         `json:"nextTurnPlayerId,omitempty"`
	Room             domain.Room    `json:"room"`
	GameEnded        bool           `json:"gameEnded"`
	Winner           *domain.Player `json:"winner,omitempty"`
}

// StartGame deals fresh identities and moves the room to PLAYING. Calling it
// on a running game re-deals.
func (s *Service) StartGame(ctx context.Context, roomID, requesterID string, customNames []string) (domain.Room, error) {
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
		if room.GameState == domain.StateEnded {
			return domain.ErrInvalidRoomState
		}

		sess := s.session(roomID)
		identities, err := s.deal(ctx, room, sess, customNames)
		if err != nil {
			return err
		}

		for i := range room.Players {
			id := identities[i]
			room.Players[i].SecretIdentity = &id
			room.Players[i].Winner = false
		}
		room.GameState = domain.StatePlaying
		room.CurrentTurnIndex = 0

		if err := s.save(ctx, room); err != nil {
			return err
		}

		for _, p := range room.Players {
			if sess.held[p.ID] == nil {
				sess.held[p.ID] = make(map[string]struct{})
			}
			sess.held[p.ID][titleKey(p.SecretIdentity.Title)] = struct{}{}
		}
		sess.ledger = nil
		clear(sess.votes)
		sess.cancelAI()
		s.ensureAITurn(room)

		log.Info().Str("room_id", roomID).Int("players", len(room.Players)).Msg("game started")
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// heldBy is every title the player was dealt in this room, including the one
// stored on the player, which survives a process restart.
func heldBy(sess *session, p domain.Player) map[string]struct{} {
	held := make(map[string]struct{}, len(sess.held[p.ID])+1)
	for t := range sess.held[p.ID] {
		held[t] = struct{}{}
	}
	if p.SecretIdentity != nil {
		held[titleKey(p.SecretIdentity.Title)] = struct{}{}
	}
	return held
}

func (s *Service) deal(ctx context.Context, room domain.Room, sess *session, customNames []string) ([]domain.SecretIdentity, error) {
	n := len(room.Players)
	if n == 0 {
		return nil, nil
	}

	held := make([]map[string]struct{}, n)
	for i, p := range room.Players {
		held[i] = heldBy(sess, p)
	}

	if len(customNames) > 0 {
		return s.dealCustom(ctx, room, held, customNames)
	}

	exclude := []string{}
	seen := map[string]struct{}{}
	for _, h := range held {
		for t := range h {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				exclude = append(exclude, t)
			}
		}
	}

	candidates, err := s.fetchIdentities(ctx, room.Category, n, exclude)
	if errors.Is(err, domain.ErrNotEnoughIdentities) {
		// The category ran dry: only keep each player's latest identity out.
		exclude = exclude[:0]
		for i, p := range room.Players {
			held[i] = map[string]struct{}{}
			if p.SecretIdentity != nil {
				t := titleKey(p.SecretIdentity.Title)
				held[i][t] = struct{}{}
				exclude = append(exclude, t)
			}
			delete(sess.held, p.ID)
		}
		candidates, err = s.fetchIdentities(ctx, room.Category, n, exclude)
	}
	if err != nil {
		return nil, err
	}

	dealt, ok := assignFresh(candidates, held)
	if !ok {
		return nil, domain.ErrNotEnoughIdentities
	}
	return dealt, nil
}

func (s *Service) fetchIdentities(ctx context.Context, category string, count int, exclude []string) ([]domain.SecretIdentity, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	identities, err := s.content.GetIdentities(cctx, category, count, exclude)
	if err != nil {
		if errors.Is(err, domain.ErrNotEnoughIdentities) {
			return nil, err
		}
		return nil, collaboratorFailure(err)
	}
	if len(identities) < count {
		return nil, domain.ErrNotEnoughIdentities
	}
	return identities, nil
}

func (s *Service) dealCustom(ctx context.Context, room domain.Room, held []map[string]struct{}, names []string) ([]domain.SecretIdentity, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	resolved, err := s.content.ResolveTitles(cctx, room.Category, names)
	if err != nil {
		return nil, collaboratorFailure(err)
	}
	if len(resolved) < len(room.Players) {
		return nil, domain.ErrNotEnoughIdentities
	}

	// A few shuffles find an assignment that avoids repeats whenever one is
	// reasonably likely to exist.
	for range 10 {
		rand.Shuffle(len(resolved), func(i, j int) { resolved[i], resolved[j] = resolved[j], resolved[i] })
		if dealt, ok := assignFresh(resolved, held); ok {
			return dealt, nil
		}
	}
	return nil, domain.ErrNotEnoughIdentities
}

// assignFresh gives player i the first unused candidate not in held[i].
func assignFresh(candidates []domain.SecretIdentity, held []map[string]struct{}) ([]domain.SecretIdentity, bool) {
	used := make([]bool, len(candidates))
	dealt := make([]domain.SecretIdentity, len(held))
	for i := range held {
		found := false
		for j, c := range candidates {
			if used[j] {
				continue
			}
			if _, stale := held[i][titleKey(c.Title)]; stale {
				continue
			}
			used[j] = true
			dealt[i] = c
			found = true
			break
		}
		if !found {
			return nil, false
		}
	}
	return dealt, true
}

func (s *Service) ProcessTurn(ctx context.Context, roomID, playerID string, action domain.Action, content string) (TurnResult, error) {
	var result TurnResult
	err := s.inRoom(ctx, roomID, func(ctx context.Context) error {
		room, err := s.load(ctx, roomID)
		if err != nil {
			return err
		}
		result, err = s.adjudicate(ctx, room, playerID, action, content)
		return err
	})
	if err != nil {
		return TurnResult{}, err
	}
	return result, nil
}

// adjudicate runs one action against a loaded room. It must be called from
// inside the room's actor. Every rejection happens before the first write.
func (s *Service) adjudicate(ctx context.Context, room domain.Room, playerID string, action domain.Action, content string) (TurnResult, error) {
	current, ok := room.CurrentPlayer()
	if room.GameState != domain.StatePlaying || !ok || current.ID != playerID {
		return TurnResult{}, domain.ErrNotYourTurn
	}
	if action != domain.ActionQuestion && action != domain.ActionGuess {
		return TurnResult{}, domain.ErrInvalidAction
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return TurnResult{}, domain.ErrInvalidAction
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		content = string([]rune(content)[:maxContentLength])
	}
	if current.SecretIdentity == nil {
		return TurnResult{}, domain.ErrNoSecretIdentity
	}

	identity := *current.SecretIdentity
	idx := room.CurrentTurnIndex
	sess := s.session(room.ID)
	result := TurnResult{
		Action:           action,
		Content:          content,
		ActingPlayerID:   current.ID,
		ActingPlayerName: current.Name,
	}

	if action == domain.ActionQuestion {
		result.Result = s.ask(ctx, room.ID, content, identity.Context())
	} else {
		score := s.score(ctx, room.ID, content, identity.Title, identity.Context())
		if score > WinThreshold {
			return s.win(ctx, room, idx, sess, result)
		}
		result.Result = ResultIncorrect
	}

	room.CurrentTurnIndex = (idx + 1) % len(room.Players)
	if err := s.save(ctx, room); err != nil {
		return TurnResult{}, err
	}
	sess.ledger = append(sess.ledger, ledgerEntry(current.Name, action, content, result.Result))

	result.NextTurnPlayerID = room.Players[room.CurrentTurnIndex].ID
	result.Room = room
	s.ensureAITurn(room)
	return result, nil
}

func (s *Service) win(ctx context.Context, room domain.Room, idx int, sess *session, result TurnResult) (TurnResult, error) {
	room.Players[idx].Score += WinPoints
	room.Players[idx].Winner = true
	room.GameState = domain.StateEnded

	if err := s.save(ctx, room); err != nil {
		return TurnResult{}, err
	}
	clear(sess.votes)
	sess.cancelAI()

	winner := room.Players[idx]
	err := s.store.InsertGameHistory(ctx, domain.GameHistoryRow{
		RoomID:      room.ID,
		WinnerID:    winner.ID,
		WinnerName:  winner.Name,
		PlayersJSON: playersJSON(room.Players),
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", room.ID).Msg("recording game history")
	}

	log.Info().Str("room_id", room.ID).Str("player_id", winner.ID).Msg("game won")
	result.Result = ResultCorrect
	result.Correct = true
	result.GameEnded = true
	result.Winner = &winner
	result.Room = room
	return result, nil
}

// ask never fails: an oracle error counts as "No".
func (s *Service) ask(ctx context.Context, roomID, question, text string) string {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	answer, err := s.oracle.Answer(cctx, question, text)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("question oracle failed, answering No")
		return AnswerNo
	}
	if strings.EqualFold(strings.TrimSpace(answer), AnswerYes) {
		return AnswerYes
	}
	return AnswerNo
}

// score never fails: a judge error counts as no match.
func (s *Service) score(ctx context.Context, roomID, guess, title, text string) float64 {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	score, err := s.judge.Score(cctx, guess, title, text)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("semantic judge failed, scoring 0")
		return 0
	}
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(1, score))
}
