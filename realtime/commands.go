package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/matt-wisdom/WhoDat/game"
	"github.com/rs/zerolog/log"
)

const (
	CmdCreateRoom     = "createRoom"
	CmdJoinRoom       = "joinRoom"
	CmdAddBot         = "addBot"
	CmdKickPlayer     = "kickPlayer"
	CmdStartGame      = "startGame"
	CmdSubmitAction   = "submitAction"
	CmdVoteToEnd      = "voteToEnd"
	CmdLeave          = "leave"
	CmdGetPublicRooms = "getPublicRooms"
	CmdListPersonas   = "listPersonas"
	CmdInvitePlayer   = "invitePlayer"
)

// Turn adjudication may wait on the model twice, so commands get more than
// the collaborator timeout.
const commandTimeout = 45 * time.Second

const (
	ErrUnexpected  = "unexpected-error"
	ErrRateLimited = "rate-limited"
)

var errBadPayload = errors.New("bad-payload")

type createRoomRequest struct {
	Category string `json:"category"`
	IsPublic bool   `json:"isPublic"`
}

type roomRequest struct {
	RoomID string `json:"roomId"`
}

type addBotRequest struct {
	RoomID    string `json:"roomId"`
	PersonaID string `json:"personaId"`
}

type kickRequest struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
}

type startGameRequest struct {
	RoomID      string   `json:"roomId"`
	CustomNames []string `json:"customNames"`
}

type submitActionRequest struct {
	RoomID  string `json:"roomId"`
	Action  string `json:"action"`
	Content string `json:"content"`
}

type inviteRequest struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
}

type reply struct {
	Success  bool               `json:"success"`
	Error    string             `json:"error,omitempty"`
	Room     *domain.Room       `json:"room,omitempty"`
	Rooms    []domain.Room      `json:"rooms,omitempty"`
	Personas []domain.Persona   `json:"personas,omitempty"`
	Vote     *votePayload       `json:"vote,omitempty"`
	Turn     *turnResultPayload `json:"turn,omitempty"`
}

// errorCode maps an error onto the code clients see.
func errorCode(err error) string {
	for _, known := range []error{
		domain.ErrRoomNotFound,
		domain.ErrNotYourTurn,
		domain.ErrNotAuthorized,
		domain.ErrInvalidRoomState,
		domain.ErrNoSecretIdentity,
		domain.ErrInvalidAction,
		domain.ErrRoomFull,
		domain.ErrPlayerNotInRoom,
		domain.ErrNotEnoughIdentities,
		domain.ErrCollaboratorFailure,
		game.ErrServiceClosed,
		errBadPayload,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrUnexpected
}

func decode(payload []byte, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return errBadPayload
	}
	return nil
}

// roomFor picks the room a command targets: the one named in the payload, or
// the one the sender is in.
func (h *Hub) roomFor(c *Client, roomID string) string {
	if roomID != "" {
		return roomID
	}
	id, _ := h.svc.RoomOf(c.id)
	return id
}

func (h *Hub) dispatch(c *Client, f Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	r, err := h.handle(ctx, c, f)
	if err != nil {
		code := errorCode(err)
		if code == ErrUnexpected {
			log.Error().Err(err).Str("player_id", c.id).Str("command", f.Type).Msg("command failed")
		}
		c.Send(failureFrame(f.RequestID, code))
		return
	}
	if f.RequestID != 0 {
		r.Success = true
		c.Send(replyFrame(EventReply, f.RequestID, r))
	}
}

// failureFrame answers a request with a failed reply, or raises an error
// event when nobody waits on a reply.
func failureFrame(requestID uint64, code string) []byte {
	if requestID == 0 {
		return eventFrame(EventError, errorPayload{Error: code})
	}
	return replyFrame(EventReply, requestID, reply{Error: code})
}

func (h *Hub) handle(ctx context.Context, c *Client, f Frame) (reply, error) {
	switch f.Type {
	case CmdCreateRoom:
		return h.createRoom(ctx, c, f.Payload)
	case CmdJoinRoom:
		return h.joinRoom(ctx, c, f.Payload)
	case CmdAddBot:
		return h.addBot(ctx, c, f.Payload)
	case CmdKickPlayer:
		return h.kickPlayer(ctx, c, f.Payload)
	case CmdStartGame:
		return h.startGame(ctx, c, f.Payload)
	case CmdSubmitAction:
		return h.submitAction(ctx, c, f.Payload)
	case CmdVoteToEnd:
		return h.voteToEnd(ctx, c, f.Payload)
	case CmdLeave:
		h.leave(ctx, c.id)
		return reply{}, nil
	case CmdGetPublicRooms:
		return reply{Rooms: h.svc.ListPublicLobbies(ctx)}, nil
	case CmdListPersonas:
		return reply{Personas: domain.Personas()}, nil
	case CmdInvitePlayer:
		return h.invitePlayer(ctx, c, f.Payload)
	}
	return reply{}, errBadPayload
}

// leaveOthers takes the sender out of any room other than keep.
func (h *Hub) leaveOthers(ctx context.Context, c *Client, keep string) {
	if current, ok := h.svc.RoomOf(c.id); ok && current != keep {
		h.leave(ctx, c.id)
	}
}

func (h *Hub) createRoom(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req createRoomRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	h.leaveOthers(ctx, c, "")

	room, err := h.svc.CreateRoom(ctx, c.id, c.name, req.Category, req.IsPublic)
	if err != nil {
		return reply{}, err
	}
	log.Info().Str("room_id", room.ID).Str("player_id", c.id).Msg("room created")
	view := room.SanitizedFor(c.id)
	return reply{Room: &view}, nil
}

func (h *Hub) joinRoom(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req roomRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	req.RoomID = strings.ToUpper(strings.TrimSpace(req.RoomID))
	if req.RoomID == "" {
		return reply{}, domain.ErrRoomNotFound
	}
	h.leaveOthers(ctx, c, req.RoomID)

	room, err := h.svc.Join(ctx, req.RoomID, c.id, c.name)
	if err != nil {
		return reply{}, err
	}
	h.broadcastRoom(room, EventRoomUpdate)
	view := room.SanitizedFor(c.id)
	return reply{Room: &view}, nil
}

func (h *Hub) addBot(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req addBotRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	room, err := h.svc.AddBot(ctx, h.roomFor(c, req.RoomID), c.id, req.PersonaID)
	if err != nil {
		return reply{}, err
	}
	h.broadcastRoom(room, EventRoomUpdate)
	return reply{}, nil
}

func (h *Hub) kickPlayer(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req kickRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	roomID := h.roomFor(c, req.RoomID)

	room, err := h.svc.Kick(ctx, roomID, c.id, req.TargetID)
	if err != nil {
		return reply{}, err
	}
	h.sendTo(req.TargetID, eventFrame(EventPlayerKicked, roomPayload{RoomID: room.ID}))
	h.broadcastRoom(room, EventRoomUpdate)
	return reply{}, nil
}

func (h *Hub) startGame(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req startGameRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	room, err := h.svc.StartGame(ctx, h.roomFor(c, req.RoomID), c.id, req.CustomNames)
	if err != nil {
		return reply{}, err
	}
	log.Info().Str("room_id", room.ID).Int("players", len(room.Players)).Msg("game started")
	h.broadcastRoom(room, EventGameStarted)
	return reply{}, nil
}

func (h *Hub) submitAction(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req submitActionRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	action, err := domain.ParseAction(req.Action)
	if err != nil {
		return reply{}, err
	}
	roomID := h.roomFor(c, req.RoomID)

	res, err := h.svc.ProcessTurn(ctx, roomID, c.id, action, req.Content)
	if err != nil {
		return reply{}, err
	}
	h.publishTurn(res)
	return reply{Turn: &turnResultPayload{
		ActorID:          res.ActingPlayerID,
		ActorName:        res.ActingPlayerName,
		Action:           res.Action,
		Content:          res.Content,
		Result:           res.Result,
		Correct:          res.Correct,
		NextTurnPlayerID: res.NextTurnPlayerID,
	}}, nil
}

func (h *Hub) voteToEnd(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req roomRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	roomID := h.roomFor(c, req.RoomID)

	res, err := h.svc.VoteToEnd(ctx, roomID, c.id)
	if err != nil {
		return reply{}, err
	}
	vote := votePayload{VotesFor: res.VotesFor, VotesNeeded: res.VotesNeeded}
	h.broadcast(res.Room, EventVoteUpdate, vote)
	if res.Ended {
		h.broadcast(res.Room, EventGameOver, gameOverPayload{Players: res.Room.Players})
		h.broadcastRoom(res.Room, EventRoomUpdate)
	}
	return reply{Vote: &vote}, nil
}

func (h *Hub) invitePlayer(ctx context.Context, c *Client, payload []byte) (reply, error) {
	var req inviteRequest
	if err := decode(payload, &req); err != nil {
		return reply{}, err
	}
	roomID := h.roomFor(c, req.RoomID)
	room, err := h.svc.GetRoom(ctx, roomID)
	if err != nil {
		return reply{}, err
	}
	if room.IndexOf(c.id) < 0 {
		return reply{}, domain.ErrNotAuthorized
	}
	if !h.Online(req.TargetID) {
		return reply{}, domain.ErrPlayerNotInRoom
	}
	h.sendTo(req.TargetID, eventFrame(EventInvite, invitePayload{RoomID: room.ID, InviterName: c.name}))
	return reply{}, nil
}
