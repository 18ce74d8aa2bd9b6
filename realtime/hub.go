package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/matt-wisdom/WhoDat/game"
	"github.com/rs/zerolog/log"
)

type GameService interface {
	CreateRoom(ctx context.Context, hostID, hostName, category string, isPublic bool) (domain.Room, error)
	Join(ctx context.Context, roomID, playerID, playerName string) (domain.Room, error)
	AddBot(ctx context.Context, roomID, requesterID, personaID string) (domain.Room, error)
	Kick(ctx context.Context, roomID, requesterID, targetID string) (domain.Room, error)
	Leave(ctx context.Context, playerID string) (game.LeaveResult, error)
	StartGame(ctx context.Context, roomID, requesterID string, customNames []string) (domain.Room, error)
	ProcessTurn(ctx context.Context, roomID, playerID string, action domain.Action, content string) (game.TurnResult, error)
	VoteToEnd(ctx context.Context, roomID, playerID string) (game.VoteResult, error)
	ListPublicLobbies(ctx context.Context) []domain.Room
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	History(ctx context.Context, roomID string) ([]string, error)
	PastGames(ctx context.Context, roomID string) []game.GameRecord
	RoomOf(playerID string) (string, bool)
}

const (
	EventRoomUpdate    = "room_update"
	EventGameStarted   = "game_started"
	EventTurnResult    = "turn_result"
	EventGameOver      = "game_over"
	EventVoteUpdate    = "end_game_vote_update"
	EventGameCancelled = "game_cancelled"
	EventPlayerKicked  = "player_kicked"
	EventInvite        = "invite_received"
	EventError         = "error"
	EventReply         = "reply"
)

type turnResultPayload struct {
	ActorID          string        `json:"actorId"`
	ActorName        string        `json:"actorName"`
	Action           domain.Action `json:"action"`
	Content          string        `json:"content"`
	Result           string        `json:"result"`
	Correct          bool          `json:"correct"`
	NextTurnPlayerID string        `json:"nextTurnPlayerId,omitempty"`
}

type gameOverPayload struct {
	Winner  *domain.Player  `json:"winner"`
	Players []domain.Player `json:"players"`
}

type votePayload struct {
	VotesFor    int `json:"votesFor"`
	VotesNeeded int `json:"votesNeeded"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type invitePayload struct {
	RoomID      string `json:"roomId"`
	InviterName string `json:"inviterName"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Hub owns the live connections, one per player id, and fans room events out
// to them. It is the game service's observer.
type Hub struct {
	svc GameService

	mu      sync.RWMutex
	clients map[string]*Client
	// closing is set by CloseAll; sockets dropped after that keep their seats.
	closing bool
}

func NewHub(svc GameService) *Hub {
	return &Hub{
		svc:     svc,
		clients: make(map[string]*Client),
	}
}

// Attach serves c until its socket fails. A newer connection for the same
// player replaces the older one.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		c.Close("server-shutdown")
		return
	}
	old := h.clients[c.id]
	h.clients[c.id] = c
	h.mu.Unlock()

	if old != nil {
		old.Close("replaced")
	}
	log.Debug().Str("player_id", c.id).Msg("client attached")

	go c.WritePump()
	c.ReadPump(h.dispatch)
	h.detach(c)
}

func (h *Hub) detach(c *Client) {
	c.Close("")

	h.mu.Lock()
	current := h.clients[c.id] == c
	if current {
		delete(h.clients, c.id)
	}
	closing := h.closing
	h.mu.Unlock()

	if !current || closing {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	h.leave(ctx, c.id)
	log.Debug().Str("player_id", c.id).Msg("client detached")
}

func (h *Hub) client(playerID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[playerID]
}

func (h *Hub) Online(playerID string) bool {
	return h.client(playerID) != nil
}

func (h *Hub) sendTo(playerID string, data []byte) {
	if c := h.client(playerID); c != nil {
		c.Send(data)
	}
}

// broadcastRoom sends each connected player the room as that player may see it.
func (h *Hub) broadcastRoom(room domain.Room, eventType string) {
	for _, p := range room.Players {
		if p.IsAI {
			continue
		}
		h.sendTo(p.ID, eventFrame(eventType, room.SanitizedFor(p.ID)))
	}
}

func (h *Hub) broadcast(room domain.Room, eventType string, v any) {
	data := eventFrame(eventType, v)
	for _, p := range room.Players {
		if !p.IsAI {
			h.sendTo(p.ID, data)
		}
	}
}

func (h *Hub) publishTurn(res game.TurnResult) {
	h.broadcast(res.Room, EventTurnResult, turnResultPayload{
		ActorID:          res.ActingPlayerID,
		ActorName:        res.ActingPlayerName,
		Action:           res.Action,
		Content:          res.Content,
		Result:           res.Result,
		Correct:          res.Correct,
		NextTurnPlayerID: res.NextTurnPlayerID,
	})
	if res.GameEnded {
		h.broadcast(res.Room, EventGameOver, gameOverPayload{Winner: res.Winner, Players: res.Room.Players})
	}
	h.broadcastRoom(res.Room, EventRoomUpdate)
}

func (h *Hub) publishLeave(res game.LeaveResult) {
	if res.Cancelled {
		data := eventFrame(EventGameCancelled, roomPayload{RoomID: res.RoomID})
		for _, id := range res.Members {
			h.sendTo(id, data)
		}
		return
	}
	if res.Room != nil {
		h.broadcastRoom(*res.Room, EventRoomUpdate)
	}
}

// leave takes playerID out of its room, if any, and tells the others.
func (h *Hub) leave(ctx context.Context, playerID string) {
	if _, ok := h.svc.RoomOf(playerID); !ok {
		return
	}
	res, err := h.svc.Leave(ctx, playerID)
	if err != nil {
		log.Warn().Err(err).Str("player_id", playerID).Msg("leaving room")
		return
	}
	h.publishLeave(res)
}

func (h *Hub) AITurnResolved(roomID string, res game.TurnResult) {
	log.Debug().Str("room_id", roomID).Str("player_id", res.ActingPlayerID).Msg("publishing ai turn")
	h.publishTurn(res)
}

func (h *Hub) RoomReaped(room domain.Room) {
	h.broadcast(room, EventGameCancelled, roomPayload{RoomID: room.ID})
}

// RunPinger pings every connection on each tick until ctx is done.
func (h *Hub) RunPinger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, c := range h.clients {
				c.Ping()
			}
			h.mu.RUnlock()
		}
	}
}

// CloseAll disconnects every client on shutdown. Players keep their rooms
// and later connections are refused.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closing = true
	for _, c := range h.clients {
		c.Close("server-shutdown")
	}
}
