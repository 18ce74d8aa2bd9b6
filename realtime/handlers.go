package realtime

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const (
	ErrMissingNameStr   = "missing-name"
	ErrRoomNotFoundStr  = "room-not-found"
	ErrNotAuthorizedStr = "not-authorized"
	ErrUnexpectedStr    = "unexpected-error"

	qrSize = 256
)

type Handler struct {
	hub       *Hub
	publicURL string
	upgrader  websocket.Upgrader
}

// NewHandler serves the socket and the read-only HTTP views. Origins are
// checked by the router's middleware before the upgrade is reached.
func NewHandler(hub *Hub, publicURL string) *Handler {
	return &Handler{
		hub:       hub,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// RegisterPublic adds the routes that need neither a session nor an
// allowed origin.
func (h *Handler) RegisterPublic(r gin.IRoutes) {
	r.GET("/rooms/:id/qr", h.RoomQR)
}

// Register adds the session-only routes.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/ws", h.ServeWS)
	r.GET("/rooms", h.PublicRooms)
	r.GET("/rooms/:id/history", h.RoomHistory)
	r.GET("/personas", h.Personas)
}

func (h *Handler) ServeWS(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		log.Error().Str("ip", ctx.ClientIP()).Msg("session id missing behind session middleware")
		ctx.String(http.StatusInternalServerError, ErrUnexpectedStr)
		ctx.Abort()
		return
	}
	name := strings.TrimSpace(ctx.Query("name"))
	if name == "" {
		ctx.String(http.StatusBadRequest, ErrMissingNameStr)
		ctx.Abort()
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("player_id", id).Msg("websocket upgrade failed")
		return
	}
	h.hub.Attach(NewClient(id, name, NewWebsocketConnection(conn)))
}

func (h *Handler) PublicRooms(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.hub.svc.ListPublicLobbies(ctx.Request.Context()))
}

func (h *Handler) Personas(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, domain.Personas())
}

// RoomQR renders a PNG QR code of the room's join link.
func (h *Handler) RoomQR(ctx *gin.Context) {
	roomID := strings.ToUpper(ctx.Param("id"))
	if _, err := h.hub.svc.GetRoom(ctx.Request.Context(), roomID); err != nil {
		h.abortWith(ctx, err)
		return
	}

	png, err := qrcode.Encode(h.publicURL+"/join/"+roomID, qrcode.Medium, qrSize)
	if err != nil {
		h.abortWith(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "image/png", png)
}

// RoomHistory is only readable by the room's members.
func (h *Handler) RoomHistory(ctx *gin.Context) {
	roomID := strings.ToUpper(ctx.Param("id"))
	room, err := h.hub.svc.GetRoom(ctx.Request.Context(), roomID)
	if err != nil {
		h.abortWith(ctx, err)
		return
	}
	if room.IndexOf(ctx.GetString("id")) < 0 {
		ctx.String(http.StatusForbidden, ErrNotAuthorizedStr)
		ctx.Abort()
		return
	}

	history, err := h.hub.svc.History(ctx.Request.Context(), roomID)
	if err != nil {
		h.abortWith(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"roomId":  roomID,
		"history": history,
		"games":   h.hub.svc.PastGames(ctx.Request.Context(), roomID),
	})
}

func (h *Handler) abortWith(ctx *gin.Context, err error) {
	if errors.Is(err, domain.ErrRoomNotFound) {
		ctx.String(http.StatusNotFound, ErrRoomNotFoundStr)
		ctx.Abort()
		return
	}
	log.Error().Err(err).Str("path", ctx.FullPath()).Msg("request failed")
	ctx.String(http.StatusInternalServerError, ErrUnexpectedStr)
	ctx.Abort()
}
