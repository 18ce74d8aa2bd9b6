package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
)

const (
	ErrMissingTokenStr = "missing-token"
	ErrExpiredTokenStr = "expired-token"
	ErrUnknownStr      = "unknown-error"

	cookieName = "token"
)

type TokenManager interface {
	Generate(playerID string, now time.Time) (string, error)
	Verify(token string) (string, error)
}

// SessionHandler hands out anonymous player ids. There are no accounts: the
// id lives in a signed cookie and is reused across reconnects.
type SessionHandler struct {
	tokens       TokenManager
	cookieMaxAge time.Duration
	secure       bool
	now          func() time.Time
}

func NewSessionHandler(tokens TokenManager, cookieMaxAge time.Duration, secure bool) *SessionHandler {
	return &SessionHandler{
		tokens:       tokens,
		cookieMaxAge: cookieMaxAge,
		secure:       secure,
		now:          time.Now,
	}
}

func (h *SessionHandler) Register(r gin.IRoutes) {
	r.POST("/session", h.StartSession)
	r.POST("/session/logout", h.Logout)
}

// StartSession keeps the player id of a still valid cookie and issues a new
// one otherwise. Either way the cookie is refreshed.
func (h *SessionHandler) StartSession(ctx *gin.Context) {
	id := ""
	if token, err := ctx.Cookie(cookieName); err == nil {
		if existing, err := h.tokens.Verify(token); err == nil {
			id = existing
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	token, err := h.tokens.Generate(id, h.now())
	if err != nil {
		log.Error().Err(err).Msg("issuing session token")
		ctx.String(http.StatusInternalServerError, ErrUnknownStr)
		ctx.Abort()
		return
	}

	h.setCookie(ctx, token, int(h.cookieMaxAge.Seconds()))
	ctx.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *SessionHandler) Logout(ctx *gin.Context) {
	h.setCookie(ctx, "", -1)
	ctx.Status(http.StatusOK)
}

func (h *SessionHandler) setCookie(ctx *gin.Context, token string, maxAge int) {
	if h.secure {
		ctx.SetSameSite(http.SameSiteNoneMode)
	} else {
		ctx.SetSameSite(http.SameSiteLaxMode)
	}
	ctx.SetCookie(cookieName, token, maxAge, "/", "", h.secure, true)
}

// RequireSessionMiddleware stores the caller's player id under "id". Tokens
// that were tampered with are answered after trollTime.
func (h *SessionHandler) RequireSessionMiddleware(trollTime time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(cookieName)
		if err != nil {
			ctx.String(http.StatusUnauthorized, ErrMissingTokenStr)
			ctx.Abort()
			return
		}

		id, err := h.tokens.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidSigningAlg), errors.Is(err, domain.ErrInvalidTokenSignature), errors.Is(err, domain.ErrCorruptedToken):
				log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("rejected session token")
				time.Sleep(trollTime)
				ctx.Status(http.StatusInternalServerError)
				ctx.Abort()
			case errors.Is(err, domain.ErrExpiredToken):
				ctx.String(http.StatusUnauthorized, ErrExpiredTokenStr)
				ctx.Abort()
			default:
				log.Error().Err(err).Msg("verifying session token")
				ctx.String(http.StatusInternalServerError, ErrUnknownStr)
				ctx.Abort()
			}
			return
		}

		ctx.Set("id", id)
		ctx.Next()
	}
}
