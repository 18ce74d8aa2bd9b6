package domain

import "errors"

var (
	ErrRoomNotFound        = errors.New("room-not-found")
	ErrNotYourTurn         = errors.New("not-your-turn")
	ErrNotAuthorized       = errors.New("not-authorized")
	ErrInvalidRoomState    = errors.New("invalid-room-state")
	ErrNoSecretIdentity    = errors.New("no-secret-identity")
	ErrInvalidAction       = errors.New("invalid-action")
	ErrRoomFull            = errors.New("room-full")
	ErrPlayerNotInRoom     = errors.New("player-not-in-room")
	ErrCollaboratorFailure = errors.New("collaborator-failure")
	ErrNotEnoughIdentities = errors.New("not-enough-identities")
)

var (
	ErrDuplicateRoomID      = errors.New("duplicate-room-id")
	ErrArticleNotFound      = errors.New("article-not-found")
	UnexpectedDatabaseError = errors.New("unexpected-database-error")
)

var (
	ErrInvalidSigningAlg             = errors.New("invalid-signing-alg")
	ErrExpiredToken                  = errors.New("expired-token")
	ErrInvalidTokenSignature         = errors.New("invalid-token-signature")
	ErrCorruptedToken                = errors.New("corrupted-token")
	UnexpectedTokenGenerationError   = errors.New("unexpected-token-generation-error")
	UnexpectedTokenVerificationError = errors.New("unexpected-token-verification-error")
)
