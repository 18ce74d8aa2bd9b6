package game

import (
	"context"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
)

type RoomStore interface {
	InsertRoom(ctx context.Context, row domain.RoomRow) error
	GetRoom(ctx context.Context, id string) (domain.RoomRow, error)
	UpdateRoom(ctx context.Context, row domain.RoomRow) error
	DeleteRoom(ctx context.Context, id string) error
	ListPublicLobbies(ctx context.Context, limit int) ([]domain.RoomRow, error)
	InsertGameHistory(ctx context.Context, h domain.GameHistoryRow) error
	ListGameHistory(ctx context.Context, roomID string, limit int) ([]domain.GameHistoryRow, error)
	DeleteStaleLobbies(ctx context.Context, ttl time.Duration) ([]domain.RoomRow, error)
}

// IdentitySupplier deals secret identities. GetIdentities returns at least
// count identities whose titles are not in exclude, or an error.
type IdentitySupplier interface {
	GetIdentities(ctx context.Context, category string, count int, exclude []string) ([]domain.SecretIdentity, error)
	ResolveTitles(ctx context.Context, category string, titles []string) ([]domain.SecretIdentity, error)
}

type SemanticJudge interface {
	Score(ctx context.Context, guess, title, context string) (float64, error)
}

type QuestionOracle interface {
	Answer(ctx context.Context, question, context string) (string, error)
}

type MoveGenerator interface {
	NextMove(ctx context.Context, persona domain.Persona, category string, history []string) (domain.Move, error)
}

// Observer receives outcomes nobody is waiting on: AI turns resolved by the
// scheduler and rooms removed by the reaper.
type Observer interface {
	AITurnResolved(roomID string, result TurnResult)
	RoomReaped(room domain.Room)
}

type Timer interface {
	Stop() bool
}

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	Ticker(d time.Duration) (<-chan time.Time, func())
}

type CodeGenerator interface {
	Generate() string
}
