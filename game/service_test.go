package game

import (
	"context"
	"testing"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/matt-wisdom/WhoDat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	lion  = domain.SecretIdentity{Title: "Lion", Summary: "The lion is a large cat of the genus Panthera."}
	eagle = domain.SecretIdentity{Title: "Eagle", Summary: "Eagle is the common name for many large birds of prey."}
	tiger = domain.SecretIdentity{Title: "Tiger", Summary: "The tiger is the largest living cat species."}
	wolf  = domain.SecretIdentity{Title: "Wolf", Summary: "The wolf is a large canine native to Eurasia and North America."}
)

type harness struct {
	svc     *Service
	store   *storage.MemoryRepo
	content *MockIdentitySupplier
	judge   *MockSemanticJudge
	oracle  *MockQuestionOracle
	mover   *MockMoveGenerator
	codes   *MockCodeGenerator
	clock   *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:   storage.NewMemoryRepo(),
		content: &MockIdentitySupplier{},
		judge:   &MockSemanticJudge{},
		oracle:  &MockQuestionOracle{},
		mover:   &MockMoveGenerator{},
		codes:   &MockCodeGenerator{},
		clock:   newFakeClock(),
	}
	cfg := DefaultConfig()
	cfg.CollaboratorTimeout = time.Second
	h.svc = NewService(Dependencies{
		Store:   h.store,
		Content: h.content,
		Judge:   h.judge,
		Oracle:  h.oracle,
		Mover:   h.mover,
		Clock:   h.clock,
		Codes:   h.codes,
	}, cfg)
	t.Cleanup(h.svc.Close)
	return h
}

// lobby creates room R1 hosted by A (Alice) with B (Bob) joined.
func (h *harness) lobby(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	h.codes.On("Generate").Return("R1").Once()
	_, err := h.svc.CreateRoom(ctx, "A", "Alice", "Animals", true)
	require.NoError(t, err)
	_, err = h.svc.Join(ctx, "R1", "B", "Bob")
	require.NoError(t, err)
}

// playing deals Lion to A and Eagle to B in room R1.
func (h *harness) playing(t *testing.T) domain.Room {
	t.Helper()
	h.lobby(t)

	h.content.On("GetIdentities", mock.Anything, "Animals", 2, mock.Anything).
		Return([]domain.SecretIdentity{lion, eagle}, nil).Once()
	room, err := h.svc.StartGame(context.Background(), "R1", "A", nil)
	require.NoError(t, err)
	return room
}

func (h *harness) room(t *testing.T, roomID string) domain.Room {
	t.Helper()
	room, err := h.svc.GetRoom(context.Background(), roomID)
	require.NoError(t, err)
	return room
}

func (h *harness) history(t *testing.T, roomID string) []string {
	t.Helper()
	entries, err := h.svc.History(context.Background(), roomID)
	require.NoError(t, err)
	return entries
}

func TestService_SubscribeReplaces(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	first, second := &MockObserver{}, &MockObserver{}
	h.svc.Subscribe(first)
	h.svc.Subscribe(second)

	assert.Same(t, second, h.svc.currentObserver())
}

func TestService_ClosedRejectsWork(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.lobby(t)

	h.svc.Close()

	_, err := h.svc.Join(context.Background(), "R1", "C", "Carol")
	assert.ErrorIs(t, err, ErrServiceClosed)
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"blank", "   ", "Player"},
		{"collapses whitespace", "  Ada \t Lovelace ", "Ada Lovelace"},
		{"truncates", "abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstuvwx"},
		{"multibyte", "Zoë", "Zoë"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cleanName(tt.in))
		})
	}
}

func TestRoomCodes(t *testing.T) {
	t.Parallel()
	gen := NewRoomCodeGenerator()

	for range 50 {
		code := gen.Generate()
		assert.Len(t, code, roomCodeLength)
		assert.NotContainsf(t, code, "O", "code %s", code)
		assert.NotContainsf(t, code, "0", "code %s", code)
	}
}

func TestAdapter_ClampsTurnIndex(t *testing.T) {
	t.Parallel()

	room := domain.Room{
		ID:               "R1",
		Players:          []domain.Player{{ID: "A"}, {ID: "B"}},
		GameState:        domain.StatePlaying,
		CurrentTurnIndex: 1,
	}
	row, err := toRow(room)
	require.NoError(t, err)
	row.CurrentTurnIndex = 7

	got, err := toRoom(row)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentTurnIndex)
}

func TestAdapter_CorruptPlayers(t *testing.T) {
	t.Parallel()

	_, err := toRoom(domain.RoomRow{ID: "R1", PlayersJSON: []byte("{not json")})
	assert.ErrorIs(t, err, domain.UnexpectedDatabaseError)
}

func TestLedger(t *testing.T) {
	t.Parallel()

	entries := []string{
		ledgerEntry("Alice", domain.ActionQuestion, "Is it a mammal?", "Yes"),
		ledgerEntry("Bob", domain.ActionGuess, "Eagle", "Incorrect"),
		ledgerEntry("Alice", domain.ActionGuess, "Tiger", "Incorrect"),
	}

	assert.Equal(t, `[Alice] asked: "Is it a mammal?" -> Answer: Yes`, entries[0])
	assert.Equal(t, `[Bob] guessed: "Eagle" -> Incorrect`, entries[1])
	assert.Equal(t, []string{entries[0], entries[2]}, filterLedger(entries, "Alice"))
	assert.Empty(t, filterLedger(entries, "Carol"))
}

func TestPastGames_StoreFailureReadsAsNone(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	games := h.svc.PastGames(ctx, "R1")
	assert.NotNil(t, games)
	assert.Empty(t, games)
}
