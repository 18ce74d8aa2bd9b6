package realtime

import (
	"context"
	"io"
	"sync"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/matt-wisdom/WhoDat/game"
	"github.com/stretchr/testify/mock"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(reason string) {
	m.Called(reason)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- fakeSocket ---

// fakeSocket is a connection driven through channels, for tests that run the
// pumps for real.
type fakeSocket struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	reason string
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		in:     make(chan []byte),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) Read() ([]byte, error) {
	select {
	case data, ok := <-s.in:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-s.closed:
		return nil, io.EOF
	}
}

func (s *fakeSocket) Write(data []byte) error {
	select {
	case <-s.closed:
		return io.ErrClosedPipe
	default:
	}
	s.out <- data
	return nil
}

func (s *fakeSocket) Ping() error {
	return nil
}

func (s *fakeSocket) Close(reason string) {
	s.once.Do(func() {
		s.mu.Lock()
		s.reason = reason
		s.mu.Unlock()
		close(s.closed)
	})
}

func (s *fakeSocket) closeReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// --- GameService ---

type MockGameService struct {
	mock.Mock
}

func (m *MockGameService) CreateRoom(ctx context.Context, hostID, hostName, category string, isPublic bool) (domain.Room, error) {
	args := m.Called(ctx, hostID, hostName, category, isPublic)
	return args.Get(0).(domain.Room), args.Error(1)
}

func (m *MockGameService) Join(ctx context.Context, roomID, playerID, playerName string) (domain.Room, error) {
	args := m.Called(ctx, roomID, playerID, playerName)
	return args.Get(0).(domain.Room), args.Error(1)
}

func (m *MockGameService) AddBot(ctx context.Context, roomID, requesterID, personaID string) (domain.Room, error) {
	args := m.Called(ctx, roomID, requesterID, personaID)
	return args.Get(0).(domain.Room), args.Error(1)
}

func (m *MockGameService) Kick(ctx context.Context, roomID, requesterID, targetID string) (domain.Room, error) {
	args := m.Called(ctx, roomID, requesterID, targetID)
	return args.Get(0).(domain.Room), args.Error(1)
}

func (m *MockGameService) Leave(ctx context.Context, playerID string) (game.LeaveResult, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(game.LeaveResult), args.Error(1)
}

func (m *MockGameService) StartGame(ctx context.Context, roomID, requesterID string, customNames []string) (domain.Room, error) {
	args := m.Called(ctx, roomID, requesterID, customNames)
	return args.Get(0).(domain.Room), args.Error(1)
}

func (m *MockGameService) ProcessTurn(ctx context.Context, roomID, playerID string, action domain.Action, content string) (game.TurnResult, error) {
	args := m.Called(ctx, roomID, playerID, action, content)
	return args.Get(0).(game.TurnResult), args.Error(1)
}

func (m *MockGameService) VoteToEnd(ctx context.Context, roomID, playerID string) (game.VoteResult, error) {
	args := m.Called(ctx, roomID, playerID)
	return args.Get(0).(game.VoteResult), args.Error(1)
}

func (m *MockGameService) ListPublicLobbies(ctx context.Context) []domain.Room {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Room)
}

func (m *MockGameService) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(domain.Room), args.Error(1)
}

func (m *MockGameService) History(ctx context.Context, roomID string) ([]string, error) {
	args := m.Called(ctx, roomID)
	history, _ := args.Get(0).([]string)
	return history, args.Error(1)
}

func (m *MockGameService) PastGames(ctx context.Context, roomID string) []game.GameRecord {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]game.GameRecord)
}

func (m *MockGameService) RoomOf(playerID string) (string, bool) {
	args := m.Called(playerID)
	return args.String(0), args.Bool(1)
}
