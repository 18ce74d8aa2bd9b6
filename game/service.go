package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
)

const (
	WinThreshold = 0.7
	WinPoints    = 10

	maxNameLength    = 24
	maxContentLength = 300
	maxCodeAttempts  = 8
	pastGamesLimit   = 10
)

type Config struct {
	AIThinkDelay        time.Duration
	CollaboratorTimeout time.Duration
	LobbyTTL            time.Duration
	ReapInterval        time.Duration
	ActorIdleTimeout    time.Duration
	PublicRoomsLimit    int
}

func DefaultConfig() Config {
	return Config{
		AIThinkDelay:        2 * time.Second,
		CollaboratorTimeout: 20 * time.Second,
		LobbyTTL:            time.Hour,
		ReapInterval:        5 * time.Minute,
		ActorIdleTimeout:    2 * time.Minute,
		PublicRoomsLimit:    20,
	}
}

type Dependencies struct {
	Store   RoomStore
	Content IdentitySupplier
	Judge   SemanticJudge
	Oracle  QuestionOracle
	Mover   MoveGenerator
	Clock   Clock
	Codes   CodeGenerator
}

// session is the in-memory state of a room that is not persisted. Its fields
// are only touched from inside the room's actor.
type session struct {
	ledger []string
	votes  map[string]struct{}
	// held records, per player id, every title dealt to that player here.
	held map[string]map[string]struct{}

	aiTicket uint64
	aiFor    string
	aiTimer  Timer
}

func newSession() *session {
	return &session{
		votes: make(map[string]struct{}),
		held:  make(map[string]map[string]struct{}),
	}
}

func (sess *session) cancelAI() {
	if sess.aiTimer != nil {
		sess.aiTimer.Stop()
	}
	sess.aiTimer = nil
	sess.aiFor = ""
	sess.aiTicket++
}

type Service struct {
	store   RoomStore
	content IdentitySupplier
	judge   SemanticJudge
	oracle  QuestionOracle
	mover   MoveGenerator
	clock   Clock
	codes   CodeGenerator
	cfg     Config

	actors *actors
	ctx    context.Context
	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]*session

	// members maps a human player id to the room it is in.
	membersMu sync.RWMutex
	members   map[string]string

	observerMu sync.RWMutex
	observer   Observer
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = NewRealClock()
	}
	if deps.Codes == nil {
		deps.Codes = NewRoomCodeGenerator()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:    deps.Store,
		content:  deps.Content,
		judge:    deps.Judge,
		oracle:   deps.Oracle,
		mover:    deps.Mover,
		clock:    deps.Clock,
		codes:    deps.Codes,
		cfg:      cfg,
		actors:   newActors(cfg.ActorIdleTimeout),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
		members:  make(map[string]string),
	}
}

// Subscribe registers the observer for AI turn results and reaped rooms.
// It is meant to be called once at startup.
func (s *Service) Subscribe(o Observer) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	if s.observer != nil {
		log.Warn().Msg("replacing game observer")
	}
	s.observer = o
}

func (s *Service) currentObserver() Observer {
	s.observerMu.RLock()
	defer s.observerMu.RUnlock()
	return s.observer
}

// Close stops every room actor and pending AI timer.
func (s *Service) Close() {
	s.cancel()
	s.actors.close()

	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for _, sess := range s.sessions {
		sess.cancelAI()
	}
}

// inRoom runs fn serialized with every other operation on roomID.
func (s *Service) inRoom(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	var opErr error
	if err := s.actors.do(ctx, roomID, func(ctx context.Context) { opErr = fn(ctx) }); err != nil {
		return err
	}
	return opErr
}

func (s *Service) session(roomID string) *session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[roomID]
	if !ok {
		sess = newSession()
		s.sessions[roomID] = sess
	}
	return sess
}

func (s *Service) existingSession(roomID string) *session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return s.sessions[roomID]
}

func (s *Service) dropSession(roomID string) {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[roomID]
	delete(s.sessions, roomID)
	s.sessionsMu.Unlock()
	if ok {
		sess.cancelAI()
	}
}

func (s *Service) setMember(playerID, roomID string) {
	if domain.IsAIPlayerID(playerID) {
		return
	}
	s.membersMu.Lock()
	defer s.membersMu.Unlock()
	s.members[playerID] = roomID
}

// clearMember forgets playerID only if it still points at roomID.
func (s *Service) clearMember(playerID, roomID string) {
	s.membersMu.Lock()
	defer s.membersMu.Unlock()
	if s.members[playerID] == roomID {
		delete(s.members, playerID)
	}
}

// RoomOf returns the room a human player is currently in.
func (s *Service) RoomOf(playerID string) (string, bool) {
	s.membersMu.RLock()
	defer s.membersMu.RUnlock()
	roomID, ok := s.members[playerID]
	return roomID, ok
}

func (s *Service) load(ctx context.Context, roomID string) (domain.Room, error) {
	row, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(row)
}

func (s *Service) save(ctx context.Context, room domain.Room) error {
	row, err := toRow(room)
	if err != nil {
		return err
	}
	return s.store.UpdateRoom(ctx, row)
}

// GetRoom reads the canonical room. Callers sanitize before showing it.
func (s *Service) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	return s.load(ctx, roomID)
}

// History returns a copy of the room's ledger.
func (s *Service) History(ctx context.Context, roomID string) ([]string, error) {
	var entries []string
	err := s.inRoom(ctx, roomID, func(ctx context.Context) error {
		if sess := s.existingSession(roomID); sess != nil {
			entries = append([]string{}, sess.ledger...)
		}
		return nil
	})
	return entries, err
}

// GameRecord is one finished game of a room, newest first in PastGames.
type GameRecord struct {
	WinnerID   string    `json:"winnerId,omitempty"`
	WinnerName string    `json:"winnerName,omitempty"`
	EndedAt    time.Time `json:"endedAt"`
}

// PastGames lists the room's finished games. Store failures read as none.
func (s *Service) PastGames(ctx context.Context, roomID string) []GameRecord {
	rows, err := s.store.ListGameHistory(ctx, roomID, pastGamesLimit)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("listing past games")
		return []GameRecord{}
	}
	records := make([]GameRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, GameRecord{WinnerID: r.WinnerID, WinnerName: r.WinnerName, EndedAt: r.CreatedAt})
	}
	return records
}

func cleanName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "Player"
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}

func newBotID() string {
	return domain.AIPlayerPrefix + uuid.NewString()
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrRoomNotFound)
}

func collaboratorFailure(err error) error {
	if errors.Is(err, domain.ErrCollaboratorFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrCollaboratorFailure, err)
}
