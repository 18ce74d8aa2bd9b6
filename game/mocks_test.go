package game

import (
	"context"
	"sync"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/stretchr/testify/mock"
)

// --- IdentitySupplier ---

type MockIdentitySupplier struct {
	mock.Mock
}

func (m *MockIdentitySupplier) GetIdentities(ctx context.Context, category string, count int, exclude []string) ([]domain.SecretIdentity, error) {
	args := m.Called(ctx, category, count, exclude)
	ids, _ := args.Get(0).([]domain.SecretIdentity)
	return ids, args.Error(1)
}

func (m *MockIdentitySupplier) ResolveTitles(ctx context.Context, category string, titles []string) ([]domain.SecretIdentity, error) {
	args := m.Called(ctx, category, titles)
	ids, _ := args.Get(0).([]domain.SecretIdentity)
	return ids, args.Error(1)
}

// --- SemanticJudge ---

type MockSemanticJudge struct {
	mock.Mock
}

func (m *MockSemanticJudge) Score(ctx context.Context, guess, title, text string) (float64, error) {
	args := m.Called(ctx, guess, title, text)
	return args.Get(0).(float64), args.Error(1)
}

// --- QuestionOracle ---

type MockQuestionOracle struct {
	mock.Mock
}

func (m *MockQuestionOracle) Answer(ctx context.Context, question, text string) (string, error) {
	args := m.Called(ctx, question, text)
	return args.String(0), args.Error(1)
}

// --- MoveGenerator ---

type MockMoveGenerator struct {
	mock.Mock
}

func (m *MockMoveGenerator) NextMove(ctx context.Context, persona domain.Persona, category string, history []string) (domain.Move, error) {
	args := m.Called(ctx, persona, category, history)
	return args.Get(0).(domain.Move), args.Error(1)
}

// --- Observer ---

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) AITurnResolved(roomID string, result TurnResult) {
	m.Called(roomID, result)
}

func (m *MockObserver) RoomReaped(room domain.Room) {
	m.Called(room)
}

// --- CodeGenerator ---

type MockCodeGenerator struct {
	mock.Mock
}

func (m *MockCodeGenerator) Generate() string {
	args := m.Called()
	return args.String(0)
}

// --- Clock ---

type fakeTimer struct {
	clock   *fakeClock
	fn      func()
	d       time.Duration
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock never fires on its own. Tests call fireAll to run pending timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	ticks  chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Now().UTC(),
		ticks: make(chan time.Time),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, fn: f, d: d}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Ticker(time.Duration) (<-chan time.Time, func()) {
	return c.ticks, func() {}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fireAll runs every timer that is still armed, including stopped ones when
// stale is set, to simulate a timer that raced its Stop.
func (c *fakeClock) fireAll(stale bool) {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.fired || (t.stopped && !stale) {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}
