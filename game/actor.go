package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrServiceClosed    = errors.New("service-closed")
	ErrRoomTaskPanicked = errors.New("room-task-panicked")
)

type task struct {
	ctx  context.Context
	run  func(ctx context.Context)
	done chan struct{}
	// err is set before done is closed.
	err error
}

// roomActor runs the tasks of one room one at a time.
type roomActor struct {
	inbox   chan *task
	stopped chan struct{}
}

// actors lazily starts one roomActor per room id. An actor that stays idle
// removes itself from the registry before exiting, so a sender that raced it
// sees stopped closed and retries on a fresh actor.
type actors struct {
	mu     sync.Mutex
	byRoom map[string]*roomActor
	idle   time.Duration
	quit   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

func newActors(idle time.Duration) *actors {
	return &actors{
		byRoom: make(map[string]*roomActor),
		idle:   idle,
		quit:   make(chan struct{}),
	}
}

func (a *actors) get(roomID string) (*roomActor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrServiceClosed
	}
	if ra, ok := a.byRoom[roomID]; ok {
		return ra, nil
	}

	ra := &roomActor{inbox: make(chan *task), stopped: make(chan struct{})}
	a.byRoom[roomID] = ra
	a.wg.Add(1)
	go a.loop(roomID, ra)
	return ra, nil
}

func (a *actors) loop(roomID string, ra *roomActor) {
	defer a.wg.Done()

	idle := time.NewTimer(a.idle)
	defer idle.Stop()

	for {
		select {
		case t := <-ra.inbox:
			runTask(roomID, t)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(a.idle)

		case <-idle.C:
			a.retire(roomID, ra)
			return

		case <-a.quit:
			a.retire(roomID, ra)
			return
		}
	}
}

func (a *actors) retire(roomID string, ra *roomActor) {
	a.mu.Lock()
	if a.byRoom[roomID] == ra {
		delete(a.byRoom, roomID)
	}
	close(ra.stopped)
	a.mu.Unlock()
}

func runTask(roomID string, t *task) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("room_id", roomID).Interface("panic", r).Msg("room task panicked")
			t.err = fmt.Errorf("%w: %v", ErrRoomTaskPanicked, r)
		}
	}()
	t.run(t.ctx)
}

// do runs fn inside the room's actor and waits for it to finish.
func (a *actors) do(ctx context.Context, roomID string, fn func(ctx context.Context)) error {
	for {
		ra, err := a.get(roomID)
		if err != nil {
			return err
		}

		t := &task{ctx: ctx, run: fn, done: make(chan struct{})}
		select {
		case ra.inbox <- t:
			<-t.done
			return t.err
		case <-ra.stopped:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *actors) close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.quit)
	a.mu.Unlock()

	a.wg.Wait()
}
