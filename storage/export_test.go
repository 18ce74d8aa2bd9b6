package storage

import (
	"context"
	"time"
)

// Backdate moves a room's creation time into the past so reaping can be
// exercised without waiting for the TTL.
func (pg *PostgresRepo) Backdate(ctx context.Context, roomID string, age time.Duration) error {
	_, err := pg.pool.Exec(ctx,
		"UPDATE rooms SET created_at = NOW() - make_interval(secs => $2) WHERE id = $1",
		roomID, age.Seconds())
	return err
}

func (m *MemoryRepo) SetClock(now func() time.Time) {
	m.now = now
}
