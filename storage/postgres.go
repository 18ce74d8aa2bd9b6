package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/matt-wisdom/WhoDat/domain"
)

// "23505" is the PostgreSQL error code for unique_violation
const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pg *PostgresRepo) Close() {
	pg.pool.Close()
}

func classify(err error, notFound error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
}

const roomColumns = "id, host_id, players_json, state, current_turn_index, category, is_public, created_at"

func scanRoom(row pgx.Row) (domain.RoomRow, error) {
	var r domain.RoomRow
	err := row.Scan(&r.ID, &r.HostID, &r.PlayersJSON, &r.State, &r.CurrentTurnIndex, &r.Category, &r.IsPublic, &r.CreatedAt)
	return r, err
}

func (pg *PostgresRepo) InsertRoom(ctx context.Context, row domain.RoomRow) error {
	_, err := pg.pool.Exec(ctx,
		`INSERT INTO rooms (id, host_id, players_json, state, current_turn_index, category, is_public, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.HostID, row.PlayersJSON, row.State, row.CurrentTurnIndex, row.Category, row.IsPublic, row.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateRoomID
		}
		return classify(err, domain.ErrRoomNotFound)
	}
	return nil
}

func (pg *PostgresRepo) GetRoom(ctx context.Context, id string) (domain.RoomRow, error) {
	row, err := scanRoom(pg.pool.QueryRow(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = $1", id))
	if err != nil {
		return domain.RoomRow{}, classify(err, domain.ErrRoomNotFound)
	}
	return row, nil
}

// UpdateRoom overwrites every mutable column. A room deleted concurrently
// (reaped, cancelled) reports ErrRoomNotFound.
func (pg *PostgresRepo) UpdateRoom(ctx context.Context, row domain.RoomRow) error {
	tag, err := pg.pool.Exec(ctx,
		`UPDATE rooms
		 SET host_id = $2, players_json = $3, state = $4, current_turn_index = $5, category = $6, is_public = $7
		 WHERE id = $1`,
		row.ID, row.HostID, row.PlayersJSON, row.State, row.CurrentTurnIndex, row.Category, row.IsPublic)
	if err != nil {
		return classify(err, domain.ErrRoomNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (pg *PostgresRepo) DeleteRoom(ctx context.Context, id string) error {
	tag, err := pg.pool.Exec(ctx, "DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		return classify(err, domain.ErrRoomNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func collectRooms(rows pgx.Rows) ([]domain.RoomRow, error) {
	defer rows.Close()

	result := []domain.RoomRow{}
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, classify(err, domain.ErrRoomNotFound)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, domain.ErrRoomNotFound)
	}
	return result, nil
}

func (pg *PostgresRepo) ListPublicLobbies(ctx context.Context, limit int) ([]domain.RoomRow, error) {
	rows, err := pg.pool.Query(ctx,
		"SELECT "+roomColumns+` FROM rooms
		 WHERE is_public AND state = 'LOBBY'
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, classify(err, domain.ErrRoomNotFound)
	}
	return collectRooms(rows)
}

// DeleteStaleLobbies removes, in one statement, every room still in LOBBY that
// is older than ttl and returns what was removed. The state predicate is part
// of the DELETE so a room that started in the meantime is never reaped.
func (pg *PostgresRepo) DeleteStaleLobbies(ctx context.Context, ttl time.Duration) ([]domain.RoomRow, error) {
	rows, err := pg.pool.Query(ctx,
		`DELETE FROM rooms
		 WHERE state = 'LOBBY' AND created_at < NOW() - make_interval(secs => $1)
		 RETURNING `+roomColumns, ttl.Seconds())
	if err != nil {
		return nil, classify(err, domain.ErrRoomNotFound)
	}
	return collectRooms(rows)
}

func (pg *PostgresRepo) InsertGameHistory(ctx context.Context, h domain.GameHistoryRow) error {
	_, err := pg.pool.Exec(ctx,
		`INSERT INTO game_history (room_id, winner_id, winner_name, players_json) VALUES ($1, $2, $3, $4)`,
		h.RoomID, h.WinnerID, h.WinnerName, h.PlayersJSON)
	if err != nil {
		return classify(err, domain.ErrRoomNotFound)
	}
	return nil
}

func (pg *PostgresRepo) ListGameHistory(ctx context.Context, roomID string, limit int) ([]domain.GameHistoryRow, error) {
	rows, err := pg.pool.Query(ctx,
		`SELECT room_id, winner_id, winner_name, players_json, created_at
		 FROM game_history WHERE room_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, roomID, limit)
	if err != nil {
		return nil, classify(err, domain.ErrRoomNotFound)
	}
	defer rows.Close()

	history := []domain.GameHistoryRow{}
	for rows.Next() {
		var h domain.GameHistoryRow
		if err := rows.Scan(&h.RoomID, &h.WinnerID, &h.WinnerName, &h.PlayersJSON, &h.CreatedAt); err != nil {
			return nil, classify(err, domain.ErrRoomNotFound)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, domain.ErrRoomNotFound)
	}
	return history, nil
}

func lookupKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func (pg *PostgresRepo) GetArticle(ctx context.Context, category, title string) (domain.SecretIdentity, error) {
	var a domain.SecretIdentity
	err := pg.pool.QueryRow(ctx,
		`SELECT title, summary, full_text, image FROM wiki_cache WHERE category = $1 AND lookup_title = $2`,
		category, lookupKey(title)).Scan(&a.Title, &a.Summary, &a.FullText, &a.Image)
	if err != nil {
		return domain.SecretIdentity{}, classify(err, domain.ErrArticleNotFound)
	}
	return a, nil
}

// UpsertArticle stores a under the title it was requested by, which may differ
// from the canonical title Wikipedia answers with.
func (pg *PostgresRepo) UpsertArticle(ctx context.Context, category, requestedTitle string, a domain.SecretIdentity) error {
	_, err := pg.pool.Exec(ctx,
		`INSERT INTO wiki_cache (category, lookup_title, title, summary, full_text, image, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (category, lookup_title)
		 DO UPDATE SET title = excluded.title, summary = excluded.summary, full_text = excluded.full_text,
		               image = excluded.image, last_updated = NOW()`,
		category, lookupKey(requestedTitle), a.Title, a.Summary, a.FullText, a.Image)
	if err != nil {
		return classify(err, domain.ErrArticleNotFound)
	}
	return nil
}
