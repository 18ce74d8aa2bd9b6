package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomStore interface {
	InsertRoom(ctx context.Context, row domain.RoomRow) error
	GetRoom(ctx context.Context, id string) (domain.RoomRow, error)
	UpdateRoom(ctx context.Context, row domain.RoomRow) error
	DeleteRoom(ctx context.Context, id string) error
	ListPublicLobbies(ctx context.Context, limit int) ([]domain.RoomRow, error)
	InsertGameHistory(ctx context.Context, h domain.GameHistoryRow) error
	ListGameHistory(ctx context.Context, roomID string, limit int) ([]domain.GameHistoryRow, error)
}

type articleCache interface {
	GetArticle(ctx context.Context, category, title string) (domain.SecretIdentity, error)
	UpsertArticle(ctx context.Context, category, requestedTitle string, a domain.SecretIdentity) error
}

func newRow(id string, state domain.GameState, public bool, createdAt time.Time) domain.RoomRow {
	return domain.RoomRow{
		ID:          id,
		HostID:      "host-" + id,
		PlayersJSON: []byte(`[{"id":"host-` + id + `","name":"Host","score":0,"isReady":false}]`),
		State:       string(state),
		Category:    "Animals",
		IsPublic:    public,
		CreatedAt:   createdAt.UTC().Truncate(time.Microsecond),
	}
}

func runRoomStoreContract(t *testing.T, s roomStore) {
	ctx := context.Background()
	now := time.Now()

	t.Run("InsertRoom and GetRoom", func(t *testing.T) {
		row := newRow("AAAAA1", domain.StateLobby, true, now)
		require.NoError(t, s.InsertRoom(ctx, row))

		got, err := s.GetRoom(ctx, row.ID)
		require.NoError(t, err)
		assert.Equal(t, row.HostID, got.HostID)
		assert.Equal(t, row.State, got.State)
		assert.Equal(t, row.Category, got.Category)
		assert.True(t, got.IsPublic)
		assert.JSONEq(t, string(row.PlayersJSON), string(got.PlayersJSON))
	})

	t.Run("InsertRoom duplicate", func(t *testing.T) {
		err := s.InsertRoom(ctx, newRow("AAAAA1", domain.StateLobby, true, now))
		assert.ErrorIs(t, err, domain.ErrDuplicateRoomID)
	})

	t.Run("GetRoom not found", func(t *testing.T) {
		_, err := s.GetRoom(ctx, "NOPE00")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})

	t.Run("UpdateRoom", func(t *testing.T) {
		row := newRow("AAAAA2", domain.StateLobby, false, now)
		require.NoError(t, s.InsertRoom(ctx, row))

		row.State = string(domain.StatePlaying)
		row.CurrentTurnIndex = 1
		row.HostID = "someone-else"
		row.PlayersJSON = []byte(`[{"id":"x","name":"X","score":10,"isReady":true}]`)
		require.NoError(t, s.UpdateRoom(ctx, row))

		got, err := s.GetRoom(ctx, row.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatePlaying), got.State)
		assert.Equal(t, 1, got.CurrentTurnIndex)
		assert.Equal(t, "someone-else", got.HostID)
		assert.JSONEq(t, string(row.PlayersJSON), string(got.PlayersJSON))
	})

	t.Run("UpdateRoom missing room", func(t *testing.T) {
		err := s.UpdateRoom(ctx, newRow("GHOST1", domain.StateLobby, false, now))
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	})

	t.Run("DeleteRoom", func(t *testing.T) {
		row := newRow("AAAAA3", domain.StateLobby, false, now)
		require.NoError(t, s.InsertRoom(ctx, row))
		require.NoError(t, s.DeleteRoom(ctx, row.ID))

		_, err := s.GetRoom(ctx, row.ID)
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
		assert.ErrorIs(t, s.DeleteRoom(ctx, row.ID), domain.ErrRoomNotFound)
	})

	t.Run("ListPublicLobbies newest first and bounded", func(t *testing.T) {
		older := newRow("LIST01", domain.StateLobby, true, now.Add(time.Minute))
		newer := newRow("LIST02", domain.StateLobby, true, now.Add(2*time.Minute))
		private := newRow("LIST03", domain.StateLobby, false, now.Add(3*time.Minute))
		started := newRow("LIST04", domain.StatePlaying, true, now.Add(4*time.Minute))
		for _, r := range []domain.RoomRow{older, newer, private, started} {
			require.NoError(t, s.InsertRoom(ctx, r))
		}

		rows, err := s.ListPublicLobbies(ctx, 2)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "LIST02", rows[0].ID)
		assert.Equal(t, "LIST01", rows[1].ID)
	})

	t.Run("GameHistory", func(t *testing.T) {
		h := domain.GameHistoryRow{RoomID: "HIST01", WinnerID: "a", WinnerName: "Alice", PlayersJSON: []byte(`[]`)}
		require.NoError(t, s.InsertGameHistory(ctx, h))
		h.WinnerID, h.WinnerName = "b", "Bob"
		require.NoError(t, s.InsertGameHistory(ctx, h))

		got, err := s.ListGameHistory(ctx, "HIST01", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Bob", got[0].WinnerName)
	})
}

func runArticleCacheContract(t *testing.T, c articleCache) {
	ctx := context.Background()

	_, err := c.GetArticle(ctx, "People", "Barack Obama")
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)

	article := domain.SecretIdentity{Title: "Barack Obama", Summary: "44th president", FullText: "long text", Image: "img"}
	require.NoError(t, c.UpsertArticle(ctx, "People", "barack obama ", article))

	got, err := c.GetArticle(ctx, "People", "Barack Obama")
	require.NoError(t, err)
	assert.Equal(t, article, got)

	article.Summary = "updated"
	require.NoError(t, c.UpsertArticle(ctx, "People", "Barack Obama", article))
	got, err = c.GetArticle(ctx, "People", "BARACK OBAMA")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Summary)

	_, err = c.GetArticle(ctx, "Animals", "Barack Obama")
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)
}
