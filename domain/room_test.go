package domain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playingRoom() domain.Room {
	return domain.Room{
		ID:        "ROOM42",
		HostID:    "a",
		GameState: domain.StatePlaying,
		Players: []domain.Player{
			{ID: "a", Name: "Alice", SecretIdentity: &domain.SecretIdentity{Title: "Lion"}},
			{ID: "b", Name: "Bob", SecretIdentity: &domain.SecretIdentity{Title: "Wolf"}},
			{ID: "c", Name: "Carol", SecretIdentity: &domain.SecretIdentity{Title: "Panda"}},
		},
	}
}

func TestSanitizedFor(t *testing.T) {
	t.Parallel()

	room := playingRoom()
	before := room.Clone()

	view := room.SanitizedFor("b")

	assert.Nil(t, view.Players[1].SecretIdentity)
	require.NotNil(t, view.Players[0].SecretIdentity)
	assert.Equal(t, "Lion", view.Players[0].SecretIdentity.Title)
	assert.Equal(t, "Panda", view.Players[2].SecretIdentity.Title)

	if diff := cmp.Diff(before, room); diff != "" {
		t.Errorf("canonical room mutated (-want +got):\n%s", diff)
	}

	view.Players[0].SecretIdentity.Title = "changed"
	assert.Equal(t, "Lion", room.Players[0].SecretIdentity.Title)
}

func TestSanitizedForRevealsAfterGame(t *testing.T) {
	t.Parallel()

	room := playingRoom()
	room.GameState = domain.StateEnded

	view := room.SanitizedFor("b")
	require.NotNil(t, view.Players[1].SecretIdentity)
	assert.Equal(t, "Wolf", view.Players[1].SecretIdentity.Title)
}

func TestRemovePlayer(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		desc      string
		turn      int
		remove    int
		wantTurn  int
		wantOrder []string
	}{
		{desc: "before turn-holder", turn: 2, remove: 0, wantTurn: 1, wantOrder: []string{"b", "c"}},
		{desc: "turn-holder in the middle", turn: 1, remove: 1, wantTurn: 1, wantOrder: []string{"a", "c"}},
		{desc: "turn-holder at the end wraps", turn: 2, remove: 2, wantTurn: 0, wantOrder: []string{"a", "b"}},
		{desc: "after turn-holder", turn: 0, remove: 2, wantTurn: 0, wantOrder: []string{"a", "b"}},
		{desc: "out of range is ignored", turn: 1, remove: 7, wantTurn: 1, wantOrder: []string{"a", "b", "c"}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			room := playingRoom()
			room.CurrentTurnIndex = tc.turn

			room.RemovePlayer(tc.remove)

			ids := make([]string, 0, len(room.Players))
			for _, p := range room.Players {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tc.wantOrder, ids)
			assert.Equal(t, tc.wantTurn, room.CurrentTurnIndex)
		})
	}
}

func TestRemoveLastPlayer(t *testing.T) {
	t.Parallel()

	room := domain.Room{Players: []domain.Player{{ID: "a"}}}
	room.RemovePlayer(0)

	assert.Empty(t, room.Players)
	assert.Equal(t, 0, room.CurrentTurnIndex)
}

func TestUniqueName(t *testing.T) {
	t.Parallel()

	room := playingRoom()
	room.Players = append(room.Players, domain.Player{ID: "d", Name: "Bob 2"})

	assert.Equal(t, "Dave", room.UniqueName("Dave"))
	assert.Equal(t, "alice 2", room.UniqueName("alice"))
	assert.Equal(t, "Bob 3", room.UniqueName("Bob"))
}

func TestNormalizeCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "People", domain.NormalizeCategory(" people "))
	assert.Equal(t, "Animals", domain.NormalizeCategory(""))
	assert.Equal(t, "Animals", domain.NormalizeCategory("Cars"))
}

func TestLookupPersona(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Sherlock", domain.LookupPersona("Sherlock").Name)
	assert.Equal(t, domain.DefaultPersonaID, domain.LookupPersona("nobody").ID)
	assert.Len(t, domain.Personas(), 4)
}

func TestParseAction(t *testing.T) {
	t.Parallel()

	a, err := domain.ParseAction("guess")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionGuess, a)

	_, err = domain.ParseAction("shout")
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}
