package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-robot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-robot/testing/suite"
)

func playedSession(t *testing.T) *entity.Session {
	t.Helper()

	session := entity.NewSession(entity.Human)
	require.NoError(t, session.Apply(entity.Human, entity.Position{Row: 1, Col: 1}))
	require.NoError(t, session.Apply(entity.Robot, entity.Position{Row: 0, Col: 0}))
	session.Commit()

	return session
}

func TestSessionRepository_CreateOrUpdate(t *testing.T) {
	ctx, st := suite.New(t)

	sessionRepo := NewSessionRepository(st.Storage, 0)

	// Given: a session with two moves
	session := playedSession(t)

	// When: CreateOrUpdate is called
	err := sessionRepo.CreateOrUpdate(ctx, session)

	// Then: no error should be returned, and the key exists without expiry
	require.NoError(t, err)
	ttl, err := st.Storage.TTL(ctx, "session:"+session.ID).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}

func TestSessionRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage, time.Hour)

		// Given: a finished session
		session := playedSession(t)
		require.NoError(t, session.Finish(entity.Aborted("multiple cells changed")))
		require.NoError(t, sessionRepo.CreateOrUpdate(ctx, session))

		// When: GetByID is called with its ID
		retrieved, err := sessionRepo.GetByID(ctx, session.ID)

		// Then: the boards, moves and status survive the round trip
		require.NoError(t, err)
		assert.Equal(t, session.ID, retrieved.ID)
		assert.Equal(t, session.Current, retrieved.Current)
		assert.Equal(t, session.Previous, retrieved.Previous)
		assert.Equal(t, session.Assignment, retrieved.Assignment)
		assert.Equal(t, session.Status, retrieved.Status)
		require.Len(t, retrieved.Moves, 2)
		assert.Equal(t, entity.Position{Row: 0, Col: 0}, retrieved.Moves[1].Position)
		assert.Equal(t, entity.TokenO, retrieved.Moves[1].Token)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage, 0)

		// When: GetByID is called with an unknown ID
		retrieved, err := sessionRepo.GetByID(ctx, "9999999")

		// Then: ErrSessionNotFound is returned
		require.ErrorIs(t, err, ErrSessionNotFound)
		assert.Empty(t, retrieved.ID)
	})
}

func TestSessionRepository_DeleteAndList(t *testing.T) {
	ctx, st := suite.New(t)

	sessionRepo := NewSessionRepository(st.Storage, 0)

	// Given: two stored sessions
	first := playedSession(t)
	second := entity.NewSession(entity.Robot)
	require.NoError(t, sessionRepo.CreateOrUpdate(ctx, first))
	require.NoError(t, sessionRepo.CreateOrUpdate(ctx, second))

	ids, err := sessionRepo.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	// When: one is deleted
	require.NoError(t, sessionRepo.DeleteByID(ctx, first.ID))

	// Then: only the other one is left
	ids, err = sessionRepo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids)

	_, err = sessionRepo.GetByID(ctx, first.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}
