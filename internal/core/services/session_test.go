package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestSessionService_ListGetRenameDelete(t *testing.T) {
	env := newTestEnv(t)
	service := NewSessionService(env.sessions)
	ctx := context.Background()

	first, err := env.chat.Ask(ctx, ask("alice", "", "hello"))
	require.NoError(t, err)
	_, err = env.chat.Ask(ctx, ask("alice", "", "tell me a joke"))
	require.NoError(t, err)
	_, err = env.chat.Ask(ctx, ask("bob", "", "hello"))
	require.NoError(t, err)

	list, err := service.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	session, err := service.Get(ctx, "alice", first.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Messages, 2)

	require.NoError(t, service.Rename(ctx, "alice", first.SessionID, "  Greetings  "))
	session, err = service.Get(ctx, "alice", first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Greetings", session.Title)

	require.NoError(t, service.Delete(ctx, "alice", first.SessionID))
	_, err = service.Get(ctx, "alice", first.SessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err = service.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSessionService_OwnerScoping(t *testing.T) {
	env := newTestEnv(t)
	service := NewSessionService(env.sessions)
	ctx := context.Background()
	bobs, err := env.chat.Ask(ctx, ask("bob", "", "hello"))
	require.NoError(t, err)

	_, err = service.Get(ctx, "alice", bobs.SessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, service.Rename(ctx, "alice", bobs.SessionID, "mine now"), domain.ErrNotFound)
	assert.ErrorIs(t, service.Delete(ctx, "alice", bobs.SessionID), domain.ErrNotFound)
}

func TestSessionService_DefaultOwner(t *testing.T) {
	env := newTestEnv(t)
	service := NewSessionService(env.sessions)
	ctx := context.Background()
	answer, err := env.chat.Ask(ctx, ask("", "", "hello"))
	require.NoError(t, err)

	session, err := service.Get(ctx, DefaultOwner, answer.SessionID)

	require.NoError(t, err)
	assert.Equal(t, DefaultOwner, session.OwnerID)
}

func TestSessionService_RenameValidation(t *testing.T) {
	env := newTestEnv(t)
	service := NewSessionService(env.sessions)
	ctx := context.Background()
	answer, err := env.chat.Ask(ctx, ask("", "", "hello"))
	require.NoError(t, err)

	assert.ErrorIs(t, service.Rename(ctx, "", answer.SessionID, "   "), domain.ErrInvalidInput)

	require.NoError(t, service.Rename(ctx, "", answer.SessionID, strings.Repeat("x", 80)))
	session, err := service.Get(ctx, "", answer.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Title, MaxTitleRunes)
}

func TestSessionService_GetEmptyID(t *testing.T) {
	service := NewSessionService(newTestEnv(t).sessions)

	_, err := service.Get(context.Background(), "alice", "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
