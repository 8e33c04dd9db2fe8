package magiclink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/specwright/internal/apperr"
	"github.com/HendryAvila/specwright/internal/model"
	"github.com/HendryAvila/specwright/internal/records"
	"github.com/HendryAvila/specwright/internal/session"
)

func newResolver(t *testing.T) (*Resolver, *session.Store) {
	t.Helper()
	rs := records.NewMemory()
	t.Cleanup(func() { rs.Close() })
	store := session.New(rs)
	return New(store), store
}

func TestGenerate_DistinctTokensResolveToOwnSession(t *testing.T) {
	ctx := context.Background()
	r, store := newResolver(t)

	const n = 50
	tokens := make(map[string]string, n)
	for i := 0; i < n; i++ {
		sess, err := store.Create(ctx)
		require.NoError(t, err)
		tok, err := r.Generate(ctx, sess.ID)
		require.NoError(t, err)
		assert.Len(t, tok, 22, "16 bytes in unpadded base64url")
		assert.NotContains(t, tok, "=")
		_, dup := tokens[tok]
		require.False(t, dup, "token %q issued twice", tok)
		tokens[tok] = sess.ID
	}

	for tok, id := range tokens {
		got, err := r.Restore(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
	}
}

func TestGenerate_InvalidatesPreviousToken(t *testing.T) {
	ctx := context.Background()
	r, store := newResolver(t)
	sess, err := store.Create(ctx)
	require.NoError(t, err)

	first, err := r.Generate(ctx, sess.ID)
	require.NoError(t, err)
	second, err := r.Generate(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = r.Restore(ctx, first)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	got, err := r.Restore(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestRestore_AbandonedSession(t *testing.T) {
	ctx := context.Background()
	r, store := newResolver(t)
	sess, err := store.Create(ctx)
	require.NoError(t, err)
	tok, err := r.Generate(ctx, sess.ID)
	require.NoError(t, err)
	require.NoError(t, store.Abandon(ctx, sess.ID))

	got, err := r.Restore(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbandoned, got.Status)
}

func TestRestore_UnknownToken(t *testing.T) {
	r, _ := newResolver(t)
	_, err := r.Restore(context.Background(), "bm90LWEtdG9rZW4")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)

	_, err := r.Generate(ctx, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = r.Generate(ctx, "no-such-session")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	r.random = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
	_, err = r.Generate(ctx, "anything")
	assert.ErrorContains(t, err, "entropy exhausted")
}
