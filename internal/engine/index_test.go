package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/kortex/internal/engine"
	"github.com/fyrsmithlabs/kortex/internal/vectorstore"
)

func someIndexDocs() []vectorstore.Document {
	return []vectorstore.Document{
		{ID: "octo/widget_readme", Content: "Widget builds things",
			Metadata: map[string]string{"type": "documentation"}},
	}
}

func TestEnsureIndex_BuildsOnce(t *testing.T) {
	store := newFakeStore()
	idx := engine.NewIndexManager(store, nil)
	ctx := context.Background()

	builds := 0
	build := func(context.Context) ([]vectorstore.Document, error) {
		builds++
		return someIndexDocs(), nil
	}

	idx.EnsureIndex(ctx, "octo/widget", build)
	idx.EnsureIndex(ctx, "octo/widget", build)

	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, store.addCalls)

	available, seen := idx.Available("octo/widget")
	assert.True(t, seen)
	assert.True(t, available)

	results, err := idx.Query(ctx, "octo/widget", "what is widget", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "octo/widget_readme", results[0].ID)
}

func TestEnsureIndex_EmptyDocsUnavailable(t *testing.T) {
	idx := engine.NewIndexManager(newFakeStore(), nil)
	ctx := context.Background()

	idx.EnsureIndex(ctx, "octo/empty", func(context.Context) ([]vectorstore.Document, error) {
		return nil, nil
	})

	available, seen := idx.Available("octo/empty")
	assert.True(t, seen)
	assert.False(t, available)

	_, err := idx.Query(ctx, "octo/empty", "anything", 3)
	assert.ErrorIs(t, err, engine.ErrIndexUnavailable)
}

func TestEnsureIndex_StoreFailureUnavailable(t *testing.T) {
	store := newFakeStore()
	store.failAdd = true
	idx := engine.NewIndexManager(store, nil)
	ctx := context.Background()

	idx.EnsureIndex(ctx, "octo/widget", func(context.Context) ([]vectorstore.Document, error) {
		return someIndexDocs(), nil
	})

	_, err := idx.Query(ctx, "octo/widget", "anything", 3)
	assert.ErrorIs(t, err, engine.ErrIndexUnavailable)

	// The failed build is recorded; it is not retried.
	idx.EnsureIndex(ctx, "octo/widget", func(context.Context) ([]vectorstore.Document, error) {
		t.Fatal("build must not be retried")
		return nil, nil
	})
	assert.Equal(t, 1, store.addCalls)
}

func TestEnsureIndex_NilStoreUnavailable(t *testing.T) {
	idx := engine.NewIndexManager(nil, nil)
	ctx := context.Background()

	idx.EnsureIndex(ctx, "octo/widget", func(context.Context) ([]vectorstore.Document, error) {
		return someIndexDocs(), nil
	})

	_, err := idx.Query(ctx, "octo/widget", "anything", 3)
	assert.ErrorIs(t, err, engine.ErrIndexUnavailable)
}

func TestQuery_UnknownProjectUnavailable(t *testing.T) {
	idx := engine.NewIndexManager(newFakeStore(), nil)

	_, err := idx.Query(context.Background(), "octo/never", "anything", 3)
	assert.ErrorIs(t, err, engine.ErrIndexUnavailable)
}
