package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fyrsmithlabs/kortex/internal/vectorstore"
)

// ErrIndexUnavailable signals that a project has no usable vector index.
// It is a routing signal for the engine, not a caller-visible failure.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// IndexManager builds and tracks per-project vector collections. A project
// is indexed at most once per process; concurrent first requests for the
// same project share one build. Build failures and empty document sets mark
// the project unavailable rather than erroring, and the mark is permanent
// for the process lifetime.
type IndexManager struct {
	store  vectorstore.Store
	logger *zap.Logger

	group singleflight.Group

	mu    sync.RWMutex
	state map[string]bool // project id -> index available
}

// NewIndexManager creates an IndexManager on the given store. A nil store
// marks every project unavailable, which degrades all questions to the
// direct path.
func NewIndexManager(store vectorstore.Store, logger *zap.Logger) *IndexManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexManager{
		store:  store,
		logger: logger,
		state:  make(map[string]bool),
	}
}

// EnsureIndex builds the project's collection if this is the first request
// for it. buildDocs is invoked at most once per project; its failure, an
// empty document set, or a store failure records the project as unavailable
// without raising an error.
func (m *IndexManager) EnsureIndex(ctx context.Context, projectID string, buildDocs func(context.Context) ([]vectorstore.Document, error)) {
	m.mu.RLock()
	_, seen := m.state[projectID]
	m.mu.RUnlock()
	if seen {
		return
	}

	m.group.Do(projectID, func() (interface{}, error) {
		m.mu.RLock()
		_, seen := m.state[projectID]
		m.mu.RUnlock()
		if seen {
			return nil, nil
		}

		m.mu.Lock()
		m.state[projectID] = m.build(ctx, projectID, buildDocs)
		m.mu.Unlock()
		return nil, nil
	})
}

func (m *IndexManager) build(ctx context.Context, projectID string, buildDocs func(context.Context) ([]vectorstore.Document, error)) bool {
	if m.store == nil {
		m.logger.Warn("no vector store configured, project index unavailable",
			zap.String("project_id", projectID))
		return false
	}

	docs, err := buildDocs(ctx)
	if err != nil {
		m.logger.Warn("building documents failed, project index unavailable",
			zap.String("project_id", projectID), zap.Error(err))
		return false
	}
	if len(docs) == 0 {
		m.logger.Warn("no documents to index, project index unavailable",
			zap.String("project_id", projectID))
		return false
	}

	collection := vectorstore.CollectionName(projectID)
	if err := m.store.AddDocuments(ctx, collection, docs); err != nil {
		m.logger.Warn("indexing failed, project index unavailable",
			zap.String("project_id", projectID), zap.Error(err))
		return false
	}

	m.logger.Info("project indexed",
		zap.String("project_id", projectID),
		zap.Int("documents", len(docs)))
	return true
}

// Query returns up to k documents ranked by similarity to the question.
// Returns ErrIndexUnavailable for projects that were never indexed or whose
// index build failed.
func (m *IndexManager) Query(ctx context.Context, projectID, question string, k int) ([]vectorstore.SearchResult, error) {
	m.mu.RLock()
	available, seen := m.state[projectID]
	m.mu.RUnlock()
	if !seen || !available {
		return nil, ErrIndexUnavailable
	}

	results, err := m.store.Query(ctx, vectorstore.CollectionName(projectID), question, k)
	if err != nil {
		return nil, fmt.Errorf("querying index for %s: %w", projectID, err)
	}
	return results, nil
}

// Available reports the recorded index state for a project. The second
// return is false for projects never requested.
func (m *IndexManager) Available(projectID string) (bool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	available, seen := m.state[projectID]
	return available, seen
}
