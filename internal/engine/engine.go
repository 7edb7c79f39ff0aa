// Package engine answers natural-language questions about GitHub projects.
//
// A question takes one of two paths. Fact questions ("how many stars")
// are answered directly from the aggregated snapshot with templated
// sentences. Everything else goes through retrieval: the project's
// documents are indexed into a per-project vector collection, the top
// matches become the context for a bounded prompt, and a generation
// backend produces the answer. Every failure on the retrieval path folds
// back into the direct path, so AskQuestion always returns an answer for
// any project that exists.
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/kortex/internal/docs"
	"github.com/fyrsmithlabs/kortex/internal/github"
	"github.com/fyrsmithlabs/kortex/internal/vectorstore"

	"github.com/fyrsmithlabs/kortex/internal/config"
)

// Retrieval depth per path.
const (
	questionTopK = 3
	summaryTopK  = 5

	summaryMaxChars = 300

	defaultAnswerMaxChars = 2000
)

// SnapshotProvider supplies aggregated project snapshots.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, projectID string, token config.Secret) (*github.Snapshot, error)
}

// Source describes where an answer's supporting content came from.
type Source struct {
	Source string `json:"source"`
	Type   string `json:"type"`
}

// Answer is a synthesized answer with its supporting sources.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Engine coordinates snapshot aggregation, indexing, retrieval, and
// generation.
type Engine struct {
	snapshots SnapshotProvider
	index     *IndexManager
	generator Generator
	logger    *zap.Logger

	// answerMaxChars caps generated answers. Generated summaries are
	// always capped at summaryMaxChars.
	answerMaxChars int
}

// New creates an Engine. generator may be nil, in which case all questions
// resolve through the direct path and summaries through the rule-based
// fallback.
func New(snapshots SnapshotProvider, index *IndexManager, generator Generator, answerMaxChars int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if answerMaxChars <= 0 {
		answerMaxChars = defaultAnswerMaxChars
	}
	return &Engine{
		snapshots:      snapshots,
		index:          index,
		generator:      generator,
		logger:         logger,
		answerMaxChars: answerMaxChars,
	}
}

const answerPromptFormat = `You are Kortex, an AI assistant expert on software projects.
Based ONLY on the following context from project '%s', answer the user's question.
If the context doesn't contain the answer, state that the information is not available in the provided context.
Be helpful and provide detailed, accurate information based on the available context.
Keep your answer concise but informative.

Context:
%s

Question: %s
Answer:`

// AskQuestion answers a question about a project.
//
// The only errors it returns are ErrNotFound and ErrBadProjectID from
// aggregation; once a snapshot exists, some answer always comes back.
func (e *Engine) AskQuestion(ctx context.Context, projectID, question string, token config.Secret) (Answer, error) {
	snap, err := e.snapshots.GetSnapshot(ctx, projectID, token)
	if err != nil {
		return Answer{}, err
	}

	intent := Classify(question)
	if intent.Direct {
		e.logger.Debug("direct question detected",
			zap.String("project_id", projectID),
			zap.String("kind", intent.Kind.String()))
		return directAnswer(projectID, intent.Kind, snap), nil
	}

	e.ensureIndexed(ctx, projectID, snap)

	results, err := e.index.Query(ctx, projectID, question, questionTopK)
	if err != nil || len(results) == 0 {
		if err != nil {
			e.logger.Debug("retrieval unavailable, answering directly",
				zap.String("project_id", projectID), zap.Error(err))
		}
		return directAnswer(projectID, directKind(strings.ToLower(question)), snap), nil
	}

	prompt := fmt.Sprintf(answerPromptFormat, projectID, joinContext(results), question)
	text, err := e.generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("generation failed, answering directly",
			zap.String("project_id", projectID), zap.Error(err))
		return directAnswer(projectID, directKind(strings.ToLower(question)), snap), nil
	}

	return Answer{
		Answer:  truncate(text, e.answerMaxChars),
		Sources: resultSources(results),
	}, nil
}

const summaryPromptFormat = `You are an AI assistant analyzing GitHub repositories.
Based on the retrieved context for repository '%s', provide a concise,
informative summary (1-2 sentences) that explains what the project does,
its main purpose and key features, and the technology stack if mentioned.

Retrieved Context:
%s

Repository: %s

Provide a clear, concise summary:`

// Summarize produces a short description of a project. Generated summaries
// are capped at 300 characters; when retrieval or generation is not
// possible, a rule-based summary is derived from the snapshot instead.
func (e *Engine) Summarize(ctx context.Context, projectID string, token config.Secret) (string, error) {
	snap, err := e.snapshots.GetSnapshot(ctx, projectID, token)
	if err != nil {
		return "", err
	}

	e.ensureIndexed(ctx, projectID, snap)

	query := fmt.Sprintf("What is %s? Describe the main purpose and features of this project.", projectID)
	results, err := e.index.Query(ctx, projectID, query, summaryTopK)
	if err != nil || len(results) == 0 {
		return shortSummary(projectID, snap.Stats), nil
	}

	prompt := fmt.Sprintf(summaryPromptFormat, projectID, joinContext(results), projectID)
	text, err := e.generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("summary generation failed, using rule-based summary",
			zap.String("project_id", projectID), zap.Error(err))
		return shortSummary(projectID, snap.Stats), nil
	}

	return truncate(text, summaryMaxChars), nil
}

// ensureIndexed lazily builds the project's vector collection from its
// snapshot documents.
func (e *Engine) ensureIndexed(ctx context.Context, projectID string, snap *github.Snapshot) {
	e.index.EnsureIndex(ctx, projectID, func(context.Context) ([]vectorstore.Document, error) {
		return docs.Build(projectID, snap), nil
	})
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.generator == nil {
		return "", ErrGenerationUnavailable
	}
	return e.generator.Generate(ctx, prompt)
}

// joinContext merges retrieved document contents into one prompt block.
func joinContext(results []vectorstore.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func resultSources(results []vectorstore.SearchResult) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Source: r.Metadata["source"],
			Type:   r.Metadata["type"],
		}
	}
	return sources
}

// truncate caps s at limit runes, appending an ellipsis when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
