package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/itish2003/docqa/models"
)

// UploadedFile is a file received from a client.
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RAGService is what the HTTP layer talks to.
type RAGService interface {
	ProcessDocument(ctx context.Context, file UploadedFile) (string, error)
	Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error)
	EndSession(ctx context.Context, sessionID string) error
	SessionCount() int
}

// ragServiceImpl holds the pipeline stages.
type ragServiceImpl struct {
	ingestor *DocumentIngestor
	builder  *IndexBuilder
	factory  *ChainFactory
	registry *SessionRegistry
	router   *QueryRouter
	builds   *semaphore.Weighted
}

// NewRAGService wires the pipeline. maxConcurrentBuilds bounds how many
// uploads may be chunking and embedding at the same time.
func NewRAGService(ingestor *DocumentIngestor, builder *IndexBuilder, factory *ChainFactory, registry *SessionRegistry, maxConcurrentBuilds int) RAGService {
	if maxConcurrentBuilds <= 0 {
		maxConcurrentBuilds = 1
	}
	return &ragServiceImpl{
		ingestor: ingestor,
		builder:  builder,
		factory:  factory,
		registry: registry,
		router:   NewQueryRouter(registry),
		builds:   semaphore.NewWeighted(int64(maxConcurrentBuilds)),
	}
}

// ProcessDocument turns an upload into a registered session. Nothing is
// registered unless every stage succeeds.
func (r *ragServiceImpl) ProcessDocument(ctx context.Context, file UploadedFile) (string, error) {
	log.Info().Str("filename", file.Filename).Int("bytes", len(file.Data)).Msg("processing upload")

	doc, err := r.ingestor.Ingest(file.Data, file.Filename, file.ContentType)
	if err != nil {
		return "", err
	}

	if err := r.builds.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: waiting for a build slot: %w", ErrProcessing, err)
	}
	index, err := r.builder.BuildIndex(ctx, doc)
	r.builds.Release(1)
	if err != nil {
		return "", err
	}

	chain := r.factory.MakeChain(index)
	sessionID, err := r.registry.Create(chain)
	if err != nil {
		closeChain(chain)
		return "", fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("filename", file.Filename).
		Int("chunks", index.Count()).
		Int("live_sessions", r.registry.Len()).
		Msg("document processed")
	return sessionID, nil
}

func (r *ragServiceImpl) Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error) {
	log.Debug().Str("session_id", req.SessionID).Str("question", req.Question).Msg("answering question")

	result, err := r.router.Answer(ctx, req.SessionID, req.Question)
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, 0, len(result.Sources))
	for _, c := range result.Sources {
		sources = append(sources, models.Source{Source: c.Source, Page: c.Page, Content: c.Content})
	}
	return &models.AskResponse{Answer: result.Answer, Sources: sources}, nil
}

func (r *ragServiceImpl) EndSession(_ context.Context, sessionID string) error {
	if !r.registry.Evict(sessionID) {
		return ErrSessionNotFound
	}
	log.Info().Str("session_id", sessionID).Int("live_sessions", r.registry.Len()).Msg("session ended")
	return nil
}

func (r *ragServiceImpl) SessionCount() int {
	return r.registry.Len()
}
