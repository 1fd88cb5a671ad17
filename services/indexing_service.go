package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/errgroup"

	"github.com/itish2003/docqa/models"
)

// IndexBuilder chunks a document, embeds every chunk and loads the result
// into a fresh index.
type IndexBuilder struct {
	splitter         textsplitter.TextSplitter
	embedder         Embedder
	provider         IndexProvider
	embedConcurrency int
}

// NewIndexBuilder requires 0 < chunkOverlap < chunkSize.
func NewIndexBuilder(embedder Embedder, provider IndexProvider, chunkSize, chunkOverlap, embedConcurrency int) *IndexBuilder {
	if embedConcurrency <= 0 {
		embedConcurrency = 1
	}
	return &IndexBuilder{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		embedder:         embedder,
		provider:         provider,
		embedConcurrency: embedConcurrency,
	}
}

// Split cuts the document page by page, so every chunk keeps its page
// number. Chunk indexes are global and follow document order.
func (b *IndexBuilder) Split(doc *models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for _, page := range doc.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		parts, err := b.splitter.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("split page %d: %w", page.Number, err)
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Index:   len(chunks),
				Content: part,
				Source:  doc.Filename,
				Page:    page.Number,
			})
		}
	}
	return chunks, nil
}

// BuildIndex fails with ErrEmptyDocument when the document has no text.
// Any later failure drops the partially built index.
func (b *IndexBuilder) BuildIndex(ctx context.Context, doc *models.Document) (VectorIndex, error) {
	if strings.TrimSpace(doc.Text()) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Filename)
	}

	chunks, err := b.Split(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Filename)
	}
	log.Debug().Str("filename", doc.Filename).Int("chunks", len(chunks)).Msg("split document")

	vectors, err := b.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	index, err := b.provider.NewIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	if err := index.Add(ctx, chunks, vectors); err != nil {
		if dropErr := index.Drop(context.WithoutCancel(ctx)); dropErr != nil {
			log.Warn().Err(dropErr).Msg("could not drop partially built index")
		}
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}

	log.Info().Str("filename", doc.Filename).Int("chunks", len(chunks)).Msg("built index")
	return index, nil
}

// embedChunks embeds in parallel; vectors[i] always belongs to chunks[i].
func (b *IndexBuilder) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.embedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vector, err := b.embedder.Embed(gctx, chunk.Content)
			if err != nil {
				return fmt.Errorf("%w: could not embed chunk %d of %s: %w", ErrProcessing, i, chunk.Source, err)
			}
			if len(vector) == 0 {
				return fmt.Errorf("%w: empty embedding for chunk %d of %s", ErrProcessing, i, chunk.Source)
			}
			vectors[i] = vector
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
