package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/itish2003/docqa/models"
)

// ChromaProvider stores each session index as its own collection on a
// Chroma server.
type ChromaProvider struct {
	client chromago.Client
}

func NewChromaProvider(baseURL string) (*ChromaProvider, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	return &ChromaProvider{client: client}, nil
}

// Close releases the client.
func (p *ChromaProvider) Close() error {
	return p.client.Close()
}

func (p *ChromaProvider) NewIndex(ctx context.Context) (VectorIndex, error) {
	name := "docqa-" + uuid.NewString()
	collection, err := p.client.GetOrCreateCollection(
		ctx,
		name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "document session index"),
				chromago.NewStringAttribute("created_by", "docqa"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma collection: %w", err)
	}
	log.Debug().Str("collection", name).Msg("created chroma collection")
	return &chromaIndex{client: p.client, collection: collection, name: name}, nil
}

type chromaIndex struct {
	client     chromago.Client
	collection chromago.Collection
	name       string
	count      atomic.Int64
}

// Add inserts one chunk per request so that the server sees them in
// document order.
func (x *chromaIndex) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for i, c := range chunks {
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(metaSource, c.Source),
			chromago.NewIntAttribute(metaPage, int64(c.Page)),
			chromago.NewIntAttribute(metaChunkIndex, int64(c.Index)),
		)
		err := x.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(fmt.Sprintf("chunk-%06d", c.Index))),
			chromago.WithTexts(c.Content),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vectors[i])),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("failed to add chunk %d to chromadb: %w", c.Index, err)
		}
		x.count.Add(1)
	}
	return nil
}

// Search keeps the order the server returns, which is by ascending distance.
func (x *chromaIndex) Search(ctx context.Context, vector []float32, k int) ([]models.Chunk, error) {
	n := min(k, x.Count())
	if n <= 0 {
		return nil, nil
	}
	results, err := x.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(n),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	chunks := make([]models.Chunk, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		chunk := models.Chunk{Content: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			decodeChromaMetadata(metadataGroups[0][i], &chunk)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// decodeChromaMetadata goes through JSON because DocumentMetadata exposes no
// generic accessor for its attributes.
func decodeChromaMetadata(metadata chromago.DocumentMetadata, chunk *models.Chunk) {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		log.Warn().Err(err).Msg("could not marshal chroma metadata")
		return
	}
	var meta struct {
		Source     string `json:"source"`
		Page       int    `json:"page"`
		ChunkIndex int    `json:"chunk_index"`
	}
	if err := json.Unmarshal(jsonBytes, &meta); err != nil {
		log.Warn().Err(err).Msg("could not unmarshal chroma metadata")
		return
	}
	chunk.Source = meta.Source
	chunk.Page = meta.Page
	chunk.Index = meta.ChunkIndex
}

func (x *chromaIndex) Count() int {
	return int(x.count.Load())
}

func (x *chromaIndex) Drop(ctx context.Context) error {
	if err := x.client.DeleteCollection(ctx, x.name); err != nil {
		return fmt.Errorf("failed to delete chroma collection %s: %w", x.name, err)
	}
	return nil
}
