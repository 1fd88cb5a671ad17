package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/itish2003/docqa/config"
)

// NewPDFExtractorFromConfig selects the PDF backend.
func NewPDFExtractorFromConfig(cfg config.IngestConfig) (PDFExtractor, error) {
	switch cfg.PDFBackend {
	case "unipdf":
		return NewUniPDFExtractor(cfg.UnidocLicenseKey)
	case "ledongthuc", "":
		return NewLedongthucExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown pdf backend %q", cfg.PDFBackend)
	}
}

// NewIndexProviderFromConfig selects the vector index backend.
func NewIndexProviderFromConfig(cfg config.IndexConfig) (IndexProvider, error) {
	switch cfg.Backend {
	case "chroma":
		return NewChromaProvider(cfg.ChromaURL)
	case "memory", "":
		return NewChromemProvider(), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

// NewEmbedderFromConfig selects the embedding backend.
func NewEmbedderFromConfig(ctx context.Context, cfg config.ProviderConfig) (Embedder, error) {
	switch cfg.Provider {
	case "gemini":
		client, err := newGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiEmbedder(client, cfg.Model), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewGeneratorFromConfig selects the answer generation backend.
func NewGeneratorFromConfig(ctx context.Context, cfg config.ProviderConfig) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		client, err := newGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client, cfg.Model), nil
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini provider requires GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}
