package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"

	"github.com/itish2003/docqa/models"
)

// Generator writes an answer to question grounded in the given chunks.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []models.Chunk) (string, error)
}

// GeminiGenerator answers with a Gemini model. Each call is a fresh,
// single-turn request; no chat session is kept.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

func (g *GeminiGenerator) Generate(ctx context.Context, question string, chunks []models.Chunk) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildPrompt(question, chunks)),
		&genai.GenerateContentConfig{SystemInstruction: GetSystemPrompt()})
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "I'm sorry, I couldn't generate a response.", nil
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	return responseText.String(), nil
}

// LangchainGenerator answers with any langchaingo chat model.
type LangchainGenerator struct {
	llm llms.Model
}

func NewLangchainGenerator(llm llms.Model) *LangchainGenerator {
	return &LangchainGenerator{llm: llm}
}

func NewOllamaGenerator(serverURL, model string) (*LangchainGenerator, error) {
	llm, err := ollama.New(ollama.WithServerURL(serverURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create ollama client: %w", err)
	}
	return NewLangchainGenerator(llm), nil
}

func NewOpenAIGenerator(apiKey, baseURL, model string) (*LangchainGenerator, error) {
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create openai client: %w", err)
	}
	return NewLangchainGenerator(llm), nil
}

func (g *LangchainGenerator) Generate(ctx context.Context, question string, chunks []models.Chunk) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPrompt(question, chunks)),
	}
	resp, err := g.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "I'm sorry, I couldn't generate a response.", nil
	}
	return resp.Choices[0].Content, nil
}
