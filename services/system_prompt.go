package services

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/itish2003/docqa/models"
)

const systemPrompt = `You are a helpful assistant that answers questions about a single document the user uploaded.

Use only the numbered context passages provided with each question. Every question is independent; do not rely on earlier questions.
If the passages do not contain the answer, say that you don't know. Do not invent information.
Keep answers concise and, where it helps, mention the page the information came from.`

// GetSystemPrompt returns the system instruction in the form the Gemini API expects.
func GetSystemPrompt() *genai.Content {
	contents := genai.Text(systemPrompt)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}

// buildPrompt lays the retrieved chunks out as numbered passages followed by the question.
func buildPrompt(question string, chunks []models.Chunk) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, c := range chunks {
		fmt.Fprintf(&sb, "[%d] (%s, page %d)\n%s\n\n", i+1, c.Source, c.Page, c.Content)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
