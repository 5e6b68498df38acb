// Package intelligence is the bottle count oracle: given a proof photo it
// estimates the bottle count, a confidence score and a material split. The
// oracle is advisory; completion always has a manual path when it fails or
// is unsure.
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bottlebank/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Analyzer estimates bottle counts from photos.
type Analyzer interface {
	Analyze(ctx context.Context, imageData []byte, mimeType string) (*models.BottleAnalysis, error)
}

const countPrompt = `You are a recycling assistant. Count the beverage bottles in this photo.
Respond with ONLY a JSON object, no markdown, in this shape:
{"count": <int>, "confidence": <0-100>, "plastic": <int>, "aluminum": <int>, "glass": <int>, "notes": "<short remark>"}`

// GeminiAnalyzer runs the count through a Gemini vision model.
type GeminiAnalyzer struct {
	model *genai.GenerativeModel
}

func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{model: client.GenerativeModel("models/gemini-1.5-pro")}, nil
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, imageData []byte, mimeType string) (*models.BottleAnalysis, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData(format, imageData),
		genai.Text(countPrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return ParseAnalysis(sb.String())
}

// ParseAnalysis decodes the model's JSON reply, tolerating a markdown fence
// around it.
func ParseAnalysis(raw string) (*models.BottleAnalysis, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var reply struct {
		Count      int     `json:"count"`
		Confidence float64 `json:"confidence"`
		Plastic    int     `json:"plastic"`
		Aluminum   int     `json:"aluminum"`
		Glass      int     `json:"glass"`
		Notes      string  `json:"notes"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("unparseable analysis reply: %w", err)
	}
	if reply.Count < 0 || reply.Confidence < 0 || reply.Confidence > 100 {
		return nil, fmt.Errorf("analysis reply out of range: count=%d confidence=%.1f", reply.Count, reply.Confidence)
	}

	return &models.BottleAnalysis{
		Count:      reply.Count,
		Confidence: reply.Confidence,
		Materials: models.MaterialBreakdown{
			Plastic:  reply.Plastic,
			Aluminum: reply.Aluminum,
			Glass:    reply.Glass,
		},
		Notes: reply.Notes,
	}, nil
}
