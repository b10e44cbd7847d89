// Package gemini backs the fallback classifier and the OCR reader with
// Google Gemini vision models.
package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/shelfvision/shelfscan/internal/vision"
)

const classifyPrompt = `You are looking at a cropped region from a retail shelf photo.
Decide whether it shows a product package (even if a small price tag is attached) or a price/info tag label.
Answer with exactly one word: "product" or "tag".`

const ocrPrompt = `Transcribe every piece of visible text in this image, one fragment per line.
Output only the text, no commentary.`

// Provider implements the fallback Classifier and the OCRReader using
// Gemini's vision capabilities.
type Provider struct {
	model string
}

// New returns a provider using the given model, defaulting to
// GEMINI_MODEL and then gemini-2.0-flash.
func New(model string) *Provider {
	if model == "" {
		model = os.Getenv("GEMINI_MODEL")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Provider{model: model}
}

func (p *Provider) generate(ctx context.Context, imagePath, prompt string) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	format := strings.TrimPrefix(filepath.Ext(imagePath), ".")
	if format == "jpg" || format == "" {
		format = "jpeg"
	}

	model := client.GenerativeModel(p.model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.ImageData(format, imageData), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response format from Gemini")
}

// Classify asks the model whether the crop shows a product or a tag. The
// model gives a hard verdict, so the probabilities are reported as 1/0.
func (p *Provider) Classify(ctx context.Context, imagePath string) (string, vision.Probabilities, error) {
	answer, err := p.generate(ctx, imagePath, classifyPrompt)
	if err != nil {
		return "", vision.Probabilities{}, err
	}

	verdict := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case strings.Contains(verdict, "product"):
		return "product", vision.Probabilities{Product: 1}, nil
	case strings.Contains(verdict, "tag"):
		return "tag", vision.Probabilities{Tag: 1}, nil
	default:
		return "", vision.Probabilities{}, fmt.Errorf("unexpected classifier verdict: %q", verdict)
	}
}

// ReadText transcribes the crop's visible text, one fragment per line.
func (p *Provider) ReadText(ctx context.Context, imagePath string) ([]vision.TextFragment, error) {
	answer, err := p.generate(ctx, imagePath, ocrPrompt)
	if err != nil {
		return nil, err
	}

	var fragments []vision.TextFragment
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fragments = append(fragments, vision.TextFragment{Text: line, Confidence: 1})
	}
	return fragments, nil
}
