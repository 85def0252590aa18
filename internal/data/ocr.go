package data

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
)

// DefaultOCRModel is the vision model used when none is configured
const DefaultOCRModel = "gpt-4o-mini"

const ocrPrompt = "Transcribe all text visible in the image exactly as written. " +
	"Reply with the text only, no commentary. Reply with an empty message if there is no text."

// chatCompleter is the go-openai call used for OCR
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ocrRepo reads text from images with an OpenAI-compatible vision model
type ocrRepo struct {
	client  chatCompleter
	model   string
	timeout time.Duration
}

// NewOCRRepo creates an OCR repository. An empty baseURL uses the OpenAI endpoint.
func NewOCRRepo(apiKey, baseURL, model string) repo.OCRRepo {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return newOCRRepo(openai.NewClientWithConfig(config), model)
}

func newOCRRepo(client chatCompleter, model string) *ocrRepo {
	if model == "" {
		model = DefaultOCRModel
	}
	return &ocrRepo{client: client, model: model, timeout: 60 * time.Second}
}

// ExtractText returns the text recognized in the image
func (r *ocrRepo) ExtractText(ctx context.Context, data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", repo.ErrNotAnImage
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dataURL := "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data)
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ocrPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
