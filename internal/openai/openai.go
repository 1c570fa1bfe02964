package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/lehigh-university-libraries/textsnap/internal/providers"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAI is a provider for OpenAI-compatible vision chat completions
type OpenAI struct {
	apiKey string
	client sdk.Client
}

// New returns a new OpenAI provider. baseURL may be empty.
func New(apiKey, baseURL string, opts ...option.RequestOption) *OpenAI {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are the caller's decision
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)
	return &OpenAI{
		apiKey: apiKey,
		client: sdk.NewClient(clientOpts...),
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

// ExtractText sends the prompt and image as a single user message
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY not set", providers.ErrUnavailable)
	}

	parts := []sdk.ChatCompletionContentPartUnionParam{
		sdk.TextContentPart(config.Prompt),
	}
	if len(config.Image) > 0 {
		mimeType := config.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(config.Image)
		parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}))
	}

	resp, err := o.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(config.Model),
		Messages:    []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(parts)},
		Temperature: sdk.Float(config.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
