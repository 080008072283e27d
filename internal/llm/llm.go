// Package llm wraps the Gemini SDK behind the pipeline's Backend contract.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"google.golang.org/genai"
)

// DefaultModel is the default Gemini model used for article generation.
const DefaultModel = "gemini-flash-lite-latest"

// Client is the production generation backend. It implements
// generate.Backend; the GenerateText call honors the context deadline, so a
// timed-out attempt surfaces as an error for retry accounting.
type Client struct {
	apiKey    string
	modelName string
	gClient   *genai.Client
}

// NewClient creates an LLM client. The API key is resolved in order of
// preference: GEMINI_API_KEY environment variable, then the gemini.api_key
// configuration key.
func NewClient(modelName string) (*Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = viper.GetString("gemini.api_key")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required; set GEMINI_API_KEY or gemini.api_key in the config file")
	}

	if modelName == "" {
		modelName = viper.GetString("gemini.model")
		if modelName == "" {
			modelName = DefaultModel
		}
	}

	ctx := context.Background()
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		apiKey:    apiKey,
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// GenerateText sends a prompt to the model and returns the raw response
// text. An empty response is an error; the caller treats the text as
// untrusted and validates it separately.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}

// ModelName reports which model the client targets.
func (c *Client) ModelName() string {
	return c.modelName
}
