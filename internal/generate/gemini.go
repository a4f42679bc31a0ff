package generate

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/soapboxhq/soapbox/internal/credentials"
	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// ModelClient is the language-model surface the generator depends on.
type ModelClient interface {
	Complete(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// GeminiClient calls the Gemini API.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, soaperr.E(soaperr.KindAuth, "gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, soaperr.Wrap(soaperr.KindAuth, err, "failed to create gemini client")
	}
	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) Complete(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	temp := float32(temperature)
	config := &genai.GenerateContentConfig{Temperature: &temp}

	result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyModelError(err)
	}
	if result == nil || len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", soaperr.E(soaperr.KindPlatform, "gemini returned no candidates")
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

// ClientProvider yields a model client authenticating as a user.
// *Factory is the production implementation.
type ClientProvider interface {
	ForUser(ctx context.Context, userID string) (ModelClient, error)
}

// Factory builds per-user model clients from each user's stored API key.
// Clients are cached by key, so a rotated credential gets a fresh client and
// a missing or invalidated one surfaces as an auth error.
type Factory struct {
	creds credentials.Provider

	mu      sync.Mutex
	clients map[string]*GeminiClient // keyed by api key
}

func NewFactory(creds credentials.Provider) *Factory {
	return &Factory{creds: creds, clients: make(map[string]*GeminiClient)}
}

// ForUser returns a client using the user's gemini api_key credential.
func (f *Factory) ForUser(ctx context.Context, userID string) (ModelClient, error) {
	key, err := f.creds.Get(userID, models.AIProvider, models.CredentialAPIKey)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[key]; ok {
		return c, nil
	}
	c, err := NewGeminiClient(ctx, key)
	if err != nil {
		return nil, err
	}
	f.clients[key] = c
	return c, nil
}

func classifyModelError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "exhausted") || strings.Contains(msg, "rate limit"):
		return soaperr.Wrap(soaperr.KindRateLimit, err, "gemini quota exhausted")
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "api key"):
		return soaperr.Wrap(soaperr.KindAuth, err, "gemini rejected credentials")
	default:
		return soaperr.Wrap(soaperr.KindPlatform, err, "gemini call failed")
	}
}
