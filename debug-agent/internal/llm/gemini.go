package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// ErrGeminiAuth is returned when neither an API key nor a Vertex AI project is configured.
var ErrGeminiAuth = errors.New("gemini needs an api key or a vertex ai project")

// GeminiConfig selects the Gemini API (APIKey set) or Vertex AI with
// application default credentials (Project set, APIKey empty).
type GeminiConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Project     string
	Location    string
	Temperature float64
	HTTPClient  *http.Client
}

// Gemini generates completions through the genai SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	cc := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	}
	switch {
	case cfg.APIKey != "":
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
		cc.HTTPClient = httpClient
	case cfg.Project != "":
		ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("gemini default credentials: %w", err)
		}
		// oauth2.NewClient builds on the client carried in the context.
		authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpClient), ts)
		authed.Timeout = httpClient.Timeout
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.HTTPClient = authed
	default:
		return nil, ErrGeminiAuth
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, temperature: float32(cfg.Temperature)}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)},
	)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return nonEmpty("gemini", resp.Text())
}
