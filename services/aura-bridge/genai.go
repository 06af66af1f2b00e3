package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// TextGenerator je úzké rozhraní na generativní model.
// Pipeline nezná konkrétního providera, v testech ho nahrazuje fake.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest nese prompt a limity výstupu.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int32
	Temperature float32
}

var errEmptyResponse = errors.New("generativní model nevrátil žádný text")

// GeminiGenerator volá Gemini API přes oficiální SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// GeminiConfig - BaseURL je prázdné v produkci, testy sem dávají httptest server.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string
}

// NewGeminiGenerator vytvoří klienta. HTTP klient má vždy timeout,
// jinak by jeden zaseknutý request zablokoval celé zpracování zpráv.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("chybí API klíč pro Gemini")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("nelze vytvořit GenAI klienta: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

// Generate pošle prompt a vrátí text z candidates[0].content.parts.
// Jakákoliv odchylka od očekávaného tvaru odpovědi je chyba.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}
