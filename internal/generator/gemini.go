package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SignalFeed/internal/model"
	"SignalFeed/internal/recommend"

	"github.com/rs/zerolog"
)

const (
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	ModeAI                = "ai"
)

// ErrNotConfigured is returned when the generator has no API key.
var ErrNotConfigured = errors.New("gemini generator not configured")

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// Gemini asks a Gemini model for candidate ideas in JSON mode.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
	log    zerolog.Logger
	now    func() time.Time
}

// NewGemini creates a Gemini generator with defaults filled in.
func NewGemini(cfg GeminiConfig, log zerolog.Logger) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGeminiEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, recommendation runs will fail")
	}
	return &Gemini{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With().Str("component", "gemini").Logger(),
		now:    time.Now,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiContent          `json:"system_instruction"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  map[string]interface{} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// ideasEnvelope is the JSON document the model is told to return.
type ideasEnvelope struct {
	Ideas []model.CandidateIdea `json:"ideas"`
}

// Generate implements recommend.CandidateGenerator.
func (g *Gemini) Generate(ctx context.Context, req recommend.GenerateRequest) (*recommend.GenerationResult, error) {
	if g.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	started := g.now()

	prompt, err := BuildPrompt(req)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig:  map[string]interface{}{"response_mime_type": "application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.cfg.Endpoint, "/"), g.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(body))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no candidates in gemini response")
	}

	var env ideasEnvelope
	text := gr.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(stripFence(text)), &env); err != nil {
		return nil, fmt.Errorf("parse gemini ideas: %w", err)
	}

	modelName := gr.ModelVersion
	if modelName == "" {
		modelName = g.cfg.Model
	}
	res := &recommend.GenerationResult{
		Ideas: env.Ideas,
		Model: modelName,
		Mode:  ModeAI,
		Usage: model.Usage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		},
		DurationMs: g.now().Sub(started).Milliseconds(),
	}
	g.log.Debug().Int("ideas", len(res.Ideas)).Int("tokens", res.Usage.TotalTokens).Msg("candidates generated")
	return res, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
