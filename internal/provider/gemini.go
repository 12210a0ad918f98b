package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"imgbridge/pkg/apperrors"
)

// GeminiProvider drives the Imagen predict endpoint of the Gemini API.
// Unlike OpenAI it supports aspect ratio and negative prompts natively.
type GeminiProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

var geminiCosts = map[string]float64{
	"imagen-3.0-generate-002":      0.03,
	"imagen-3.0-fast-generate-001": 0.02,
}

type geminiPredictReq struct {
	Instances  []geminiInstance `json:"instances"`
	Parameters geminiParameters `json:"parameters"`
}

type geminiInstance struct {
	Prompt string `json:"prompt"`
}

type geminiParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
}

type geminiPredictResp struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewGeminiProvider(baseURL, apiKey, model string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "imagen-3.0-generate-002"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, apperrors.New(apperrors.CodeUpstreamProvider, "gemini: api key is required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.Model
	}
	count := req.Count
	if count < 1 {
		count = 1
	}

	body, err := json.Marshal(geminiPredictReq{
		Instances: []geminiInstance{{Prompt: req.Prompt}},
		Parameters: geminiParameters{
			SampleCount:    count,
			AspectRatio:    req.AspectRatio,
			NegativePrompt: req.NegativePrompt,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:predict", strings.TrimRight(p.BaseURL, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamProvider, "gemini request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, apperrors.Newf(apperrors.CodeUpstreamProvider, "gemini: %s", msg)
	}

	var decoded geminiPredictResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamProvider, "gemini: bad response")
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, apperrors.Newf(apperrors.CodeUpstreamProvider, "gemini: %s", decoded.Error.Message)
	}
	if len(decoded.Predictions) == 0 {
		return nil, apperrors.New(apperrors.CodeUpstreamProvider, "gemini: empty response")
	}

	// Imagen reports no per-image dimensions; fall back to the requested size.
	width, height := dimensions(req.AspectRatio)

	images := make([]Image, 0, len(decoded.Predictions))
	for i, pred := range decoded.Predictions {
		mime := pred.MimeType
		if mime == "" {
			mime = "image/png"
		}
		images = append(images, Image{
			Index:  i,
			Ref:    fmt.Sprintf("data:%s;base64,%s", mime, pred.BytesBase64Encoded),
			Width:  width,
			Height: height,
		})
	}

	return &Result{
		Images:    images,
		ModelUsed: model,
		Cost:      p.CostPerImage(model) * float64(len(images)),
		Provider:  p.Name(),
	}, nil
}

func (p *GeminiProvider) DownloadImage(ctx context.Context, ref string) ([]byte, error) {
	return fetchRef(ctx, p.Client, ref)
}

func (p *GeminiProvider) CostPerImage(model string) float64 {
	if c, ok := geminiCosts[model]; ok {
		return c
	}
	return geminiCosts["imagen-3.0-generate-002"]
}

func (p *GeminiProvider) ListModels() []string {
	return []string{"imagen-3.0-generate-002", "imagen-3.0-fast-generate-001"}
}
