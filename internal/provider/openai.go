package provider

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

	"imgbridge/pkg/apperrors"
)

// OpenAIProvider drives the OpenAI Images API (/v1/images/generations).
type OpenAIProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

var openAICosts = map[string]float64{
	"gpt-image-1": 0.04,
	"dall-e-3":    0.04,
	"dall-e-2":    0.02,
}

type openAIImageReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type openAIImageResp struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-image-1"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, apperrors.New(apperrors.CodeUpstreamProvider, "openai: api key is required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = p.Model
	}
	count := req.Count
	if count < 1 {
		count = 1
	}

	prompt := req.Prompt
	// The Images API has no negative-prompt field; fold it into the prompt.
	if req.NegativePrompt != "" {
		prompt = fmt.Sprintf("%s. Do not include: %s", prompt, req.NegativePrompt)
	}

	width, height := dimensions(req.AspectRatio)

	body, err := json.Marshal(openAIImageReq{
		Model:  model,
		Prompt: prompt,
		N:      count,
		Size:   fmt.Sprintf("%dx%d", width, height),
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/images/generations", strings.TrimRight(p.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamProvider, "openai request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, apperrors.Newf(apperrors.CodeUpstreamProvider, "openai: %s", msg)
	}

	var decoded openAIImageResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamProvider, "openai: bad response")
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, apperrors.Wrap(errors.New(decoded.Error.Message), apperrors.CodeUpstreamProvider, "openai")
	}
	if len(decoded.Data) == 0 {
		return nil, apperrors.New(apperrors.CodeUpstreamProvider, "openai: empty response")
	}

	images := make([]Image, 0, len(decoded.Data))
	for i, d := range decoded.Data {
		ref := d.URL
		if d.B64JSON != "" {
			ref = "data:image/png;base64," + d.B64JSON
		}
		images = append(images, Image{
			Index:  i,
			Ref:    ref,
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

func (p *OpenAIProvider) DownloadImage(ctx context.Context, ref string) ([]byte, error) {
	return fetchRef(ctx, p.Client, ref)
}

func (p *OpenAIProvider) CostPerImage(model string) float64 {
	if c, ok := openAICosts[model]; ok {
		return c
	}
	return openAICosts["gpt-image-1"]
}

func (p *OpenAIProvider) ListModels() []string {
	return []string{"gpt-image-1", "dall-e-3", "dall-e-2"}
}
