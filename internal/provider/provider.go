// Package provider abstracts image-generation backends behind a small
// capability interface and a closed-name registry.
package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"imgbridge/pkg/apperrors"
)

type Request struct {
	Prompt         string
	NegativePrompt string
	Count          int
	AspectRatio    string
	Model          string // empty means the provider's configured default
}

// Image is one produced candidate. Ref is either an embedded data reference
// (data:<mime>;base64,<payload>) or a plain remote URL.
type Image struct {
	Index  int
	Ref    string
	Width  int
	Height int
	Seed   *int64
}

// Result of one generation call. Cost is the total for the whole batch.
type Result struct {
	Images    []Image
	ModelUsed string
	Cost      float64
	Provider  string
}

type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
	DownloadImage(ctx context.Context, ref string) ([]byte, error)
	CostPerImage(model string) float64
	ListModels() []string
}

const dataRefPrefix = "data:"

func IsDataRef(ref string) bool {
	return strings.HasPrefix(ref, dataRefPrefix)
}

// DecodeDataRef splits a data:<mime>;base64,<payload> reference into payload
// bytes and MIME type.
func DecodeDataRef(ref string) (data []byte, mime string, err error) {
	rest, ok := strings.CutPrefix(ref, dataRefPrefix)
	if !ok {
		return nil, "", fmt.Errorf("not a data reference")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data reference")
	}
	mime = strings.TrimSuffix(header, ";base64")
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data reference: %w", err)
	}
	return data, mime, nil
}

// ExtForMIME maps a MIME type to the preview file extension: jpg for JPEG
// payloads, png for everything else.
func ExtForMIME(mime string) string {
	if mime == "image/jpeg" || mime == "image/jpg" {
		return "jpg"
	}
	return "png"
}

// fetchRef resolves either kind of image reference to raw bytes. Shared by
// the provider implementations' DownloadImage methods.
func fetchRef(ctx context.Context, client *http.Client, ref string) ([]byte, error) {
	if IsDataRef(ref) {
		data, _, err := DecodeDataRef(ref)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeUpstreamProvider, "bad image reference")
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamProvider, "bad image url")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamProvider, "image download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Newf(apperrors.CodeUpstreamProvider, "image download failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// dimensions maps an aspect-ratio token to the pixel size a provider renders
// at. Used both for request shaping and as the fallback when a provider does
// not report per-image dimensions.
func dimensions(aspectRatio string) (width, height int) {
	switch aspectRatio {
	case "16:9", "3:2", "4:3":
		return 1536, 1024
	case "9:16", "2:3", "3:4":
		return 1024, 1536
	default: // 1:1 and anything unrecognized
		return 1024, 1024
	}
}
