package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"imgbridge/internal/ledger"
	"imgbridge/internal/provider"
)

type GenerateInput struct {
	Prompt         string
	NegativePrompt string
	Count          int    // 0 means the configured default
	AspectRatio    string // empty means the configured default
	Context        string
}

type GeneratedImage struct {
	Index   int    `json:"index"`
	Preview string `json:"preview"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type GenerateOutput struct {
	GenerationID  string           `json:"generation_id"`
	Images        []GeneratedImage `json:"images"`
	Cost          float64          `json:"cost"`
	Model         string           `json:"model"`
	Provider      string           `json:"provider"`
	BudgetWarning string           `json:"budget_warning,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
}

// Generate runs one end-to-end generation: provider call, local preview
// materialization, ledger insert, budget check. Provider errors abort the
// whole call before anything is written; a failed preview write skips that
// one image and is reported as a warning instead of failing the batch.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	count := in.Count
	if count < 1 {
		count = s.cfg.Defaults.Count
	}
	aspectRatio := in.AspectRatio
	if aspectRatio == "" {
		aspectRatio = s.cfg.Defaults.AspectRatio
	}

	prov, err := s.registry.Get(s.cfg.Providers.Default)
	if err != nil {
		return nil, err
	}

	result, err := prov.Generate(ctx, provider.Request{
		Prompt:         in.Prompt,
		NegativePrompt: in.NegativePrompt,
		Count:          count,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, err
	}

	// The preview directory gets its own collision-resistant name; it is not
	// the ledger id, which does not exist yet.
	previewDir := filepath.Join(s.cfg.Preview.Dir, previewDirPrefix+ulid.Make().String())
	if err := os.MkdirAll(previewDir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}

	var warnings []string
	rows := make([]ledger.GenerationImage, 0, len(result.Images))
	for _, img := range result.Images {
		ref := img.Ref
		if provider.IsDataRef(ref) {
			data, mime, decErr := provider.DecodeDataRef(ref)
			if decErr != nil {
				warnings = append(warnings, fmt.Sprintf("image %d: %v", img.Index, decErr))
				s.log.Warn("preview decode failed", "index", img.Index, "err", decErr)
				continue
			}
			path := filepath.Join(previewDir, fmt.Sprintf("%d.%s", img.Index, provider.ExtForMIME(mime)))
			if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
				warnings = append(warnings, fmt.Sprintf("image %d: %v", img.Index, writeErr))
				s.log.Warn("preview write failed", "index", img.Index, "err", writeErr)
				continue
			}
			ref = path
		}
		// Bare remote URLs surface as-is without local materialization.
		rows = append(rows, ledger.GenerationImage{
			IndexNum:   img.Index,
			PreviewURL: ref,
			Width:      img.Width,
			Height:     img.Height,
			Seed:       img.Seed,
		})
	}

	gen, err := s.repo.CreateGeneration(ctx, &ledger.Generation{
		Prompt:         in.Prompt,
		NegativePrompt: in.NegativePrompt,
		Context:        in.Context,
		Model:          result.ModelUsed,
		Provider:       result.Provider,
		Count:          count,
		AspectRatio:    aspectRatio,
		Cost:           result.Cost,
	}, rows)
	if err != nil {
		return nil, err
	}

	out := &GenerateOutput{
		GenerationID: gen.ID,
		Cost:         result.Cost,
		Model:        result.ModelUsed,
		Provider:     result.Provider,
		Warnings:     warnings,
	}
	for _, row := range gen.Images {
		out.Images = append(out.Images, GeneratedImage{
			Index:   row.IndexNum,
			Preview: row.PreviewURL,
			Width:   row.Width,
			Height:  row.Height,
		})
	}

	if warning, err := s.budgetWarning(ctx); err != nil {
		// The generation itself succeeded; a failed budget query degrades to
		// a warning rather than failing the call.
		warnings = append(warnings, fmt.Sprintf("budget check: %v", err))
		out.Warnings = warnings
	} else {
		out.BudgetWarning = warning
	}

	return out, nil
}

// budgetWarning computes month-to-date spend (since local midnight on the
// first of the month) and formats an alert when it crosses
// monthly_limit x alert_threshold.
func (s *Service) budgetWarning(ctx context.Context) (string, error) {
	limit := s.cfg.Budget.MonthlyLimit
	if limit <= 0 {
		return "", nil
	}

	since := startOfMonth(s.now())
	sum, err := s.repo.GetCosts(ctx, &since)
	if err != nil {
		return "", err
	}

	threshold := limit * s.cfg.Budget.AlertThreshold
	if sum.Total < threshold {
		return "", nil
	}
	pct := sum.Total / limit * 100
	return fmt.Sprintf("Budget alert: %.1f%% of monthly limit used ($%.2f of $%.2f)", pct, sum.Total, limit), nil
}
