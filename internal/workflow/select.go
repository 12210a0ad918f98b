package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imgbridge/internal/ledger"
	"imgbridge/internal/sanitize"
	"imgbridge/internal/storage"
	"imgbridge/pkg/apperrors"
)

type SelectInput struct {
	GenerationID  string
	Index         int
	Filename      string // optional; used verbatim when set
	CleanupOthers *bool  // nil means true
}

type CleanupReport struct {
	Deleted  int      `json:"deleted"`
	Retained []string `json:"retained_previews,omitempty"`
}

type SelectOutput struct {
	PublicURL  string        `json:"public_url"`
	StorageKey string        `json:"storage_key"`
	Size       int64         `json:"size"`
	Markdown   string        `json:"markdown"`
	Cleanup    CleanupReport `json:"cleanup"`
	Warnings   []string      `json:"warnings,omitempty"`
}

const (
	slugMaxLen = 50
	altMaxLen  = 100
)

// Select promotes one candidate image to durable storage: ledger lookup,
// preview read, blob upload, ledger update, preview cleanup. Re-selecting an
// already-selected generation is rejected; the first selection's cleanup has
// already destroyed the previews a second pass would need.
func (s *Service) Select(ctx context.Context, in SelectInput) (*SelectOutput, error) {
	gen, err := s.repo.GetGeneration(ctx, in.GenerationID)
	if err != nil {
		return nil, err
	}
	if gen.SelectedIndex != nil {
		return nil, apperrors.Newf(apperrors.CodeAlreadySelected,
			"generation %s already has image %d selected", gen.ID, *gen.SelectedIndex)
	}

	if in.Index < 0 || in.Index >= len(gen.Images) {
		return nil, apperrors.Newf(apperrors.CodeInvalidIndex,
			"index %d out of range: generation has %d images", in.Index, len(gen.Images))
	}

	selected := gen.Images[in.Index]
	previewPath := selected.PreviewURL
	if !isLocalPreview(previewPath) {
		// Remote-URL previews are deliberately not fetched over HTTP.
		return nil, apperrors.Newf(apperrors.CodePreviewMissing,
			"preview for image %d is not a local file: %s", in.Index, previewPath)
	}
	data, err := os.ReadFile(previewPath)
	if err != nil {
		return nil, apperrors.Newf(apperrors.CodePreviewMissing,
			"preview file missing: %s", previewPath)
	}

	ext := "jpg"
	contentType := "image/jpeg"
	if strings.Contains(previewPath, ".png") {
		ext = "png"
		contentType = "image/png"
	}

	filename := in.Filename
	if filename == "" {
		filename = fmt.Sprintf("%s-%s.%s", slugify(gen.Prompt, slugMaxLen), s.now().Format("20060102-150405"), ext)
	}

	uploaded, err := s.store.Upload(ctx, storage.UploadInput{
		Data:        data,
		Filename:    filename,
		ContentType: contentType,
		Metadata: map[string]string{
			"generation-id": gen.ID,
			"prompt":        sanitize.Sanitize(gen.Prompt),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkSelected(ctx, gen.ID, in.Index, uploaded.Key, uploaded.PublicURL); err != nil {
		return nil, err
	}

	cleanupOthers := in.CleanupOthers == nil || *in.CleanupOthers
	report, warnings := s.cleanupPreviews(gen.Images, in.Index, previewPath, cleanupOthers)

	alt := gen.Context
	if alt == "" {
		alt = truncate(gen.Prompt, altMaxLen)
	}

	return &SelectOutput{
		PublicURL:  uploaded.PublicURL,
		StorageKey: uploaded.Key,
		Size:       uploaded.Size,
		Markdown:   fmt.Sprintf("![%s](%s)", alt, uploaded.PublicURL),
		Cleanup:    report,
		Warnings:   warnings,
	}, nil
}

// cleanupPreviews deletes local preview files after a successful upload.
// With cleanupOthers, every local preview goes and the directory removal is
// attempted; otherwise only the selected one goes and the rest are reported
// as retained. Already-missing files are not errors.
func (s *Service) cleanupPreviews(images []ledger.GenerationImage, selectedIndex int, selectedPath string, cleanupOthers bool) (CleanupReport, []string) {
	var report CleanupReport
	var warnings []string

	for _, img := range images {
		if !isLocalPreview(img.PreviewURL) {
			continue
		}
		if !cleanupOthers && img.IndexNum != selectedIndex {
			report.Retained = append(report.Retained, img.PreviewURL)
			continue
		}
		switch err := os.Remove(img.PreviewURL); {
		case err == nil:
			report.Deleted++
		case os.IsNotExist(err):
			// already gone
		default:
			warnings = append(warnings, fmt.Sprintf("cleanup %s: %v", img.PreviewURL, err))
			s.log.Warn("preview cleanup failed", "path", img.PreviewURL, "err", err)
		}
	}

	if cleanupOthers {
		// Best effort; a non-empty or already-removed directory is fine.
		_ = os.Remove(filepath.Dir(selectedPath))
	}

	return report, warnings
}

func isLocalPreview(ref string) bool {
	return !strings.HasPrefix(ref, "http://") &&
		!strings.HasPrefix(ref, "https://") &&
		!strings.HasPrefix(ref, "data:")
}

// slugify lowercases s, collapses non-alphanumeric runs to single hyphens,
// caps the length, and trims stray hyphens.
func slugify(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > max {
		out = strings.TrimRight(out[:max], "-")
	}
	if out == "" {
		out = "image"
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
