package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const sweepReportCap = 20

type SweepInput struct {
	OlderThanDays int // 0 means the configured retention default
	DryRun        bool
}

type SweepCandidate struct {
	Dir     string `json:"dir"`
	AgeDays int    `json:"age_days"`
}

type SweepOutput struct {
	DryRun     bool             `json:"dry_run"`
	Candidates []SweepCandidate `json:"candidates,omitempty"`
	More       int              `json:"more,omitempty"`
	Deleted    int              `json:"deleted"`
	Errors     []string         `json:"errors,omitempty"`
}

// Sweep reclaims abandoned preview directories by filesystem mtime alone;
// the ledger is not consulted. A missing preview area is a no-op.
func (s *Service) Sweep(in SweepInput) (*SweepOutput, error) {
	days := in.OlderThanDays
	if days <= 0 {
		days = s.cfg.Preview.RetentionDays
	}

	out := &SweepOutput{DryRun: in.DryRun}

	entries, err := os.ReadDir(s.cfg.Preview.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("scan preview dir: %w", err)
	}

	now := s.now()
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	var candidates []SweepCandidate
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), previewDirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", e.Name(), err))
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		candidates = append(candidates, SweepCandidate{
			Dir:     filepath.Join(s.cfg.Preview.Dir, e.Name()),
			AgeDays: int(now.Sub(info.ModTime()).Hours() / 24),
		})
	}

	if in.DryRun {
		if len(candidates) > sweepReportCap {
			out.More = len(candidates) - sweepReportCap
			candidates = candidates[:sweepReportCap]
		}
		out.Candidates = candidates
		return out, nil
	}

	for _, c := range candidates {
		if err := removeDirContents(c.Dir); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", c.Dir, err))
			continue
		}
		if err := os.Remove(c.Dir); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", c.Dir, err))
			continue
		}
		out.Deleted++
	}
	if out.Deleted > 0 {
		s.log.Info("preview sweep", "deleted", out.Deleted, "older_than_days", days)
	}
	return out, nil
}

func removeDirContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
