package ledger

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"imgbridge/pkg/apperrors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Generation{}, &GenerationImage{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedGeneration(t *testing.T, repo *Repo, provider, model string, cost float64, imageCount int) *Generation {
	t.Helper()
	images := make([]GenerationImage, 0, imageCount)
	for i := 0; i < imageCount; i++ {
		images = append(images, GenerationImage{
			IndexNum:   i,
			PreviewURL: "/tmp/previews/x/" + string(rune('0'+i)) + ".png",
			Width:      1024,
			Height:     1024,
		})
	}
	gen, err := repo.CreateGeneration(context.Background(), &Generation{
		Prompt:      "a sunset",
		Model:       model,
		Provider:    provider,
		Count:       imageCount,
		AspectRatio: "1:1",
		Cost:        cost,
	}, images)
	if err != nil {
		t.Fatalf("create generation: %v", err)
	}
	return gen
}

func TestCreateAndGetGeneration(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	gen := seedGeneration(t, repo, "openai", "gpt-image-1", 0.08, 2)
	if gen.ID == "" {
		t.Fatal("expected assigned id")
	}
	if gen.CreatedAt.IsZero() {
		t.Fatal("expected assigned timestamp")
	}

	got, err := repo.GetGeneration(context.Background(), gen.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Images) != 2 {
		t.Fatalf("images = %d", len(got.Images))
	}
	for i, img := range got.Images {
		if img.IndexNum != i {
			t.Errorf("image %d has index_num %d", i, img.IndexNum)
		}
		if img.GenerationID != gen.ID {
			t.Errorf("image %d has generation_id %q", i, img.GenerationID)
		}
	}
	if got.SelectedIndex != nil {
		t.Error("fresh generation should have no selection")
	}
}

func TestGetGenerationNotFound(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	_, err := repo.GetGeneration(context.Background(), "missing-id")
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestMarkSelected(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	gen := seedGeneration(t, repo, "openai", "gpt-image-1", 0.04, 1)

	if err := repo.MarkSelected(context.Background(), gen.ID, 0, "images/2025/01/09/a.png", "https://cdn.example.com/images/2025/01/09/a.png"); err != nil {
		t.Fatalf("mark selected: %v", err)
	}

	got, err := repo.GetGeneration(context.Background(), gen.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SelectedIndex == nil || *got.SelectedIndex != 0 {
		t.Errorf("selected_index = %v", got.SelectedIndex)
	}
	if got.SelectedAt == nil || got.StorageKey == nil || got.PublicURL == nil {
		t.Errorf("selection columns not fully set: %+v", got)
	}

	if err := repo.MarkSelected(context.Background(), "missing-id", 0, "k", "u"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("missing id: err = %v, want NotFound", err)
	}
}

func TestListGenerationsNewestFirst(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	db := repo.db

	ids := make([]string, 3)
	for i := range ids {
		gen := seedGeneration(t, repo, "openai", "gpt-image-1", 0.04, 1)
		ids[i] = gen.ID
		// Space creation timestamps out explicitly; CreateGeneration stamps
		// wall-clock time and the test must not depend on sub-ms ordering.
		stamp := time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC)
		if err := db.Model(&Generation{}).Where("id = ?", gen.ID).Update("created_at", stamp).Error; err != nil {
			t.Fatalf("restamp: %v", err)
		}
	}

	gens, err := repo.ListGenerations(context.Background(), 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(gens) != 2 {
		t.Fatalf("len = %d", len(gens))
	}
	if gens[0].ID != ids[2] || gens[1].ID != ids[1] {
		t.Errorf("order = %s, %s; want %s, %s", gens[0].ID, gens[1].ID, ids[2], ids[1])
	}
	if len(gens[0].Images) != 1 {
		t.Errorf("images not preloaded")
	}
}

func TestGetCostsPartition(t *testing.T) {
	repo := NewRepo(openTestDB(t))

	costs := []struct {
		provider, model string
		cost            float64
	}{
		{"openai", "gpt-image-1", 0.08},
		{"openai", "dall-e-3", 0.04},
		{"gemini", "imagen-3.0-generate-002", 0.06},
	}
	var want float64
	for _, c := range costs {
		seedGeneration(t, repo, c.provider, c.model, c.cost, 1)
		want += c.cost
	}

	sum, err := repo.GetCosts(context.Background(), nil)
	if err != nil {
		t.Fatalf("get costs: %v", err)
	}
	if math.Abs(sum.Total-want) > 1e-9 {
		t.Errorf("total = %v, want %v", sum.Total, want)
	}
	if sum.GenerationCount != 3 {
		t.Errorf("count = %d", sum.GenerationCount)
	}

	var byProvider, byModel float64
	for _, v := range sum.ByProvider {
		byProvider += v
	}
	for _, v := range sum.ByModel {
		byModel += v
	}
	if math.Abs(byProvider-sum.Total) > 1e-9 {
		t.Errorf("by_provider sums to %v, total is %v", byProvider, sum.Total)
	}
	if math.Abs(byModel-sum.Total) > 1e-9 {
		t.Errorf("by_model sums to %v, total is %v", byModel, sum.Total)
	}
	if math.Abs(sum.ByProvider["openai"]-0.12) > 1e-9 {
		t.Errorf("openai = %v", sum.ByProvider["openai"])
	}
}

func TestGetCostsSinceWindow(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	db := repo.db

	old := seedGeneration(t, repo, "openai", "gpt-image-1", 0.50, 1)
	stamp := time.Now().UTC().Add(-48 * time.Hour)
	if err := db.Model(&Generation{}).Where("id = ?", old.ID).Update("created_at", stamp).Error; err != nil {
		t.Fatalf("restamp: %v", err)
	}
	seedGeneration(t, repo, "openai", "gpt-image-1", 0.04, 1)

	since := time.Now().UTC().Add(-24 * time.Hour)
	sum, err := repo.GetCosts(context.Background(), &since)
	if err != nil {
		t.Fatalf("get costs: %v", err)
	}
	if sum.GenerationCount != 1 {
		t.Errorf("count = %d, want 1", sum.GenerationCount)
	}
	if math.Abs(sum.Total-0.04) > 1e-9 {
		t.Errorf("total = %v, want 0.04", sum.Total)
	}
}
