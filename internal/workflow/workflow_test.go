package workflow

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"imgbridge/internal/config"
	"imgbridge/internal/ledger"
	"imgbridge/internal/provider"
	"imgbridge/internal/storage"
	"imgbridge/pkg/apperrors"
)

type stubProvider struct {
	images []provider.Image
	cost   float64
	model  string
	err    error
	calls  int
}

func (p *stubProvider) Name() string { return "openai" }

func (p *stubProvider) Generate(ctx context.Context, req provider.Request) (*provider.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &provider.Result{
		Images:    p.images,
		ModelUsed: p.model,
		Cost:      p.cost,
		Provider:  p.Name(),
	}, nil
}

func (p *stubProvider) DownloadImage(ctx context.Context, ref string) ([]byte, error) {
	data, _, err := provider.DecodeDataRef(ref)
	return data, err
}

func (p *stubProvider) CostPerImage(model string) float64 { return 0.04 }
func (p *stubProvider) ListModels() []string              { return []string{p.model} }

type uploadRecord struct {
	storage.UploadInput
	Key string
}

type fakeStore struct {
	uploads []uploadRecord
	err     error
}

func (f *fakeStore) Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := "images/2025/01/09/" + in.Filename
	f.uploads = append(f.uploads, uploadRecord{UploadInput: in, Key: key})
	return &storage.UploadOutput{
		Key:       key,
		PublicURL: "https://cdn.test/" + key,
		Size:      int64(len(in.Data)),
	}, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error { return nil }
func (f *fakeStore) HealthCheck(ctx context.Context) error        { return nil }

func dataRef(mime, payload string) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString([]byte(payload)))
}

var testNow = time.Date(2025, time.January, 9, 15, 4, 5, 0, time.UTC)

func newTestService(t *testing.T, prov provider.Provider, store storage.BlobStore) (*Service, *ledger.Repo, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&ledger.Generation{}, &ledger.GenerationImage{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	repo := ledger.NewRepo(gdb)

	cfg := &config.Config{
		Providers: config.ProvidersConfig{Default: "openai"},
		Defaults:  config.DefaultsConfig{Count: 1, AspectRatio: "1:1"},
		Preview:   config.PreviewConfig{Dir: t.TempDir(), RetentionDays: 7},
		Budget:    config.BudgetConfig{MonthlyLimit: 25, AlertThreshold: 0.8},
	}

	reg := provider.NewRegistry()
	reg.Register("openai", func() (provider.Provider, error) { return prov, nil })

	svc := NewService(cfg, repo, reg, store, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	svc.now = func() time.Time { return testNow }
	return svc, repo, gdb
}

func twoImageStub() *stubProvider {
	return &stubProvider{
		images: []provider.Image{
			{Index: 0, Ref: dataRef("image/png", "png-zero"), Width: 1024, Height: 1024},
			{Index: 1, Ref: dataRef("image/png", "png-one"), Width: 1024, Height: 1024},
		},
		cost:  0.08,
		model: "gpt-image-1",
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	prov := twoImageStub()
	svc, repo, _ := newTestService(t, prov, &fakeStore{})

	out, err := svc.Generate(context.Background(), GenerateInput{Prompt: "a sunset", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.GenerationID == "" {
		t.Fatal("no generation id")
	}
	if len(out.Images) != 2 {
		t.Fatalf("images = %d", len(out.Images))
	}
	if out.Cost != 0.08 || out.Model != "gpt-image-1" || out.Provider != "openai" {
		t.Errorf("out = %+v", out)
	}

	for i, img := range out.Images {
		if img.Index != i {
			t.Errorf("image %d has index %d", i, img.Index)
		}
		data, err := os.ReadFile(img.Preview)
		if err != nil {
			t.Fatalf("preview %d not on disk: %v", i, err)
		}
		want := "png-zero"
		if i == 1 {
			want = "png-one"
		}
		if string(data) != want {
			t.Errorf("preview %d = %q, want %q", i, data, want)
		}
		if filepath.Ext(img.Preview) != ".png" {
			t.Errorf("preview ext = %q", filepath.Ext(img.Preview))
		}
		if !strings.HasPrefix(filepath.Base(filepath.Dir(img.Preview)), previewDirPrefix) {
			t.Errorf("preview dir %q lacks prefix", filepath.Dir(img.Preview))
		}
	}

	stored, err := repo.GetGeneration(context.Background(), out.GenerationID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if len(stored.Images) != 2 || stored.Images[0].IndexNum != 0 || stored.Images[1].IndexNum != 1 {
		t.Errorf("stored images = %+v", stored.Images)
	}
}

func TestGenerateProviderErrorAborts(t *testing.T) {
	prov := &stubProvider{err: fmt.Errorf("rate limited")}
	svc, repo, _ := newTestService(t, prov, &fakeStore{})

	_, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v", err)
	}

	gens, err := repo.ListGenerations(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(gens) != 0 {
		t.Errorf("ledger should be empty, has %d rows", len(gens))
	}
}

func TestGenerateJPEGExtension(t *testing.T) {
	prov := &stubProvider{
		images: []provider.Image{{Index: 0, Ref: dataRef("image/jpeg", "jpeg-bytes"), Width: 1024, Height: 1024}},
		cost:   0.04,
		model:  "gpt-image-1",
	}
	svc, _, _ := newTestService(t, prov, &fakeStore{})

	out, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if filepath.Ext(out.Images[0].Preview) != ".jpg" {
		t.Errorf("ext = %q, want .jpg", filepath.Ext(out.Images[0].Preview))
	}
}

func TestGenerateRemoteURLPassthrough(t *testing.T) {
	prov := &stubProvider{
		images: []provider.Image{{Index: 0, Ref: "https://img.example.com/a.png", Width: 512, Height: 512}},
		cost:   0.04,
		model:  "gpt-image-1",
	}
	svc, repo, _ := newTestService(t, prov, &fakeStore{})

	out, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Images[0].Preview != "https://img.example.com/a.png" {
		t.Errorf("preview = %q", out.Images[0].Preview)
	}

	stored, _ := repo.GetGeneration(context.Background(), out.GenerationID)
	if stored.Images[0].PreviewURL != "https://img.example.com/a.png" {
		t.Errorf("stored preview = %q", stored.Images[0].PreviewURL)
	}
}

func TestGenerateBudgetWarning(t *testing.T) {
	prov := twoImageStub()
	prov.cost = 0.04
	prov.images = prov.images[:1]
	svc, repo, _ := newTestService(t, prov, &fakeStore{})

	// Seed month-to-date spend so this request lands the total exactly on 22.
	if _, err := repo.CreateGeneration(context.Background(), &ledger.Generation{
		Prompt: "seed", Model: "gpt-image-1", Provider: "openai",
		Count: 1, AspectRatio: "1:1", Cost: 21.96,
	}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.BudgetWarning == "" {
		t.Fatal("expected budget warning")
	}
	if !strings.Contains(out.BudgetWarning, "88.0%") {
		t.Errorf("warning = %q, want it to contain 88.0%%", out.BudgetWarning)
	}
}

func TestGenerateNoBudgetWarningBelowThreshold(t *testing.T) {
	prov := twoImageStub()
	prov.cost = 0.04
	prov.images = prov.images[:1]
	svc, repo, _ := newTestService(t, prov, &fakeStore{})

	if _, err := repo.CreateGeneration(context.Background(), &ledger.Generation{
		Prompt: "seed", Model: "gpt-image-1", Provider: "openai",
		Count: 1, AspectRatio: "1:1", Cost: 4.96,
	}, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.BudgetWarning != "" {
		t.Errorf("unexpected warning %q", out.BudgetWarning)
	}
}

func TestSelectEndToEnd(t *testing.T) {
	prov := twoImageStub()
	store := &fakeStore{}
	svc, repo, _ := newTestService(t, prov, store)

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "a sunset", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	out, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 1})
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	if len(store.uploads) != 1 {
		t.Fatalf("uploads = %d", len(store.uploads))
	}
	up := store.uploads[0]
	if string(up.Data) != "png-one" {
		t.Errorf("uploaded bytes = %q", up.Data)
	}
	if up.ContentType != "image/png" {
		t.Errorf("content type = %q", up.ContentType)
	}
	if up.Metadata["generation-id"] != gen.GenerationID {
		t.Errorf("metadata generation-id = %q", up.Metadata["generation-id"])
	}
	if up.Metadata["prompt"] != "a sunset" {
		t.Errorf("metadata prompt = %q", up.Metadata["prompt"])
	}

	stored, _ := repo.GetGeneration(context.Background(), gen.GenerationID)
	if stored.SelectedIndex == nil || *stored.SelectedIndex != 1 {
		t.Errorf("selected_index = %v", stored.SelectedIndex)
	}
	if stored.StorageKey == nil || *stored.StorageKey != out.StorageKey {
		t.Errorf("storage_key = %v", stored.StorageKey)
	}
	if stored.PublicURL == nil || *stored.PublicURL != out.PublicURL {
		t.Errorf("public_url = %v", stored.PublicURL)
	}

	// cleanup_others defaults to true: both previews gone, directory removed.
	if out.Cleanup.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", out.Cleanup.Deleted)
	}
	if len(out.Cleanup.Retained) != 0 {
		t.Errorf("retained = %v", out.Cleanup.Retained)
	}
	previewDir := filepath.Dir(gen.Images[0].Preview)
	if _, err := os.Stat(previewDir); !os.IsNotExist(err) {
		t.Errorf("preview dir still present: %v", err)
	}

	if out.Size != int64(len("png-one")) {
		t.Errorf("size = %d", out.Size)
	}
	if out.Markdown != fmt.Sprintf("![a sunset](%s)", out.PublicURL) {
		t.Errorf("markdown = %q", out.Markdown)
	}
}

func TestSelectCleanupOthersFalse(t *testing.T) {
	prov := &stubProvider{
		images: []provider.Image{
			{Index: 0, Ref: dataRef("image/png", "zero")},
			{Index: 1, Ref: dataRef("image/png", "one")},
			{Index: 2, Ref: dataRef("image/png", "two")},
		},
		cost:  0.12,
		model: "gpt-image-1",
	}
	svc, _, _ := newTestService(t, prov, &fakeStore{})

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x", Count: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cleanup := false
	out, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 1, CleanupOthers: &cleanup})
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	if out.Cleanup.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", out.Cleanup.Deleted)
	}
	if len(out.Cleanup.Retained) != 2 {
		t.Fatalf("retained = %v", out.Cleanup.Retained)
	}
	if _, err := os.Stat(gen.Images[1].Preview); !os.IsNotExist(err) {
		t.Error("selected preview should be deleted")
	}
	for _, i := range []int{0, 2} {
		if _, err := os.Stat(gen.Images[i].Preview); err != nil {
			t.Errorf("retained preview %d missing: %v", i, err)
		}
	}
}

func TestSelectNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})
	_, err := svc.Select(context.Background(), SelectInput{GenerationID: "nope", Index: 0})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestSelectInvalidIndex(t *testing.T) {
	svc, repo, _ := newTestService(t, twoImageStub(), &fakeStore{})

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, idx := range []int{-1, 2, 99} {
		_, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: idx})
		if !apperrors.IsCode(err, apperrors.CodeInvalidIndex) {
			t.Errorf("index %d: err = %v, want InvalidIndex", idx, err)
		}
	}

	// A generation with no image rows fails the same way at any index.
	empty, err := repo.CreateGeneration(context.Background(), &ledger.Generation{
		Prompt: "empty", Model: "m", Provider: "openai", Count: 1, AspectRatio: "1:1",
	}, nil)
	if err != nil {
		t.Fatalf("seed empty: %v", err)
	}
	_, err = svc.Select(context.Background(), SelectInput{GenerationID: empty.ID, Index: 0})
	if !apperrors.IsCode(err, apperrors.CodeInvalidIndex) {
		t.Errorf("empty generation: err = %v, want InvalidIndex", err)
	}
}

func TestSelectPreviewMissing(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := os.Remove(gen.Images[0].Preview); err != nil {
		t.Fatalf("remove preview: %v", err)
	}

	_, err = svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 0})
	if !apperrors.IsCode(err, apperrors.CodePreviewMissing) {
		t.Fatalf("err = %v, want PreviewMissing", err)
	}
}

func TestSelectRemoteURLPreviewFails(t *testing.T) {
	prov := &stubProvider{
		images: []provider.Image{{Index: 0, Ref: "https://img.example.com/a.png"}},
		cost:   0.04,
		model:  "gpt-image-1",
	}
	svc, _, _ := newTestService(t, prov, &fakeStore{})

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 0})
	if !apperrors.IsCode(err, apperrors.CodePreviewMissing) {
		t.Fatalf("err = %v, want PreviewMissing", err)
	}
}

func TestSelectAlreadySelected(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 0}); err != nil {
		t.Fatalf("first select: %v", err)
	}

	_, err = svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 1})
	if !apperrors.IsCode(err, apperrors.CodeAlreadySelected) {
		t.Fatalf("err = %v, want AlreadySelected", err)
	}
}

func TestSelectFilenameDerivation(t *testing.T) {
	store := &fakeStore{}
	svc, _, _ := newTestService(t, twoImageStub(), store)

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "A Sunset Over the Sea!!", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 0}); err != nil {
		t.Fatalf("select: %v", err)
	}

	got := store.uploads[0].Filename
	want := "a-sunset-over-the-sea-20250109-150405.png"
	if got != want {
		t.Errorf("filename = %q, want %q", got, want)
	}
}

func TestSelectCustomFilenameVerbatim(t *testing.T) {
	store := &fakeStore{}
	svc, _, _ := newTestService(t, twoImageStub(), store)

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: "x", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 0, Filename: "My File (1).PNG"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := store.uploads[0].Filename; got != "My File (1).PNG" {
		t.Errorf("filename = %q", got)
	}
}

func TestSelectMarkdownUsesContext(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: strings.Repeat("p", 150), Context: "hero banner", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	out, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 0})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !strings.HasPrefix(out.Markdown, "![hero banner](") {
		t.Errorf("markdown = %q", out.Markdown)
	}
}

func TestSelectMarkdownTruncatesPrompt(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})

	gen, err := svc.Generate(context.Background(), GenerateInput{Prompt: strings.Repeat("p", 150), Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	out, err := svc.Select(context.Background(), SelectInput{GenerationID: gen.GenerationID, Index: 0})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	wantAlt := strings.Repeat("p", 100)
	if !strings.HasPrefix(out.Markdown, "!["+wantAlt+"](") {
		t.Errorf("markdown alt not truncated to 100: %q", out.Markdown)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"A Sunset Over the Sea", 50, "a-sunset-over-the-sea"},
		{"hello___world!!!", 50, "hello-world"},
		{"--already--hyphened--", 50, "already-hyphened"},
		{strings.Repeat("ab-", 30), 10, "ab-ab-ab"},
		{"!!!", 50, "image"},
	}
	for _, tc := range cases {
		if got := slugify(tc.in, tc.max); got != tc.want {
			t.Errorf("slugify(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestCostsPeriods(t *testing.T) {
	svc, repo, gdb := newTestService(t, twoImageStub(), &fakeStore{})

	stamps := map[string]time.Time{
		"today":      testNow.Add(-2 * time.Hour),
		"this-week":  testNow.AddDate(0, 0, -3),
		"this-month": testNow.AddDate(0, 0, -8),
		"last-year":  testNow.AddDate(-1, 0, 0),
	}
	for name, at := range stamps {
		gen, err := repo.CreateGeneration(context.Background(), &ledger.Generation{
			Prompt: name, Model: "m", Provider: "openai", Count: 1, AspectRatio: "1:1", Cost: 1,
		}, nil)
		if err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		if err := gdb.Model(&ledger.Generation{}).Where("id = ?", gen.ID).Update("created_at", at).Error; err != nil {
			t.Fatalf("restamp %s: %v", name, err)
		}
	}

	wantCounts := map[string]int64{"day": 1, "week": 2, "month": 3, "all": 4}
	for period, want := range wantCounts {
		sum, err := svc.Costs(context.Background(), period)
		if err != nil {
			t.Fatalf("costs %s: %v", period, err)
		}
		if sum.GenerationCount != want {
			t.Errorf("period %s: count = %d, want %d", period, sum.GenerationCount, want)
		}
	}

	if _, err := svc.Costs(context.Background(), "fortnight"); err == nil {
		t.Error("expected error for unknown period")
	}
}

func TestSweep(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})
	svc.now = time.Now
	previewDir := svc.cfg.Preview.Dir

	mkdirWithAge := func(name string, age time.Duration) string {
		dir := filepath.Join(previewDir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "0.png"), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(dir, stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
		return dir
	}

	oldDir := mkdirWithAge(previewDirPrefix+"old", 10*24*time.Hour)
	freshDir := mkdirWithAge(previewDirPrefix+"fresh", 1*24*time.Hour)
	otherDir := mkdirWithAge("unrelated", 30*24*time.Hour)

	dry, err := svc.Sweep(SweepInput{OlderThanDays: 7, DryRun: true})
	if err != nil {
		t.Fatalf("dry sweep: %v", err)
	}
	if len(dry.Candidates) != 1 || dry.Candidates[0].Dir != oldDir {
		t.Fatalf("candidates = %+v", dry.Candidates)
	}
	if dry.Candidates[0].AgeDays != 10 {
		t.Errorf("age_days = %d, want 10", dry.Candidates[0].AgeDays)
	}
	if dry.Deleted != 0 {
		t.Errorf("dry run deleted %d", dry.Deleted)
	}
	if _, err := os.Stat(oldDir); err != nil {
		t.Error("dry run removed the directory")
	}

	real, err := svc.Sweep(SweepInput{OlderThanDays: 7})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if real.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", real.Deleted)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old dir should be gone")
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Error("fresh dir should survive")
	}
	if _, err := os.Stat(otherDir); err != nil {
		t.Error("non-prefixed dir should survive")
	}
}

func TestSweepMissingPreviewAreaIsNoop(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})
	svc.cfg.Preview.Dir = filepath.Join(svc.cfg.Preview.Dir, "does-not-exist")

	out, err := svc.Sweep(SweepInput{OlderThanDays: 7})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if out.Deleted != 0 || len(out.Errors) != 0 {
		t.Errorf("out = %+v", out)
	}
}

func TestSweepDryRunCapsReport(t *testing.T) {
	svc, _, _ := newTestService(t, twoImageStub(), &fakeStore{})
	svc.now = time.Now
	previewDir := svc.cfg.Preview.Dir

	for i := 0; i < 25; i++ {
		dir := filepath.Join(previewDir, fmt.Sprintf("%sdir%02d", previewDirPrefix, i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		stamp := time.Now().Add(-30 * 24 * time.Hour)
		if err := os.Chtimes(dir, stamp, stamp); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	out, err := svc.Sweep(SweepInput{OlderThanDays: 7, DryRun: true})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(out.Candidates) != sweepReportCap {
		t.Errorf("candidates = %d, want %d", len(out.Candidates), sweepReportCap)
	}
	if out.More != 5 {
		t.Errorf("more = %d, want 5", out.More)
	}
}
