// Package ledger persists one record per image-generation request plus a
// child row per produced image, and answers the cost-aggregation queries the
// budget check relies on.
package ledger

import "time"

// Generation is one provider request. Selection columns are nil until the
// user promotes one image to durable storage, and are written at most once.
type Generation struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	Prompt         string  `gorm:"type:text;not null" json:"prompt"`
	NegativePrompt string  `gorm:"type:text" json:"negative_prompt,omitempty"`
	Context        string  `gorm:"type:text" json:"context,omitempty"`
	Model          string  `gorm:"size:64;not null" json:"model"`
	Provider       string  `gorm:"size:32;index;not null" json:"provider"`
	Count          int     `gorm:"not null" json:"count"`
	AspectRatio    string  `gorm:"size:16;not null" json:"aspect_ratio"`
	Cost           float64 `gorm:"not null" json:"cost"`

	SelectedIndex *int       `gorm:"index" json:"selected_index,omitempty"`
	SelectedAt    *time.Time `gorm:"index" json:"selected_at,omitempty"`
	StorageKey    *string    `gorm:"size:512" json:"storage_key,omitempty"`
	PublicURL     *string    `gorm:"size:1024" json:"public_url,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Images []GenerationImage `gorm:"foreignKey:GenerationID" json:"images"`
}

func (Generation) TableName() string { return "generations" }

// GenerationImage is one candidate within a generation. PreviewURL is a
// local filesystem path for materialized previews, or exceptionally a remote
// URL when a provider returns one instead of embedded data.
type GenerationImage struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	GenerationID string `gorm:"size:36;index;not null" json:"-"`
	IndexNum     int    `gorm:"not null" json:"index_num"`
	PreviewURL   string `gorm:"size:1024;not null" json:"preview_url"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Seed         *int64 `json:"seed,omitempty"`
}

func (GenerationImage) TableName() string { return "generation_images" }

// CostSummary is derived on every query; nothing is cached.
type CostSummary struct {
	Total           float64            `json:"total"`
	GenerationCount int64              `json:"generation_count"`
	ByProvider      map[string]float64 `json:"by_provider"`
	ByModel         map[string]float64 `json:"by_model"`
	Since           *time.Time         `json:"since,omitempty"`
}
