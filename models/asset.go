// models/asset.go
package models

import "time"

const (
	AssetKindImage      = "image"
	AssetKindVideo      = "video"
	AssetKindMindTarget = "mind-target"
)

// Asset is one uploaded binary object. Rows are written once when an
// upload is finalized and never edited afterwards.
type Asset struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Kind       string    `json:"kind" gorm:"index;not null"`
	StorageKey string    `json:"storage_key" gorm:"uniqueIndex;not null"`
	MimeType   string    `json:"mime_type"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
