// models/pair.go
package models

import "time"

const (
	MindTargetPending = "pending"
	MindTargetReady   = "ready"
	MindTargetFailed  = "failed"
)

// Pair binds one image target and one video (and, once compiled, one
// mind-target file) to an experience. Generation state only moves
// pending→ready or pending→failed; it re-enters pending solely on an
// image change or an operator retry.
type Pair struct {
	ID           string `json:"id" gorm:"primaryKey"`
	ExperienceID string `json:"experience_id" gorm:"index;not null"`

	ImageAssetID string  `json:"image_asset_id" gorm:"not null"`
	VideoAssetID string  `json:"video_asset_id" gorm:"not null"`
	MindAssetID  *string `json:"mind_asset_id"`

	Threshold float64 `json:"threshold" gorm:"default:0.8"`
	Priority  int     `json:"priority" gorm:"default:0"`
	Active    bool    `json:"active" gorm:"default:true"`

	// Caller-supplied image fingerprint, stored verbatim and never
	// interpreted. The resolution path does not consult it.
	Fingerprint string `json:"fingerprint,omitempty" gorm:"type:text"`

	MindTargetStatus string     `json:"mind_target_status" gorm:"default:'pending'"`
	MindTargetError  *string    `json:"mind_target_error"`
	MindRequestedAt  *time.Time `json:"mind_requested_at"`
	MindCompletedAt  *time.Time `json:"mind_completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
