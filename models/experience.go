// models/experience.go
package models

import "time"

// Experience is a named, QR-addressable container of pairs. QRID is
// deliberately NOT unique: multiple experiences may share a code, and
// public resolution picks the newest active one (last-writer wins).
type Experience struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	QRID      string    `json:"qr_id" gorm:"column:qr_id;index;not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Pairs []Pair `json:"pairs,omitempty" gorm:"foreignKey:ExperienceID"`
}
