package models

import "time"

// Template is owned by the template authoring side. Ingestion only reads
// ID and Slug.
type Template struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"slug"`
	Name      string    `gorm:"type:varchar(255);not null;default:''" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
