package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     *string        `gorm:"type:varchar(191);index" json:"user_id,omitempty"`
	Action     string         `gorm:"type:varchar(100);not null;index" json:"action"`
	Resource   string         `gorm:"type:varchar(100);not null;index:idx_audit_logs_resource,priority:1" json:"resource"`
	ResourceID string         `gorm:"type:varchar(191);not null;default:'';index:idx_audit_logs_resource,priority:2" json:"resource_id"`
	OldValue   datatypes.JSON `gorm:"type:json" json:"old_value,omitempty"`
	NewValue   datatypes.JSON `gorm:"type:json" json:"new_value,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}
