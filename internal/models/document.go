package models

import "time"

type DocumentStatus string

const (
	DocumentActive   DocumentStatus = "ACTIVE"
	DocumentArchived DocumentStatus = "ARCHIVED"
)

// Document is an uploaded file (profile or game image) kept on local disk.
type Document struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	StoredName  string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"fileName"`
	Extension   string         `gorm:"type:varchar(20);not null" json:"extension"`
	ContentType string         `gorm:"type:varchar(100);not null" json:"contentType"`
	Size        int64          `gorm:"not null" json:"size"`
	Status      DocumentStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Deleted     bool           `gorm:"not null;default:false;index" json:"deleted"`
	LocalPath   string         `gorm:"type:varchar(500);not null" json:"-"`
	UploadedBy  uint           `gorm:"not null;index" json:"uploadedBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
