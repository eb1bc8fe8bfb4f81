package model

import "time"

// Document represents a stored file in the system.
// The db tags describe its table to record.Register; the struct itself carries no persistence logic.
type Document struct {
	ID          string    `json:"id" db:"id,pk,type=VARCHAR(36)"`
	Filename    string    `json:"filename" db:"filename,index"`
	StoragePath string    `json:"storage_path" db:"storage_path,unique"`
	Size        int64     `json:"size" db:"size"`
	ContentType string    `json:"content_type" db:"content_type,index"`
	CreatedAt   time.Time `json:"created_at" db:"created_at,index"`
}

// TableName keeps the table plural; the inferred name would be "document".
func (Document) TableName() string { return "documents" }
