package models

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
)

// DocumentModel is the persistence model for one stored document.
// Data holds the document as a JSON object; Version increases on every write.
type DocumentModel struct {
	Path       string    `gorm:"type:varchar(512);primaryKey"`
	Collection string    `gorm:"type:varchar(512);not null;index:idx_documents_collection"`
	DocID      string    `gorm:"column:doc_id;type:varchar(128);not null"`
	Data       string    `gorm:"type:text;not null"`
	Version    int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a docstore.Document
func (m *DocumentModel) ToDomain() (*docstore.Document, error) {
	data, err := docstore.DecodeJSON([]byte(m.Data))
	if err != nil {
		return nil, err
	}
	return &docstore.Document{
		Path:       docstore.Path(m.Path),
		Data:       data,
		Version:    m.Version,
		CreateTime: m.CreatedAt,
		UpdateTime: m.UpdatedAt,
	}, nil
}

// CollectionVersionModel tracks a version per collection, bumped whenever any
// document in the collection is written. Queries validate it at commit.
type CollectionVersionModel struct {
	Path    string `gorm:"type:varchar(512);primaryKey"`
	Version int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CollectionVersionModel) TableName() string {
	return "document_collections"
}
