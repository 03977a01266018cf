package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/gameshelf/internal/models"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetDocumentByID ignores soft-deleted documents.
func (r *DocumentRepository) GetDocumentByID(ctx context.Context, id uint) (*models.Document, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *DocumentRepository) GetDocumentByStoredName(ctx context.Context, storedName string) (*models.Document, error) {
	return r.first(ctx, "stored_name = ?", storedName)
}

func (r *DocumentRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("deleted = ?", false).Where(query, args...).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// ListDocuments lists live documents; uploadedBy 0 lists everyone's.
func (r *DocumentRepository) ListDocuments(ctx context.Context, uploadedBy uint) ([]models.Document, error) {
	q := r.db.WithContext(ctx).Where("deleted = ?", false)
	if uploadedBy != 0 {
		q = q.Where("uploaded_by = ?", uploadedBy)
	}
	var docs []models.Document
	err := q.Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// SoftDeleteDocument flags the row deleted and archived; the row is kept.
func (r *DocumentRepository) SoftDeleteDocument(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted": true,
			"status":  models.DocumentArchived,
		}).Error
}
