package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/Baaaki/gameshelf/internal/repository"
	"github.com/Baaaki/gameshelf/internal/storage"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UploadInput describes one uploaded file. GameID, when set, attaches the
// document as that game's image.
type UploadInput struct {
	FileName string
	Name     string
	Content  io.Reader
	GameID   uint
}

type DocumentService struct {
	db      *gorm.DB
	docRepo *repository.DocumentRepository
	store   *storage.LocalStore
}

func NewDocumentService(db *gorm.DB, store *storage.LocalStore) *DocumentService {
	return &DocumentService{
		db:      db,
		docRepo: repository.NewDocumentRepository(db),
		store:   store,
	}
}

func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrFileTooLarge),
		errors.Is(err, storage.ErrExtensionNotAllowed),
		errors.Is(err, storage.ErrContentMismatch),
		errors.Is(err, storage.ErrEmptyFile):
		return apperror.Wrap(err, apperror.CodeInvalid, err.Error())
	default:
		return apperror.Internal(err, "failed to store file")
	}
}

func (s *DocumentService) Upload(ctx context.Context, p *auth.Principal, in UploadInput) (*models.Document, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}

	if in.GameID != 0 {
		game, err := repository.NewGameRepository(s.db).GetGameByID(ctx, in.GameID)
		if err != nil {
			return nil, apperror.Internal(err, "failed to load game")
		}
		if game == nil {
			return nil, ErrGameNotFound
		}
		if !p.CanActFor(game.OwnerID) {
			return nil, ErrForbidden
		}
	}

	stored, err := s.store.Save(in.Content, in.FileName)
	if err != nil {
		logger.Log.Warn("Upload rejected",
			zap.Uint("user_id", p.UserID),
			zap.String("file_name", in.FileName),
			zap.Error(err),
		)
		return nil, storageError(err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = filepath.Base(in.FileName)
	}

	doc := &models.Document{
		Name:        name,
		StoredName:  stored.StoredName,
		Extension:   stored.Extension,
		ContentType: stored.ContentType,
		Size:        stored.Size,
		Status:      models.DocumentActive,
		LocalPath:   stored.Path,
		UploadedBy:  p.UserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewDocumentRepository(tx).CreateDocument(ctx, doc); err != nil {
			return err
		}
		if in.GameID != 0 {
			return repository.NewGameRepository(tx).SetImage(ctx, in.GameID, doc.ID)
		}
		return nil
	})
	if err != nil {
		if rmErr := s.store.Remove(stored.StoredName); rmErr != nil {
			logger.Log.Error("Failed to remove orphaned upload", zap.String("file", stored.StoredName), zap.Error(rmErr))
		}
		return nil, apperror.Internal(err, "failed to save document")
	}

	logger.Log.Info("Document uploaded",
		zap.Uint("document_id", doc.ID),
		zap.String("stored_name", doc.StoredName),
		zap.Int64("size", doc.Size),
		zap.Uint("game_id", in.GameID),
	)
	return doc, nil
}

// Open resolves a stored file name to its document and on-disk path.
func (s *DocumentService) Open(ctx context.Context, storedName string) (*models.Document, string, error) {
	path, err := s.store.Path(storedName)
	if err != nil {
		return nil, "", ErrDocumentNotFound
	}
	doc, err := s.docRepo.GetDocumentByStoredName(ctx, storedName)
	if err != nil {
		return nil, "", apperror.Internal(err, "failed to load document")
	}
	if doc == nil {
		return nil, "", ErrDocumentNotFound
	}
	return doc, path, nil
}

// Get returns a document's metadata to its uploader or an admin. The stored
// name it exposes is the only key to the public download route.
func (s *DocumentService) Get(ctx context.Context, p *auth.Principal, id uint) (*models.Document, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanActFor(doc.UploadedBy) {
		return nil, ErrForbidden
	}
	return doc, nil
}

func (s *DocumentService) load(ctx context.Context, id uint) (*models.Document, error) {
	doc, err := s.docRepo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err, "failed to load document")
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// List returns the caller's documents; admins see all of them.
func (s *DocumentService) List(ctx context.Context, p *auth.Principal) ([]models.Document, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	var uploadedBy uint
	if !p.IsAdmin() {
		uploadedBy = p.UserID
	}
	docs, err := s.docRepo.ListDocuments(ctx, uploadedBy)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list documents")
	}
	return docs, nil
}

// Delete soft-deletes the document, detaches it from games and removes the
// file from disk.
func (s *DocumentService) Delete(ctx context.Context, p *auth.Principal, id uint) error {
	doc, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewGameRepository(tx).DetachImage(ctx, id); err != nil {
			return err
		}
		return repository.NewDocumentRepository(tx).SoftDeleteDocument(ctx, id)
	})
	if err != nil {
		return apperror.Internal(err, "failed to delete document")
	}

	if err := s.store.Remove(doc.StoredName); err != nil {
		logger.Log.Error("Failed to remove document file",
			zap.Uint("document_id", id),
			zap.String("stored_name", doc.StoredName),
			zap.Error(err),
		)
	}

	logger.Log.Info("Document deleted", zap.Uint("document_id", id), zap.Uint("by", p.UserID))
	return nil
}
