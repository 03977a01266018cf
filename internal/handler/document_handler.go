package handler

import (
	"errors"
	"mime"
	"net/http"

	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead covers form boundaries and the extra text fields.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	documentService *service.DocumentService
	maxUploadSize   int64
}

func NewDocumentHandler(documentService *service.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadSize:   maxUploadSize,
	}
}

// Upload stores a multipart "file", optionally as the image of "gameId".
// POST /api/documents/upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, apperror.Invalid("file exceeds maximum size"))
			return
		}
		respondError(c, apperror.Invalid("multipart field \"file\" is required"))
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		respondError(c, apperror.Invalid("file exceeds maximum size"))
		return
	}

	gameID, ok := formUint(c, "gameId")
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperror.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), p, service.UploadInput{
		FileName: fileHeader.Filename,
		Name:     c.PostForm("name"),
		Content:  file,
		GameID:   gameID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, dto.DocumentResponseFrom(doc))
}

// Download streams a stored file. Stored names are random, so no token is needed.
// GET /api/documents/download/:fileName
func (h *DocumentHandler) Download(c *gin.Context) {
	doc, path, err := h.documentService.Open(c.Request.Context(), c.Param("fileName"))
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Log.Debug("Serving document", zap.Uint("document_id", doc.ID), zap.String("stored_name", doc.StoredName))
	c.Header("Content-Type", doc.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Name}))
	c.File(path)
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	docs, err := h.documentService.List(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.DocumentResponses(docs))
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.documentService.Get(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, dto.DocumentResponseFrom(doc))
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.documentService.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
