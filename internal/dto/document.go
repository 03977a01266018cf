package dto

import (
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
)

// DownloadPath is where stored files are served from.
const DownloadPath = "/api/documents/download/"

type DocumentResponse struct {
	ID          uint                  `json:"id"`
	Name        string                `json:"name"`
	FileName    string                `json:"fileName"`
	Extension   string                `json:"extension"`
	ContentType string                `json:"contentType"`
	Size        int64                 `json:"size"`
	Status      models.DocumentStatus `json:"status"`
	UploadedBy  uint                  `json:"uploadedBy"`
	URL         string                `json:"url"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func DocumentResponseFrom(d *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.ID,
		Name:        d.Name,
		FileName:    d.StoredName,
		Extension:   d.Extension,
		ContentType: d.ContentType,
		Size:        d.Size,
		Status:      d.Status,
		UploadedBy:  d.UploadedBy,
		URL:         DownloadPath + d.StoredName,
		CreatedAt:   d.CreatedAt,
	}
}

func DocumentResponses(docs []models.Document) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, DocumentResponseFrom(&docs[i]))
	}
	return out
}
