package documents

import (
	"net/url"
	"time"
)

type uploadResponse struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Mimetype     string `json:"mimetype"`
	Status       Status `json:"status"`
	URL          string `json:"url"`
}

type documentResponse struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype"`
	Status       Status    `json:"status"`
	UploadedAt   time.Time `json:"uploadedAt"`
	URL          string    `json:"url"`
}

type listResponse struct {
	Total     int                `json:"total"`
	Documents []documentResponse `json:"documents"`
}

// documentURL is the authenticated inline URL of a document.
func documentURL(doc Document) string {
	return "/api/v1/documents/" + url.PathEscape(doc.CompanyID) + "/" + url.PathEscape(doc.Filename)
}

func toUploadResponse(doc Document) uploadResponse {
	return uploadResponse{
		Filename:     doc.Filename,
		OriginalName: doc.OriginalName,
		Size:         doc.Size,
		Mimetype:     doc.MimeType,
		Status:       doc.Status,
		URL:          documentURL(doc),
	}
}

func toDocumentResponse(doc Document) documentResponse {
	return documentResponse{
		Filename:     doc.Filename,
		OriginalName: doc.OriginalName,
		Size:         doc.Size,
		Mimetype:     doc.MimeType,
		Status:       doc.Status,
		UploadedAt:   doc.UploadedAt,
		URL:          documentURL(doc),
	}
}
