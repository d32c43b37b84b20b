package documents

import (
	"strings"
	"time"
)

// Status is the sync state of a document, encoded by the folder holding it.
type Status string

const (
	StatusQueued Status = "QUEUED"
	StatusSynced Status = "SYNCED"
	StatusFailed Status = "FAILED"
)

const (
	folderQueued = "notprocessed"
	folderSynced = "processed"
	folderFailed = "failed_to_process"
)

const (
	MaxUploadSize   = 100 << 20
	MaxAvatarSize   = 5 << 20
	MaxBatchUploads = 10
	TextLimit       = 1 << 20
)

func allowedType(mimeType string) bool {
	switch mimeType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/csv",
		"text/plain",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return true
	}
	return false
}

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".txt":  "text/plain",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// statuses lists every state in lookup order.
var statuses = []Status{StatusQueued, StatusSynced, StatusFailed}

func (s Status) folder() string {
	switch s {
	case StatusSynced:
		return folderSynced
	case StatusFailed:
		return folderFailed
	default:
		return folderQueued
	}
}

// ParseStatus accepts either case.
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusQueued:
		return StatusQueued, true
	case StatusSynced:
		return StatusSynced, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// Document is a stored file and the folder state it is in.
type Document struct {
	CompanyID    string
	Filename     string
	OriginalName string
	Size         int64
	MimeType     string
	Status       Status
	UploadedAt   time.Time
}

// Key is the object key of the document in its current folder.
func (d Document) Key() string {
	return objectKey(d.CompanyID, d.Status, d.Filename)
}

func objectKey(companyID string, status Status, filename string) string {
	return companyID + "/" + status.folder() + "/" + filename
}

// Upload is one file handed to the service.
type Upload struct {
	Name     string
	MimeType string
	Size     int64
}
