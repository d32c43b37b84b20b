package weburis

import (
	"strings"
	"time"
)

type Status string

const (
	StatusQueued Status = "QUEUED"
	StatusSynced Status = "SYNCED"
	StatusFailed Status = "FAILED"
)

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

// Resource is a web address a company wants crawled into its knowledge base.
type Resource struct {
	ID        string
	CompanyID string
	URI       string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patch struct {
	URI    *string
	Status *Status
}
