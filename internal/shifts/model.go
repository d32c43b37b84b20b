package shifts

import "time"

// Shift is a named daily working window. Times are stored as HH:mm:ss.
type Shift struct {
	ID        string
	CompanyID string
	Name      string
	StartTime string
	EndTime   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Input struct {
	Name      string
	StartTime string
	EndTime   string
}

type Patch struct {
	Name      *string
	StartTime *string
	EndTime   *string
}
