package customers

import (
	"strings"
	"time"
)

// Source is the channel a customer signed up from.
type Source string

const (
	SourceWeb       Source = "WEB"
	SourceFacebook  Source = "FACEBOOK"
	SourceWhatsApp  Source = "WHATSAPP"
	SourceInstagram Source = "INSTAGRAM"
	SourceTwitter   Source = "TWITTER"
	SourceTelegram  Source = "TELEGRAM"
	SourceOther     Source = "OTHER"
)

// ParseSource validates raw, ignoring case. Empty input means WEB.
func ParseSource(raw string) (Source, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return SourceWeb, true
	}
	switch s := Source(raw); s {
	case SourceWeb, SourceFacebook, SourceWhatsApp, SourceInstagram, SourceTwitter, SourceTelegram, SourceOther:
		return s, true
	}
	return "", false
}

// Customer is an end user chatting with a company.
type Customer struct {
	ID                string
	CompanyID         string
	Name              string
	ProfileURI        string
	Contact           string
	PasswordHash      string
	Source            Source
	ConversationCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type RegisterInput struct {
	CompanyID  string
	Name       string
	Contact    string
	Password   string
	Source     string
	ProfileURI string
}

type LoginInput struct {
	CompanyID string
	Contact   string
	Password  string
	Source    string
}

type Patch struct {
	Name       *string
	ProfileURI *string
	Password   *string
}
