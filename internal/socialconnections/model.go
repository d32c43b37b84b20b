package socialconnections

import (
	"strings"
	"time"
)

const (
	TypeFacebook  = "facebook"
	TypeInstagram = "instagram"
	TypeTwitter   = "twitter"
	TypeLinkedIn  = "linkedin"
	TypeYouTube   = "youtube"
	TypeTikTok    = "tiktok"
	TypeWhatsApp  = "whatsapp"
	TypeTelegram  = "telegram"
	// TypeUser and TypePage are written by the Meta OAuth flow and keyed by the Meta id.
	TypeUser = "user"
	TypePage = "page"
)

var platformTypes = []string{
	TypeFacebook, TypeInstagram, TypeTwitter, TypeLinkedIn, TypeYouTube,
	TypeTikTok, TypeWhatsApp, TypeTelegram, TypeUser, TypePage,
}

// ParsePlatformType lowercases and checks the type.
func ParsePlatformType(raw string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range platformTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// IsMetaType reports whether rows of this type are upserted by id.
func IsMetaType(t string) bool {
	return t == TypeUser || t == TypePage
}

type Connection struct {
	ID           string
	CompanyID    string
	PlatformName string
	PlatformType string
	Token        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Input struct {
	ID           string
	PlatformName string
	PlatformType string
	Token        string
}

type TypeCount struct {
	PlatformType string
	Count        int
}

type Stats struct {
	Total      int
	ByPlatform []TypeCount
}
