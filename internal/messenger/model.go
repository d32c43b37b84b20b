package messenger

import "time"

const (
	SenderAIAgent = "AI-AGENT"
	SenderHuman   = "HUMAN"

	defaultStatus      = "active"
	defaultMessageType = "text"
	noSummary          = "No summary available"
	recentLimit        = 10
)

type Conversation struct {
	ID             string
	CompanyID      string
	CustomerID     string
	CustomerName   string
	Source         string
	Status         string
	AssignedStatus bool
	AssignedTo     string
	GroupID        string
	StartingTime   time.Time
	EndingTime     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Message struct {
	ID             string
	ConversationID string
	CompanyID      string
	Sender         string
	SenderType     string
	Text           string
	Type           string
	Edited         bool
	ReplyTo        string
	Intend         string
	Time           time.Time
}

type Tag struct {
	ID             string
	ConversationID string
	CompanyID      string
	Name           string
	Color          string
	Description    string
	CreatedBy      string
	CreatedAt      time.Time
}

type Summary struct {
	ID             string
	ConversationID string
	CompanyID      string
	Text           string
	Type           string
	GeneratedBy    string
	GeneratedAt    time.Time
}

// Thread is a conversation with its messages (oldest first), tags and
// summaries (newest first).
type Thread struct {
	Conversation Conversation
	Messages     []Message
	Tags         []Tag
	Summaries    []Summary
}

// Recent is the short form used by the customer history panel.
type Recent struct {
	ConversationID string
	CustomerName   string
	StartingTime   time.Time
	Status         string
	Summary        string
}

// Filter narrows a conversation listing. Zero values match everything.
type Filter struct {
	CustomerID string
	AssignedTo string
	Limit      int
}

type ConversationInput struct {
	CustomerID   string
	CustomerName string
	Source       string
	AssignedTo   string
	GroupID      string
	EndingTime   *time.Time
}

type ConversationPatch struct {
	CustomerName   *string
	Source         *string
	Status         *string
	AssignedStatus *bool
	AssignedTo     *string
	GroupID        *string
	EndingTime     *time.Time
}

type MessageInput struct {
	ConversationID string
	Sender         string
	SenderType     string
	Text           string
	Type           string
	ReplyTo        string
	Intend         string
	Time           *time.Time
}

type MessagePatch struct {
	Text   *string
	Type   *string
	Intend *string
}

type TagInput struct {
	Name        string
	Color       string
	Description string
	CreatedBy   string
}

type SummaryInput struct {
	Text        string
	Type        string
	GeneratedBy string
}
