package messenger

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	ErrConversationNotFound = fmt.Errorf("%w: Conversation not found", ErrNotFound)
	ErrMessageNotFound      = fmt.Errorf("%w: Message not found", ErrNotFound)
	ErrTagNotFound          = fmt.Errorf("%w: Tag not found", ErrNotFound)
	ErrNoCustomerHistory    = fmt.Errorf("%w: No conversations found for this customer", ErrNotFound)
	ErrNoEmployeeHistory    = fmt.Errorf("%w: No conversations found for this employee", ErrNotFound)
)

// Repo persists conversations and their children. Every call is scoped by company.
type Repo interface {
	CreateConversation(ctx context.Context, c Conversation) error
	GetConversation(ctx context.Context, companyID, id string) (Conversation, error)
	ListConversations(ctx context.Context, companyID string, filter Filter) ([]Conversation, error)
	UpdateConversation(ctx context.Context, c Conversation) error

	CreateMessage(ctx context.Context, m Message) error
	GetMessage(ctx context.Context, companyID, id string) (Message, error)
	UpdateMessage(ctx context.Context, m Message) error
	// Messages groups messages by conversation, oldest first.
	Messages(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Message, error)

	CreateTag(ctx context.Context, t Tag) error
	DeleteTag(ctx context.Context, companyID, id string) error
	Tags(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Tag, error)

	CreateSummary(ctx context.Context, s Summary) error
	// Summaries groups summaries by conversation, newest first.
	Summaries(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Summary, error)
}
