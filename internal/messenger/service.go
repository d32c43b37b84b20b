package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

const (
	EventConversationCreated = "messenger.conversation.created"
	EventMessageCreated      = "messenger.message.created"
)

// CustomerCounter bumps a customer's conversation counter.
type CustomerCounter interface {
	IncrementConversationCount(ctx context.Context, companyID, id string) error
}

type Service struct {
	Repo      Repo
	Customers CustomerCounter
	Events    queue.Publisher
	Now       func() time.Time
}

func NewService(repo Repo, customers CustomerCounter, events queue.Publisher) *Service {
	return &Service{Repo: repo, Customers: customers, Events: events}
}

// messengerEvent is the payload published on messenger.events.
type messengerEvent struct {
	Kind           string    `json:"kind"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId,omitempty"`
	CustomerID     string    `json:"customerId,omitempty"`
	Sender         string    `json:"sender,omitempty"`
	SenderType     string    `json:"senderType,omitempty"`
	At             time.Time `json:"at"`
}

func (s *Service) CreateConversation(ctx context.Context, companyID string, in ConversationInput) (Conversation, error) {
	if s == nil || s.Repo == nil {
		return Conversation{}, errors.New("messenger service not configured")
	}
	now := s.now()
	c := Conversation{
		ID:           uuid.NewString(),
		CompanyID:    companyID,
		CustomerID:   strings.TrimSpace(in.CustomerID),
		CustomerName: strings.TrimSpace(in.CustomerName),
		Source:       strings.TrimSpace(in.Source),
		Status:       defaultStatus,
		AssignedTo:   strings.TrimSpace(in.AssignedTo),
		GroupID:      strings.TrimSpace(in.GroupID),
		StartingTime: now,
		EndingTime:   in.EndingTime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !isUUID(c.CustomerID) {
		return Conversation{}, fmt.Errorf("%w: customer_id must be a UUID", ErrInvalidInput)
	}
	if c.AssignedTo != "" && !isUUID(c.AssignedTo) {
		return Conversation{}, fmt.Errorf("%w: assigned_to must be a UUID", ErrInvalidInput)
	}
	if err := checkLength("customer_name", c.CustomerName, 255); err != nil {
		return Conversation{}, err
	}
	if err := checkLength("conversation_source", c.Source, 50); err != nil {
		return Conversation{}, err
	}
	if err := s.Repo.CreateConversation(ctx, c); err != nil {
		return Conversation{}, err
	}
	if s.Customers != nil {
		if err := s.Customers.IncrementConversationCount(ctx, companyID, c.CustomerID); err != nil {
			telemetry.Warn("messenger.conversation.count_failed", map[string]any{
				"company_id":  companyID,
				"customer_id": c.CustomerID,
				"error":       err,
			})
		}
	}
	s.publish(ctx, companyID, messengerEvent{
		Kind:           EventConversationCreated,
		ConversationID: c.ID,
		CustomerID:     c.CustomerID,
		At:             now,
	})
	telemetry.Info("messenger.conversation.create.ok", map[string]any{
		"company_id":      companyID,
		"conversation_id": c.ID,
	})
	return c, nil
}

// List returns every thread of the company, newest first.
func (s *Service) List(ctx context.Context, companyID string) ([]Thread, error) {
	return s.threads(ctx, companyID, Filter{})
}

func (s *Service) ByCustomer(ctx context.Context, companyID, customerID string) ([]Thread, error) {
	if !isUUID(customerID) {
		return nil, ErrNoCustomerHistory
	}
	out, err := s.threads(ctx, companyID, Filter{CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoCustomerHistory
	}
	return out, nil
}

func (s *Service) ByEmployee(ctx context.Context, companyID, userID string) ([]Thread, error) {
	if !isUUID(userID) {
		return nil, ErrNoEmployeeHistory
	}
	out, err := s.threads(ctx, companyID, Filter{AssignedTo: userID})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoEmployeeHistory
	}
	return out, nil
}

// Inbox loads one conversation with its children.
func (s *Service) Inbox(ctx context.Context, companyID, id string) (Thread, error) {
	c, err := s.conversation(ctx, companyID, id)
	if err != nil {
		return Thread{}, err
	}
	threads, err := s.attach(ctx, companyID, []Conversation{c})
	if err != nil {
		return Thread{}, err
	}
	return threads[0], nil
}

func (s *Service) UpdateConversation(ctx context.Context, companyID, id string, patch ConversationPatch) (Conversation, error) {
	c, err := s.conversation(ctx, companyID, id)
	if err != nil {
		return Conversation{}, err
	}
	if patch.CustomerName != nil {
		c.CustomerName = strings.TrimSpace(*patch.CustomerName)
		if err := checkLength("customer_name", c.CustomerName, 255); err != nil {
			return Conversation{}, err
		}
	}
	if patch.Source != nil {
		c.Source = strings.TrimSpace(*patch.Source)
		if err := checkLength("conversation_source", c.Source, 50); err != nil {
			return Conversation{}, err
		}
	}
	if patch.Status != nil {
		c.Status = strings.TrimSpace(*patch.Status)
		if err := checkLength("conversation_status", c.Status, 50); err != nil {
			return Conversation{}, err
		}
	}
	if patch.AssignedStatus != nil {
		c.AssignedStatus = *patch.AssignedStatus
	}
	if patch.AssignedTo != nil {
		c.AssignedTo = strings.TrimSpace(*patch.AssignedTo)
		if c.AssignedTo != "" && !isUUID(c.AssignedTo) {
			return Conversation{}, fmt.Errorf("%w: assigned_to must be a UUID", ErrInvalidInput)
		}
	}
	if patch.GroupID != nil {
		c.GroupID = strings.TrimSpace(*patch.GroupID)
	}
	if patch.EndingTime != nil {
		end := patch.EndingTime.UTC()
		if end.Before(c.StartingTime) {
			return Conversation{}, fmt.Errorf("%w: ending_time must not be before starting_time", ErrInvalidInput)
		}
		c.EndingTime = &end
	}
	c.UpdatedAt = s.now()
	if err := s.Repo.UpdateConversation(ctx, c); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func (s *Service) CreateMessage(ctx context.Context, companyID string, in MessageInput) (Message, error) {
	if _, err := s.conversation(ctx, companyID, in.ConversationID); err != nil {
		return Message{}, err
	}
	m := Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		CompanyID:      companyID,
		Sender:         strings.TrimSpace(in.Sender),
		SenderType:     strings.TrimSpace(in.SenderType),
		Text:           in.Text,
		Type:           strings.TrimSpace(in.Type),
		ReplyTo:        strings.TrimSpace(in.ReplyTo),
		Intend:         strings.TrimSpace(in.Intend),
		Time:           s.now(),
	}
	if in.Time != nil {
		m.Time = in.Time.UTC()
	}
	if m.SenderType == "" {
		m.SenderType = SenderHuman
	}
	if m.SenderType != SenderHuman && m.SenderType != SenderAIAgent {
		return Message{}, fmt.Errorf("%w: sender_type must be %s or %s", ErrInvalidInput, SenderAIAgent, SenderHuman)
	}
	if m.Type == "" {
		m.Type = defaultMessageType
	}
	if err := checkLength("sender", m.Sender, 255); err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(m.Text) == "" {
		return Message{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if m.ReplyTo != "" && !isUUID(m.ReplyTo) {
		return Message{}, fmt.Errorf("%w: reply_to_message_id must be a UUID", ErrInvalidInput)
	}
	if err := s.Repo.CreateMessage(ctx, m); err != nil {
		return Message{}, err
	}
	s.publish(ctx, companyID, messengerEvent{
		Kind:           EventMessageCreated,
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		Sender:         m.Sender,
		SenderType:     m.SenderType,
		At:             m.Time,
	})
	return m, nil
}

// UpdateMessage applies a patch. A changed text marks the message edited.
func (s *Service) UpdateMessage(ctx context.Context, companyID, id string, patch MessagePatch) (Message, error) {
	if !isUUID(id) {
		return Message{}, ErrMessageNotFound
	}
	m, err := s.Repo.GetMessage(ctx, companyID, id)
	if err != nil {
		return Message{}, err
	}
	if patch.Text != nil {
		if strings.TrimSpace(*patch.Text) == "" {
			return Message{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
		}
		if *patch.Text != m.Text {
			m.Text = *patch.Text
			m.Edited = true
		}
	}
	if patch.Type != nil && strings.TrimSpace(*patch.Type) != "" {
		m.Type = strings.TrimSpace(*patch.Type)
	}
	if patch.Intend != nil {
		m.Intend = strings.TrimSpace(*patch.Intend)
	}
	if err := s.Repo.UpdateMessage(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Recent summarises the customer's latest conversations.
func (s *Service) Recent(ctx context.Context, companyID, customerID string) ([]Recent, error) {
	if !isUUID(customerID) {
		return []Recent{}, nil
	}
	list, err := s.Repo.ListConversations(ctx, companyID, Filter{CustomerID: customerID, Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	summaries, err := s.Repo.Summaries(ctx, companyID, conversationIDs(list))
	if err != nil {
		return nil, err
	}
	out := make([]Recent, 0, len(list))
	for _, c := range list {
		r := Recent{
			ConversationID: c.ID,
			CustomerName:   c.CustomerName,
			StartingTime:   c.StartingTime,
			Status:         c.Status,
			Summary:        noSummary,
		}
		if sums := summaries[c.ID]; len(sums) > 0 && sums[0].Text != "" {
			r.Summary = sums[0].Text
		}
		out = append(out, r)
	}
	return out, nil
}

// Related returns the conversation's messages that mention keyword, either
// in their intent or in the text.
func (s *Service) Related(ctx context.Context, companyID, conversationID, keyword string) ([]Message, error) {
	if _, err := s.conversation(ctx, companyID, conversationID); err != nil {
		return nil, err
	}
	byConv, err := s.Repo.Messages(ctx, companyID, []string{conversationID})
	if err != nil {
		return nil, err
	}
	keyword = strings.ToLower(keyword)
	out := []Message{}
	for _, m := range byConv[conversationID] {
		if strings.Contains(strings.ToLower(m.Intend), keyword) || strings.Contains(strings.ToLower(m.Text), keyword) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) AddTag(ctx context.Context, companyID, conversationID string, in TagInput) (Tag, error) {
	if _, err := s.conversation(ctx, companyID, conversationID); err != nil {
		return Tag{}, err
	}
	t := Tag{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		CompanyID:      companyID,
		Name:           strings.TrimSpace(in.Name),
		Color:          strings.TrimSpace(in.Color),
		Description:    strings.TrimSpace(in.Description),
		CreatedBy:      strings.TrimSpace(in.CreatedBy),
		CreatedAt:      s.now(),
	}
	if err := checkLength("tag_name", t.Name, 100); err != nil {
		return Tag{}, err
	}
	if utf8.RuneCountInString(t.Color) > 20 {
		return Tag{}, fmt.Errorf("%w: tag_color must be at most 20 characters", ErrInvalidInput)
	}
	if err := s.Repo.CreateTag(ctx, t); err != nil {
		return Tag{}, err
	}
	return t, nil
}

func (s *Service) DeleteTag(ctx context.Context, companyID, id string) error {
	if !isUUID(id) {
		return ErrTagNotFound
	}
	return s.Repo.DeleteTag(ctx, companyID, id)
}

func (s *Service) AddSummary(ctx context.Context, companyID, conversationID string, in SummaryInput) (Summary, error) {
	if _, err := s.conversation(ctx, companyID, conversationID); err != nil {
		return Summary{}, err
	}
	sum := Summary{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		CompanyID:      companyID,
		Text:           strings.TrimSpace(in.Text),
		Type:           strings.TrimSpace(in.Type),
		GeneratedBy:    strings.TrimSpace(in.GeneratedBy),
		GeneratedAt:    s.now(),
	}
	if sum.Text == "" {
		return Summary{}, fmt.Errorf("%w: summary_text is required", ErrInvalidInput)
	}
	if err := s.Repo.CreateSummary(ctx, sum); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Service) conversation(ctx context.Context, companyID, id string) (Conversation, error) {
	if s == nil || s.Repo == nil {
		return Conversation{}, errors.New("messenger service not configured")
	}
	if !isUUID(id) {
		return Conversation{}, ErrConversationNotFound
	}
	return s.Repo.GetConversation(ctx, companyID, id)
}

func (s *Service) threads(ctx context.Context, companyID string, filter Filter) ([]Thread, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("messenger service not configured")
	}
	list, err := s.Repo.ListConversations(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	return s.attach(ctx, companyID, list)
}

func (s *Service) attach(ctx context.Context, companyID string, list []Conversation) ([]Thread, error) {
	ids := conversationIDs(list)
	messages, err := s.Repo.Messages(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	tags, err := s.Repo.Tags(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	summaries, err := s.Repo.Summaries(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Thread, 0, len(list))
	for _, c := range list {
		out = append(out, Thread{
			Conversation: c,
			Messages:     messages[c.ID],
			Tags:         tags[c.ID],
			Summaries:    summaries[c.ID],
		})
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, companyID string, ev messengerEvent) {
	// Publish failures are logged by queue.PublishEvent and never fail the write.
	_ = queue.PublishEvent(ctx, s.Events, queue.SubjectMessengerEvents, companyID, telemetry.RequestID(ctx), ev)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func conversationIDs(list []Conversation) []string {
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}

func checkLength(field, value string, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 || n > max {
		return fmt.Errorf("%w: %s must be 1-%d characters", ErrInvalidInput, field, max)
	}
	return nil
}

func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
