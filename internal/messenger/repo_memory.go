package messenger

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	messages      map[string]Message
	tags          map[string]Tag
	summaries     map[string]Summary
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		conversations: make(map[string]Conversation),
		messages:      make(map[string]Message),
		tags:          make(map[string]Tag),
		summaries:     make(map[string]Summary),
	}
}

func (r *MemoryRepo) CreateConversation(ctx context.Context, c Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[c.ID] = c
	return nil
}

func (r *MemoryRepo) GetConversation(ctx context.Context, companyID, id string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok || c.CompanyID != companyID {
		return Conversation{}, ErrConversationNotFound
	}
	return c, nil
}

func (r *MemoryRepo) ListConversations(ctx context.Context, companyID string, filter Filter) ([]Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Conversation
	for _, c := range r.conversations {
		if c.CompanyID != companyID {
			continue
		}
		if filter.CustomerID != "" && c.CustomerID != filter.CustomerID {
			continue
		}
		if filter.AssignedTo != "" && c.AssignedTo != filter.AssignedTo {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) UpdateConversation(ctx context.Context, c Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.conversations[c.ID]
	if !ok || existing.CompanyID != c.CompanyID {
		return ErrConversationNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	r.conversations[c.ID] = c
	return nil
}

func (r *MemoryRepo) CreateMessage(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conversations[m.ConversationID]; !ok || c.CompanyID != m.CompanyID {
		return ErrConversationNotFound
	}
	r.messages[m.ID] = m
	return nil
}

func (r *MemoryRepo) GetMessage(ctx context.Context, companyID, id string) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok || m.CompanyID != companyID {
		return Message{}, ErrMessageNotFound
	}
	return m, nil
}

func (r *MemoryRepo) UpdateMessage(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.messages[m.ID]
	if !ok || existing.CompanyID != m.CompanyID {
		return ErrMessageNotFound
	}
	existing.Text = m.Text
	existing.Type = m.Type
	existing.Intend = m.Intend
	existing.Edited = m.Edited
	r.messages[m.ID] = existing
	return nil
}

func (r *MemoryRepo) Messages(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := set(conversationIDs)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Message, len(conversationIDs))
	for _, m := range r.messages {
		if m.CompanyID == companyID && wanted[m.ConversationID] {
			out[m.ConversationID] = append(out[m.ConversationID], m)
		}
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].Time.Before(list[j].Time) })
	}
	return out, nil
}

func (r *MemoryRepo) CreateTag(ctx context.Context, t Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conversations[t.ConversationID]; !ok || c.CompanyID != t.CompanyID {
		return ErrConversationNotFound
	}
	r.tags[t.ID] = t
	return nil
}

func (r *MemoryRepo) DeleteTag(ctx context.Context, companyID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tags[id]
	if !ok || t.CompanyID != companyID {
		return ErrTagNotFound
	}
	delete(r.tags, id)
	return nil
}

func (r *MemoryRepo) Tags(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := set(conversationIDs)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Tag, len(conversationIDs))
	for _, t := range r.tags {
		if t.CompanyID == companyID && wanted[t.ConversationID] {
			out[t.ConversationID] = append(out[t.ConversationID], t)
		}
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	}
	return out, nil
}

func (r *MemoryRepo) CreateSummary(ctx context.Context, s Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conversations[s.ConversationID]; !ok || c.CompanyID != s.CompanyID {
		return ErrConversationNotFound
	}
	r.summaries[s.ID] = s
	return nil
}

func (r *MemoryRepo) Summaries(ctx context.Context, companyID string, conversationIDs []string) (map[string][]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := set(conversationIDs)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Summary, len(conversationIDs))
	for _, s := range r.summaries {
		if s.CompanyID == companyID && wanted[s.ConversationID] {
			out[s.ConversationID] = append(out[s.ConversationID], s)
		}
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].GeneratedAt.After(list[j].GeneratedAt) })
	}
	return out, nil
}

func set(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// PurgeCompany drops the company's conversations and everything attached to them.
func (r *MemoryRepo) PurgeCompany(ctx context.Context, companyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.conversations {
		if c.CompanyID == companyID {
			delete(r.conversations, id)
		}
	}
	for id, m := range r.messages {
		if m.CompanyID == companyID {
			delete(r.messages, id)
		}
	}
	for id, t := range r.tags {
		if t.CompanyID == companyID {
			delete(r.tags, id)
		}
	}
	for id, s := range r.summaries {
		if s.CompanyID == companyID {
			delete(r.summaries, id)
		}
	}
	return nil
}
