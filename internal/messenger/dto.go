package messenger

import "time"

type conversationResponse struct {
	ConversationID     string     `json:"conversation_id"`
	CompanyID          string     `json:"company_id"`
	CustomerID         string     `json:"customer_id"`
	CustomerName       string     `json:"customer_name"`
	ConversationSource string     `json:"conversation_source"`
	ConversationStatus string     `json:"conversation_status"`
	AssignedStatus     bool       `json:"assigned_status"`
	AssignedTo         *string    `json:"assigned_to"`
	GroupID            *string    `json:"group_id"`
	StartingTime       time.Time  `json:"starting_time"`
	EndingTime         *time.Time `json:"ending_time"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type messageResponse struct {
	MessageID        string    `json:"message_id"`
	ConversationID   string    `json:"conversation_id"`
	Sender           string    `json:"sender"`
	SenderType       string    `json:"sender_type"`
	Message          string    `json:"message"`
	MessageType      string    `json:"message_type"`
	EditStatus       bool      `json:"edit_status"`
	ReplyToMessageID *string   `json:"reply_to_message_id"`
	MessageIntend    *string   `json:"message_intend"`
	Time             time.Time `json:"time"`
}

type tagResponse struct {
	TagID          string    `json:"tag_id"`
	ConversationID string    `json:"conversation_id"`
	TagName        string    `json:"tag_name"`
	TagColor       string    `json:"tag_color"`
	TagDescription string    `json:"tag_description"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

type summaryResponse struct {
	SummaryID      string    `json:"summary_id"`
	ConversationID string    `json:"conversation_id"`
	SummaryText    string    `json:"summary_text"`
	SummaryType    string    `json:"summary_type"`
	GeneratedBy    string    `json:"generated_by"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type threadResponse struct {
	conversationResponse
	Messages  []messageResponse `json:"messages"`
	Tags      []tagResponse     `json:"tags"`
	Summaries []summaryResponse `json:"summaries"`
}

type inboxResponse struct {
	Conversation conversationResponse `json:"conversation"`
	Messages     []messageResponse    `json:"messages"`
	Tags         []tagResponse        `json:"tags"`
	Summaries    []summaryResponse    `json:"summaries"`
}

type recentResponse struct {
	ConversationID     string    `json:"conversation_id"`
	CustomerName       string    `json:"customer_name"`
	StartingTime       time.Time `json:"starting_time"`
	ConversationStatus string    `json:"conversation_status"`
	Summary            string    `json:"summary"`
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func toConversationResponse(c Conversation) conversationResponse {
	return conversationResponse{
		ConversationID:     c.ID,
		CompanyID:          c.CompanyID,
		CustomerID:         c.CustomerID,
		CustomerName:       c.CustomerName,
		ConversationSource: c.Source,
		ConversationStatus: c.Status,
		AssignedStatus:     c.AssignedStatus,
		AssignedTo:         optional(c.AssignedTo),
		GroupID:            optional(c.GroupID),
		StartingTime:       c.StartingTime,
		EndingTime:         c.EndingTime,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func toMessageResponse(m Message) messageResponse {
	return messageResponse{
		MessageID:        m.ID,
		ConversationID:   m.ConversationID,
		Sender:           m.Sender,
		SenderType:       m.SenderType,
		Message:          m.Text,
		MessageType:      m.Type,
		EditStatus:       m.Edited,
		ReplyToMessageID: optional(m.ReplyTo),
		MessageIntend:    optional(m.Intend),
		Time:             m.Time,
	}
}

func toMessageResponses(list []Message) []messageResponse {
	out := make([]messageResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toTagResponse(t Tag) tagResponse {
	return tagResponse{
		TagID:          t.ID,
		ConversationID: t.ConversationID,
		TagName:        t.Name,
		TagColor:       t.Color,
		TagDescription: t.Description,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
	}
}

func toSummaryResponse(s Summary) summaryResponse {
	return summaryResponse{
		SummaryID:      s.ID,
		ConversationID: s.ConversationID,
		SummaryText:    s.Text,
		SummaryType:    s.Type,
		GeneratedBy:    s.GeneratedBy,
		GeneratedAt:    s.GeneratedAt,
	}
}

func children(t Thread) ([]messageResponse, []tagResponse, []summaryResponse) {
	tags := make([]tagResponse, 0, len(t.Tags))
	for _, tag := range t.Tags {
		tags = append(tags, toTagResponse(tag))
	}
	sums := make([]summaryResponse, 0, len(t.Summaries))
	for _, s := range t.Summaries {
		sums = append(sums, toSummaryResponse(s))
	}
	return toMessageResponses(t.Messages), tags, sums
}

func toThreadResponses(list []Thread) []threadResponse {
	out := make([]threadResponse, 0, len(list))
	for _, t := range list {
		messages, tags, sums := children(t)
		out = append(out, threadResponse{
			conversationResponse: toConversationResponse(t.Conversation),
			Messages:             messages,
			Tags:                 tags,
			Summaries:            sums,
		})
	}
	return out
}

type createConversationRequest struct {
	CustomerID         string     `json:"customer_id" binding:"required,uuid"`
	CustomerName       string     `json:"customer_name" binding:"required,max=255"`
	ConversationSource string     `json:"conversation_source" binding:"required,max=50"`
	AssignedTo         string     `json:"assigned_to" binding:"omitempty,uuid"`
	GroupID            string     `json:"group_id" binding:"omitempty,max=255"`
	EndingTime         *time.Time `json:"ending_time"`
}

type updateConversationRequest struct {
	CustomerName       *string    `json:"customer_name" binding:"omitempty,min=1,max=255"`
	ConversationSource *string    `json:"conversation_source" binding:"omitempty,min=1,max=50"`
	ConversationStatus *string    `json:"conversation_status" binding:"omitempty,min=1,max=50"`
	AssignedStatus     *bool      `json:"assigned_status"`
	AssignedTo         *string    `json:"assigned_to"`
	GroupID            *string    `json:"group_id" binding:"omitempty,max=255"`
	EndingTime         *time.Time `json:"ending_time"`
}

type createMessageRequest struct {
	ConversationID   string     `json:"conversation_id" binding:"required,uuid"`
	Sender           string     `json:"sender" binding:"required,max=255"`
	SenderType       string     `json:"sender_type" binding:"omitempty,oneof=AI-AGENT HUMAN"`
	Message          string     `json:"message" binding:"required"`
	MessageType      string     `json:"message_type" binding:"omitempty,max=50"`
	ReplyToMessageID string     `json:"reply_to_message_id" binding:"omitempty,uuid"`
	MessageIntend    string     `json:"message_intend" binding:"omitempty,max=255"`
	Time             *time.Time `json:"time"`
}

type updateMessageRequest struct {
	Message       *string `json:"message" binding:"omitempty,min=1"`
	MessageType   *string `json:"message_type" binding:"omitempty,max=50"`
	MessageIntend *string `json:"message_intend" binding:"omitempty,max=255"`
}

type tagRequest struct {
	TagName        string `json:"tag_name" binding:"required,max=100"`
	TagColor       string `json:"tag_color" binding:"omitempty,max=20"`
	TagDescription string `json:"tag_description"`
}

type summaryRequest struct {
	SummaryText string `json:"summary_text" binding:"required"`
	SummaryType string `json:"summary_type" binding:"omitempty,max=50"`
	GeneratedBy string `json:"generated_by" binding:"omitempty,max=255"`
}
