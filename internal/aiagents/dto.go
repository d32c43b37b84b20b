package aiagents

import "time"

type agentResponse struct {
	ID                           string    `json:"id"`
	CompanyID                    string    `json:"company_id"`
	AgentName                    string    `json:"agent_name"`
	Personality                  string    `json:"personality"`
	GeneralInstructions          string    `json:"general_instructions"`
	Avatar                       string    `json:"avatar"`
	ChoiceWhenUnable             string    `json:"choice_when_unable"`
	ConversationPassInstructions string    `json:"conversation_pass_instructions"`
	AutoTransfer                 string    `json:"auto_transfer"`
	TransferConnectingMessage    string    `json:"transfer_connecting_message"`
	CreatedAt                    time.Time `json:"createdAt"`
	UpdatedAt                    time.Time `json:"updatedAt"`
}

func toResponse(a Agent) agentResponse {
	return agentResponse{
		ID:                           a.ID,
		CompanyID:                    a.CompanyID,
		AgentName:                    a.Name,
		Personality:                  a.Personality,
		GeneralInstructions:          a.GeneralInstructions,
		Avatar:                       a.Avatar,
		ChoiceWhenUnable:             a.ChoiceWhenUnable,
		ConversationPassInstructions: a.ConversationPassInstructions,
		AutoTransfer:                 a.AutoTransfer,
		TransferConnectingMessage:    a.TransferConnectingMessage,
		CreatedAt:                    a.CreatedAt,
		UpdatedAt:                    a.UpdatedAt,
	}
}

type createRequest struct {
	AgentName                    string `json:"agent_name" binding:"required,max=255"`
	Personality                  string `json:"personality"`
	GeneralInstructions          string `json:"general_instructions"`
	Avatar                       string `json:"avatar" binding:"omitempty,max=500"`
	ChoiceWhenUnable             string `json:"choice_when_unable" binding:"omitempty,max=255"`
	ConversationPassInstructions string `json:"conversation_pass_instructions"`
	AutoTransfer                 string `json:"auto_transfer" binding:"omitempty,max=50"`
	TransferConnectingMessage    string `json:"transfer_connecting_message"`
}

type updateRequest struct {
	AgentName                    *string `json:"agent_name" binding:"omitempty,min=1,max=255"`
	Personality                  *string `json:"personality"`
	GeneralInstructions          *string `json:"general_instructions"`
	Avatar                       *string `json:"avatar" binding:"omitempty,max=500"`
	ChoiceWhenUnable             *string `json:"choice_when_unable" binding:"omitempty,max=255"`
	ConversationPassInstructions *string `json:"conversation_pass_instructions"`
	AutoTransfer                 *string `json:"auto_transfer" binding:"omitempty,max=50"`
	TransferConnectingMessage    *string `json:"transfer_connecting_message"`
}
