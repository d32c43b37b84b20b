package aiagents

import "time"

// Agent configures the AI assistant a company exposes to its customers.
type Agent struct {
	ID                           string
	CompanyID                    string
	Name                         string
	Personality                  string
	GeneralInstructions          string
	Avatar                       string
	ChoiceWhenUnable             string
	ConversationPassInstructions string
	AutoTransfer                 string
	TransferConnectingMessage    string
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
}

type Input struct {
	Name                         string
	Personality                  string
	GeneralInstructions          string
	Avatar                       string
	ChoiceWhenUnable             string
	ConversationPassInstructions string
	AutoTransfer                 string
	TransferConnectingMessage    string
}

type Patch struct {
	Name                         *string
	Personality                  *string
	GeneralInstructions          *string
	Avatar                       *string
	ChoiceWhenUnable             *string
	ConversationPassInstructions *string
	AutoTransfer                 *string
	TransferConnectingMessage    *string
}
