package frontdesk

import (
	"frontdesk/internal/entity"
	"time"
)

type OpenSessionRequest struct {
	SessionKey    string `json:"session_key" validate:"required,max=255"`
	CustomerPhone string `json:"customer_phone" validate:"required,max=32"`
	CustomerName  string `json:"customer_name" validate:"max=255"`
}

type UtteranceRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type UtteranceResult struct {
	Reply         string `json:"reply"`
	Escalated     bool   `json:"escalated"`
	HelpRequestID string `json:"help_request_id,omitempty"`
}

type SessionResponse struct {
	SessionKey     string        `json:"session_key"`
	CustomerPhone  string        `json:"customer_phone"`
	CustomerName   string        `json:"customer_name,omitempty"`
	History        []entity.Turn `json:"history"`
	StartedAt      string        `json:"started_at"`
	LastActivityAt string        `json:"last_activity_at"`
}

type CreateHelpRequest struct {
	CustomerPhone string
	CustomerName  string
	Question      string
	Context       string
	SessionKey    string
}

type ResolveHelpRequest struct {
	SupervisorResponse string `json:"supervisor_response" validate:"required"`
	SupervisorName     string `json:"supervisor_name"`
	Resolved           *bool  `json:"resolved"`
}

// IsResolved defaults to true when the supervisor did not say otherwise.
func (r ResolveHelpRequest) IsResolved() bool {
	return r.Resolved == nil || *r.Resolved
}

type HelpRequestResponse struct {
	ID                 string `json:"id"`
	CustomerPhone      string `json:"customer_phone"`
	CustomerName       string `json:"customer_name,omitempty"`
	Question           string `json:"question"`
	Context            string `json:"context,omitempty"`
	Status             string `json:"status"`
	SupervisorResponse string `json:"supervisor_response,omitempty"`
	SupervisorName     string `json:"supervisor_name,omitempty"`
	RespondedAt        string `json:"responded_at,omitempty"`
	SessionKey         string `json:"session_key,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type HelpRequestEvent struct {
	Type        string              `json:"type"`
	HelpRequest HelpRequestResponse `json:"help_request"`
	At          time.Time           `json:"at"`
}

const (
	EventHelpRequestCreated    = "help_request.created"
	EventHelpRequestResolved   = "help_request.resolved"
	EventHelpRequestUnresolved = "help_request.unresolved"
)

type SearchKnowledgeRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type SearchKnowledgeResponse struct {
	Found  bool   `json:"found"`
	Answer string `json:"answer,omitempty"`
	ID     string `json:"id,omitempty"`
}

type AddKnowledgeRequest struct {
	Question string   `json:"question" validate:"required"`
	Answer   string   `json:"answer" validate:"required"`
	Category string   `json:"category" validate:"max=100"`
	Keywords []string `json:"keywords"`
}

type SetKnowledgeActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type KnowledgeResponse struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	Category        string   `json:"category,omitempty"`
	Keywords        []string `json:"keywords"`
	Provenance      string   `json:"provenance"`
	SourceRequestID string   `json:"source_request_id,omitempty"`
	UsageCount      int64    `json:"usage_count"`
	LastUsedAt      string   `json:"last_used_at,omitempty"`
	IsActive        bool     `json:"is_active"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

func NewHelpRequestResponse(hr entity.HelpRequest) HelpRequestResponse {
	res := HelpRequestResponse{
		ID:                 hr.ID,
		CustomerPhone:      hr.CustomerPhone,
		CustomerName:       hr.CustomerName,
		Question:           hr.Question,
		Context:            hr.Context,
		Status:             string(hr.Status),
		SupervisorResponse: hr.SupervisorResponse,
		SupervisorName:     hr.SupervisorName,
		SessionKey:         hr.SessionKey,
		CreatedAt:          hr.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          hr.UpdatedAt.Format(time.RFC3339),
	}
	if hr.RespondedAt != nil {
		res.RespondedAt = hr.RespondedAt.Format(time.RFC3339)
	}
	return res
}

func NewKnowledgeResponse(e entity.KnowledgeEntry) KnowledgeResponse {
	keywords := e.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	res := KnowledgeResponse{
		ID:              e.ID,
		Question:        e.Question,
		Answer:          e.Answer,
		Category:        e.Category,
		Keywords:        keywords,
		Provenance:      string(e.Provenance),
		SourceRequestID: e.SourceRequestID,
		UsageCount:      e.UsageCount,
		IsActive:        e.IsActive,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       e.UpdatedAt.Format(time.RFC3339),
	}
	if e.LastUsedAt != nil {
		res.LastUsedAt = e.LastUsedAt.Format(time.RFC3339)
	}
	return res
}

func NewSessionResponse(c entity.Conversation) SessionResponse {
	history := c.History
	if history == nil {
		history = []entity.Turn{}
	}
	return SessionResponse{
		SessionKey:     c.SessionKey,
		CustomerPhone:  c.CustomerPhone,
		CustomerName:   c.CustomerName,
		History:        history,
		StartedAt:      c.StartedAt.Format(time.RFC3339),
		LastActivityAt: c.LastActivityAt.Format(time.RFC3339),
	}
}

// HelpRequestEventsChannel is the pub/sub channel carrying HelpRequestEvent payloads.
const HelpRequestEventsChannel = "frontdesk:help-requests"
