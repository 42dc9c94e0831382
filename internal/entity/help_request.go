package entity

import "time"

type HelpRequestStatus string

const (
	HelpRequestStatusPending    HelpRequestStatus = "PENDING"
	HelpRequestStatusResolved   HelpRequestStatus = "RESOLVED"
	HelpRequestStatusUnresolved HelpRequestStatus = "UNRESOLVED"
)

func IsValidHelpRequestStatus(status string) bool {
	switch HelpRequestStatus(status) {
	case HelpRequestStatusPending, HelpRequestStatusResolved, HelpRequestStatusUnresolved:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s HelpRequestStatus) IsTerminal() bool {
	return s == HelpRequestStatusResolved || s == HelpRequestStatusUnresolved
}

type HelpRequest struct {
	ID                 string            `json:"id"`
	CustomerPhone      string            `json:"customer_phone"`
	CustomerName       string            `json:"customer_name,omitempty"`
	Question           string            `json:"question"`
	Context            string            `json:"context,omitempty"`
	Status             HelpRequestStatus `json:"status"`
	SupervisorResponse string            `json:"supervisor_response,omitempty"`
	SupervisorName     string            `json:"supervisor_name,omitempty"`
	RespondedAt        *time.Time        `json:"responded_at,omitempty"`
	SessionKey         string            `json:"session_key,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type HelpRequestStats struct {
	Pending        int    `json:"pending"`
	Resolved       int    `json:"resolved"`
	Unresolved     int    `json:"unresolved"`
	Total          int    `json:"total"`
	ResolutionRate string `json:"resolution_rate"`
}
