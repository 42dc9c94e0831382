package frontdesk

import "frontdesk/pkg/response"

var (
	ErrSessionNotFound     = response.NewError(404, "session not found")
	ErrHelpRequestNotFound = response.NewError(404, "help request not found")
	ErrInvalidTransition   = response.NewError(409, "help request already handled")
	ErrMissingFields       = response.NewError(400, "missing required fields")
	ErrKnowledgeNotFound   = response.NewError(404, "knowledge entry not found")
	ErrInvalidStatus       = response.NewError(400, "invalid help request status")
	ErrEscalationFailed    = response.NewError(503, "escalation failed")
)
