package entity

import "time"

type Provenance string

const (
	ProvenanceSupervisor Provenance = "SUPERVISOR"
	ProvenanceManual     Provenance = "MANUAL"
	ProvenanceInitial    Provenance = "INITIAL"
)

func IsValidProvenance(p string) bool {
	switch Provenance(p) {
	case ProvenanceSupervisor, ProvenanceManual, ProvenanceInitial:
		return true
	default:
		return false
	}
}

type KnowledgeEntry struct {
	ID              string     `json:"id"`
	Question        string     `json:"question"`
	Answer          string     `json:"answer"`
	Category        string     `json:"category,omitempty"`
	Keywords        []string   `json:"keywords"`
	Provenance      Provenance `json:"provenance"`
	SourceRequestID string     `json:"source_request_id,omitempty"`
	UsageCount      int64      `json:"usage_count"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
