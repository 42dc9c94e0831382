package entity

import "time"

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

type Conversation struct {
	SessionKey     string    `json:"session_key"`
	CustomerPhone  string    `json:"customer_phone"`
	CustomerName   string    `json:"customer_name,omitempty"`
	History        []Turn    `json:"history"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

type SupervisorLoginData struct {
	ID   string
	Name string
}
