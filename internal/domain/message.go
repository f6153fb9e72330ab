package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderTypeUser  SenderType = "user"
	SenderTypeAgent SenderType = "agent"
	// SenderTypeSystem marks messages synthesized by the server itself, such
	// as status-change and assignment narrations. Clients never send these.
	SenderTypeSystem SenderType = "system"
)

// Valid reports whether the sender type is a known value.
func (s SenderType) Valid() bool {
	switch s {
	case SenderTypeUser, SenderTypeAgent, SenderTypeSystem:
		return true
	}
	return false
}

// MaxContentLen caps message content, counted in runes.
const MaxContentLen = 5000

// Attachment stores metadata for a file attached to a message. The bytes
// themselves live in external storage; only the reference is kept here.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Message is a single entry in a ticket conversation. Messages are immutable
// once written except for the bulk IsRead flip performed by mark-as-read.
type Message struct {
	ID          string
	TicketID    string
	SenderID    string
	SenderType  SenderType
	SenderName  string
	Content     string
	Attachments []Attachment
	IsRead      bool
	CreatedAt   time.Time
}

// Validate checks field constraints before persistence.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.TicketID) == "" {
		return ErrMissingField("ticketId")
	}
	if strings.TrimSpace(m.SenderID) == "" {
		return ErrMissingField("senderId")
	}
	if !m.SenderType.Valid() {
		return ErrInvalidValue("senderType", string(m.SenderType))
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrMissingField("content")
	}
	if utf8.RuneCountInString(m.Content) > MaxContentLen {
		return ErrFieldTooLong("content", MaxContentLen)
	}
	return nil
}
