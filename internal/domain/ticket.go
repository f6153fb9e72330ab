package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPending TicketStatus = "pending"
	TicketStatusClosed  TicketStatus = "closed"
	// TicketStatusResolved is a legacy terminal state still present on older
	// ticket rows; it rejects new messages the same way closed does.
	TicketStatusResolved TicketStatus = "resolved"
)

// Terminal reports whether the status forbids appending further messages.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusResolved
}

// TicketCategory enumerates supported ticket topics.
type TicketCategory string

const (
	CategoryGeneral   TicketCategory = "general"
	CategoryTechnical TicketCategory = "technical"
	CategoryBilling   TicketCategory = "billing"
	CategoryAccount   TicketCategory = "account"
	CategoryBooking   TicketCategory = "booking"
	CategoryOther     TicketCategory = "other"
)

// Valid reports whether the category is a known value.
func (c TicketCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryTechnical, CategoryBilling, CategoryAccount, CategoryBooking, CategoryOther:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

const (
	// MaxSubjectLen caps the ticket subject.
	MaxSubjectLen = 200
	// LastMessagePreviewLen caps the denormalized last-message preview.
	LastMessagePreviewLen = 100
)

// Ticket is the aggregate for a support conversation between a user and an
// optionally assigned agent. TicketNumber is assigned once at creation and
// never changes.
type Ticket struct {
	ID           string
	TicketNumber string
	UserID       string
	AgentID      *string
	Subject      string
	Category     TicketCategory
	Status       TicketStatus
	Priority     TicketPriority
	LastMessage  *string
	UnreadCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks field constraints before persistence.
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingField("userId")
	}
	subject := strings.TrimSpace(t.Subject)
	if subject == "" {
		return ErrMissingField("subject")
	}
	if utf8.RuneCountInString(subject) > MaxSubjectLen {
		return ErrFieldTooLong("subject", MaxSubjectLen)
	}
	if t.Category != "" && !t.Category.Valid() {
		return ErrInvalidValue("category", string(t.Category))
	}
	return nil
}

// MessagePreview truncates message content to the preview length stored on
// the ticket row. Length caps count runes, not bytes: Arabic content is two
// bytes per letter, and cutting mid-rune would hand Postgres invalid UTF-8.
func MessagePreview(content string) string {
	count := 0
	for i := range content {
		if count == LastMessagePreviewLen {
			return content[:i]
		}
		count++
	}
	return content
}
