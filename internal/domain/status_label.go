package domain

// statusLabels maps ticket statuses to the Arabic display text used in
// system messages. The product ships Arabic-first; clients localize
// everything else themselves.
var statusLabels = map[TicketStatus]string{
	TicketStatusOpen:    "مفتوحة",
	TicketStatusPending: "قيد المعالجة",
	TicketStatusClosed:  "مغلقة",
}

// StatusLabel returns the display label for a ticket status. Unknown
// statuses pass through as their raw code.
func StatusLabel(status TicketStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}
