package workflow

// TicketStatus is the parent status derived from its details.
type TicketStatus string

const (
	TicketNew              TicketStatus = "NEW"
	TicketInProgress       TicketStatus = "IN_PROGRESS"
	TicketPartialComplete  TicketStatus = "PARTIAL_COMPLETE"
	TicketComplete         TicketStatus = "COMPLETE"
	TicketCancelled        TicketStatus = "CANCELLED"
	TicketPartialCancelled TicketStatus = "PARTIAL_CANCELLED"
)

// Rollup derives the ticket status from the multiset of detail statuses.
// Cancellation is checked first, so a mix of done and cancelled details is
// PARTIAL_CANCELLED.
func (g *Graph) Rollup(statuses []Status) TicketStatus {
	if len(statuses) == 0 {
		return TicketNew
	}

	var cancelled, initial, done int
	for _, s := range statuses {
		switch {
		case s == g.def.Cancelled:
			cancelled++
		case s == g.def.Initial:
			initial++
		}
		if g.success[s] {
			done++
		}
	}

	switch {
	case cancelled == len(statuses):
		return TicketCancelled
	case cancelled > 0:
		return TicketPartialCancelled
	case initial == len(statuses):
		return TicketNew
	case done == len(statuses):
		return TicketComplete
	default:
		return g.def.InProgress
	}
}
