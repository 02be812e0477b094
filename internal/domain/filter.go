package domain

import "strings"

// StatusFilterAll disables status filtering in FilterTickets.
const StatusFilterAll = "All"

// MatchesQuery reports whether the ticket's title or id contains query,
// ignoring case. An empty query matches every ticket.
func MatchesQuery(t *Ticket, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), query) ||
		strings.Contains(strings.ToLower(t.ID), query)
}

// MatchesStatus reports whether the ticket passes the status filter.
// "All" and the empty string match every status.
func MatchesStatus(t *Ticket, status string) bool {
	if status == "" || status == StatusFilterAll {
		return true
	}
	return string(t.Status) == status
}

// FilterTickets returns the tickets matching both query and status, keeping order.
func FilterTickets(tickets []Ticket, query, status string) []Ticket {
	result := make([]Ticket, 0, len(tickets))
	for i := range tickets {
		if MatchesQuery(&tickets[i], query) && MatchesStatus(&tickets[i], status) {
			result = append(result, tickets[i])
		}
	}
	return result
}
