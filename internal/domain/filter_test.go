package domain

import "testing"

func ticketIDs(tickets []Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterTickets(t *testing.T) {
	tickets := []Ticket{
		{ID: "IT-1", Title: "VPN broken", Status: TicketStatusOpen},
		{ID: "IT-2", Title: "Laptop issue", Status: TicketStatusClosed},
	}

	cases := []struct {
		name   string
		query  string
		status string
		want   []string
	}{
		{"query all", "vpn", StatusFilterAll, []string{"IT-1"}},
		{"status only", "", "Closed", []string{"IT-2"}},
		{"id match", "it-2", "", []string{"IT-2"}},
		{"everything", "", StatusFilterAll, []string{"IT-1", "IT-2"}},
		{"intersection empty", "vpn", "Closed", []string{}},
		{"no match", "printer", StatusFilterAll, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ticketIDs(FilterTickets(tickets, tc.query, tc.status))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}
