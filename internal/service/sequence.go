package service

import (
	"sort"

	"github.com/techcodes/backend/internal/models"
)

// Sequenced is a ticket with its position inside its (date, technician) group.
type Sequenced struct {
	Ticket        models.Ticket
	TechnicianKey string
	Sequence      int
}

type groupKey struct {
	date       string
	technician string
}

// Sequence orders tickets by timestamp, keeping input order on ties, and
// numbers each (calendar date, technician initials) group from 1.
func Sequence(tickets []models.Ticket) []Sequenced {
	sorted := make([]models.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	next := map[groupKey]int{}
	out := make([]Sequenced, 0, len(sorted))
	for _, t := range sorted {
		key := groupKey{
			date:       t.Timestamp.Format("2006-01-02"),
			technician: Initials(t.Technician),
		}
		next[key]++
		out = append(out, Sequenced{
			Ticket:        t,
			TechnicianKey: key.technician,
			Sequence:      next[key],
		})
	}
	return out
}
