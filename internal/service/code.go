package service

import (
	"fmt"
	"time"

	"github.com/techcodes/backend/internal/models"
)

// Compose builds the ticket code:
//
//	prefix + %02d(day+month) + month initial + technician initials + sequence
//
// The month initial comes from the English short month name.
func Compose(category models.Category, date time.Time, technician string, sequence int) string {
	daySum := date.Day() + int(date.Month())
	monthInitial := date.Month().String()[:1]
	base := fmt.Sprintf("%02d%s%s%d", daySum, monthInitial, Initials(technician), sequence)
	return codePrefix(category) + base
}

func codePrefix(c models.Category) string {
	switch c {
	case models.CategoryTapNap:
		return "4139"
	case models.CategoryMCO:
		return "C4130"
	case models.CategoryRecabling:
		return "RC4130"
	case models.CategoryOther:
		return "CODIGO"
	default:
		panic(fmt.Sprintf("service: no code prefix for %v", c))
	}
}
