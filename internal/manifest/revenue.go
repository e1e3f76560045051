package manifest

import (
	"github.com/shopspring/decimal"

	"github.com/essodond/Evexticket/internal/domain"
)

// Revenue sums the price of the reservations whose status earns, the same
// rule the dashboard total uses.
func Revenue(lines []domain.TicketLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l.Reservation.Status.Earns() {
			total = total.Add(l.Reservation.TotalPrice)
		}
	}
	return total
}
