package redis

import (
	"fmt"
	"time"
)

const ns = "evexticket:v1"

const dateLayout = "2006-01-02"

// KeyDateVersion holds the generation counter of every cached read for a
// travel date. Bumping it orphans the previous generation's keys.
func KeyDateVersion(date time.Time) string {
	return fmt.Sprintf("%s:date:%s:ver", ns, date.Format(dateLayout))
}

func KeySearch(date time.Time, version int64, departure, arrival string, passengers int) string {
	return fmt.Sprintf("%s:search:%s:%d:%s:%s:%d", ns, date.Format(dateLayout), version, departure, arrival, passengers)
}

func KeyAvailability(routeID int64, date time.Time, version int64, origin, destination int64) string {
	return fmt.Sprintf("%s:avail:%d:%s:%d:%d-%d", ns, routeID, date.Format(dateLayout), version, origin, destination)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemReservation(subject, idemKey string) string {
	return fmt.Sprintf("%s:idem:reservations:%s:%s", ns, subject, idemKey)
}

func ChannelRoutesChanged() string {
	return ns + ":routes:changed"
}
