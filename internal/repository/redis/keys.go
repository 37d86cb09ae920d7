package redisrepo

import "fmt"

const ns = "eventhub:v1"

func KeyEvent(eventID int64) string {
	return fmt.Sprintf("%s:event:%d", ns, eventID)
}

func KeyEventTicketTypes(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:ticket-types", ns, eventID)
}

func KeyEventAvailability(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:availability", ns, eventID)
}

func KeyVanity(path string) string {
	return fmt.Sprintf("%s:vanity:%s", ns, path)
}

func KeySetting(key string) string {
	return fmt.Sprintf("%s:setting:%s", ns, key)
}

func KeySession(token string) string {
	return fmt.Sprintf("%s:session:%s", ns, token)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdem(scope string, userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:%s:%d:%s", ns, scope, userID, idemKey)
}

func KeyAdImpressions() string {
	return ns + ":ads:impressions"
}

func KeyAdClicks() string {
	return ns + ":ads:clicks"
}

// KeyEventViews holds per-event view counts of one UTC day (YYYY-MM-DD).
func KeyEventViews(day string) string {
	return fmt.Sprintf("%s:views:%s", ns, day)
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
