package redis

import "fmt"

const ns = "tixledger:v1"

func KeyEventSummary(eventID uint64) string {
	return fmt.Sprintf("%s:event:%d:summary", ns, eventID)
}

func KeyEventAvailability(eventID uint64) string {
	return fmt.Sprintf("%s:event:%d:availability", ns, eventID)
}

func KeyIdemSubmit(idemKey string) string {
	return fmt.Sprintf("%s:idem:submit:%s", ns, idemKey)
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
