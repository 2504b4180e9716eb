package rangeeval

import "fmt"

// NotificationKind identifies which band was entered.
type NotificationKind string

const (
	EnteredWarn   NotificationKind = "entered_warn"
	EnteredDanger NotificationKind = "entered_danger"
)

// Notification signals that fuel moved to a more critical band.
type Notification struct {
	Kind NotificationKind `json:"kind"`
	From Band             `json:"from"`
	To   Band             `json:"to"`
}

// Message is a short rider-facing alert text.
func (n Notification) Message() string {
	return fmt.Sprintf("Fuel %s: %s", n.To, n.To.StatusText())
}

// Transition returns a notification only for upward moves (OK to WARN, WARN to
// DANGER, OK to DANGER). Refuelling moves the band down and stays silent.
func Transition(previous, current Band) *Notification {
	if current <= previous {
		return nil
	}
	kind := EnteredWarn
	if current == BandDanger {
		kind = EnteredDanger
	}
	return &Notification{Kind: kind, From: previous, To: current}
}
