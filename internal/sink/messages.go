package sink

import (
	"fmt"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

// Message types carried in the "type" field of published JSON.
const (
	TypeFix  = "fix"
	TypeSkip = "skip"
)

// FixMessage is the JSON form of a committed fix on the MQTT and WebSocket
// feeds. Coordinates are encoded as exact JSON numbers.
type FixMessage struct {
	Type    string         `json:"type"`
	Session string         `json:"session"`
	Order   uint64         `json:"order"`
	Time    string         `json:"time"`
	Lat     gps.Coordinate `json:"lat"`
	Lon     gps.Coordinate `json:"lon"`
}

// SkipMessage announces an order slot that produced no fix.
type SkipMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Order   uint64 `json:"order"`
	Reason  string `json:"reason"`
}

func NewFixMessage(session string, order uint64, fix gps.Fix) FixMessage {
	return FixMessage{
		Type:    TypeFix,
		Session: session,
		Order:   order,
		Time:    fix.Time(),
		Lat:     fix.Latitude,
		Lon:     fix.Longitude,
	}
}

func NewSkipMessage(session string, order uint64, reason error) SkipMessage {
	return SkipMessage{Type: TypeSkip, Session: session, Order: order, Reason: gps.Reason(reason)}
}

// Fix rebuilds the decoded fix carried by the message.
func (m FixMessage) Fix() (gps.Fix, error) {
	f := gps.Fix{Latitude: m.Lat, Longitude: m.Lon, Valid: true}
	if _, err := fmt.Sscanf(m.Time, "%d:%d:%d", &f.Hours, &f.Minutes, &f.Seconds); err != nil {
		return gps.Fix{}, fmt.Errorf("fix message time %q: %w", m.Time, err)
	}
	return f, nil
}

// reasonLabel carries a skip reason received from another process.
type reasonLabel string

func (r reasonLabel) Error() string  { return "skipped: " + string(r) }
func (r reasonLabel) Reason() string { return string(r) }

// Err returns an error whose gps.Reason label matches m.Reason.
func (m SkipMessage) Err() error { return reasonLabel(m.Reason) }
