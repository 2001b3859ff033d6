package walk

import "time"

const (
	// AutomaticAlertAddress is the address text attached to escalated falls.
	AutomaticAlertAddress = "Automatic alert - Fall detected"
	// ManualAlertAddress is the default address text of a user-issued SOS.
	ManualAlertAddress = "Manual SOS triggered"
)

// Actor identifies the user on whose behalf an alert is raised.
type Actor struct {
	// Hostname is the machine name of the device.
	Hostname string
	// Username is the user signed in on the device.
	Username string
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// String renders the actor as username@hostname.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}

// AlertRecord is an emergency alert handed by value to a dispatch sink.
type AlertRecord struct {
	// ID uniquely identifies the alert.
	ID string
	// SessionID is the session that raised the alert.
	SessionID string
	// Latitude of the last known position, 0 when unknown.
	Latitude float64
	// Longitude of the last known position, 0 when unknown.
	Longitude float64
	// LocationKnown is false when no position had arrived yet.
	LocationKnown bool
	// IsAutomatic is true for escalated falls and false for manual SOS.
	IsAutomatic bool
	// Address is a human readable description of the alert origin.
	Address string
	// Reporter is the user the alert is raised for.
	Reporter *Actor
	// CreatedAt is when the alert was synthesized.
	CreatedAt time.Time
}

// Clone returns a deep copy of the record.
func (r *AlertRecord) Clone() *AlertRecord {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.Reporter = r.Reporter.Clone()

	return &cloned
}

// Kind returns "automatic" or "manual".
func (r *AlertRecord) Kind() string {
	if r.IsAutomatic {
		return "automatic"
	}

	return "manual"
}
