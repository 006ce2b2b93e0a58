package domain

import "time"

// LocationType distinguishes work placements from class sessions.
type LocationType string

const (
	LocationTypeWork  LocationType = "WORK"
	LocationTypeClass LocationType = "CLASS"
)

// Evidence carries what the caller supplied to prove presence. QRCode is
// matched exactly against the location's registered code; SelfieRef is an
// opaque reference whose content is verified by an external capability.
type Evidence struct {
	QRCode    string
	SelfieRef string
}

// AttendanceRecord is one check-in/check-out cycle. CheckOutTime and
// TotalHours are set exactly once, on checkout; a record is never deleted.
type AttendanceRecord struct {
	ID           string
	UserID       string
	CheckInTime  time.Time
	CheckOutTime *time.Time
	LocationType LocationType
	LocationID   string
	Evidence     Evidence
	Verified     bool
	Notes        *string
	TotalHours   *float64
	CreatedAt    time.Time
}

// Open reports whether the record still awaits checkout.
func (r *AttendanceRecord) Open() bool {
	return r != nil && r.CheckOutTime == nil
}

// Location is a work placement or class session with its registered
// check-in code.
type Location struct {
	ID        string
	Name      string
	Type      LocationType
	QRCode    string
	Active    bool
	CreatedAt time.Time
}
