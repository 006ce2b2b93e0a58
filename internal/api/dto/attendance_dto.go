package dto

import "time"

// CheckInRequest payload for a check-in.
type CheckInRequest struct {
	LocationType string `json:"location_type"`
	LocationID   string `json:"location_id"`
	QRCode       string `json:"qr_code,omitempty"`
	SelfieRef    string `json:"selfie_ref,omitempty"`
}

// CheckOutRequest payload for a checkout.
type CheckOutRequest struct {
	CheckInID string  `json:"check_in_id"`
	Notes     *string `json:"notes,omitempty"`
}

// AttendanceRecordResponse is the wire view of a record.
type AttendanceRecordResponse struct {
	ID           string     `json:"id"`
	CheckInTime  time.Time  `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	LocationType string     `json:"location_type"`
	LocationID   string     `json:"location_id"`
	Verified     bool       `json:"verified"`
	TotalHours   *float64   `json:"total_hours,omitempty"`
}

// StatusResponse reports the derived check-in state.
type StatusResponse struct {
	IsCheckedIn bool                      `json:"is_checked_in"`
	CanCheckIn  bool                      `json:"can_check_in"`
	LastRecord  *AttendanceRecordResponse `json:"last_record,omitempty"`
}
