package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// Failure enumerates expected, user-correctable attendance outcomes. They are
// returned inside structured results, never as Go errors; only persistence or
// infrastructure problems surface as errors.
type Failure string

const (
	FailureAlreadyCheckedIn   Failure = "AlreadyCheckedIn"
	FailureNoOpenSession      Failure = "NoOpenSession"
	FailureVerificationFailed Failure = "VerificationFailed"
)

// CheckInInput is the evidence supplied with a check-in.
type CheckInInput struct {
	LocationType domain.LocationType
	LocationID   string
	QRCode       string
	SelfieRef    string
}

// CheckInResult reports the outcome of a check-in attempt.
type CheckInResult struct {
	Success   bool
	CheckInID string
	Failure   Failure
}

// CheckOutResult reports the outcome of a checkout attempt.
type CheckOutResult struct {
	Success    bool
	TotalHours float64
	Failure    Failure
}

// Status is the derived check-in state for a user.
type Status struct {
	IsCheckedIn bool
	CanCheckIn  bool
	LastRecord  *domain.AttendanceRecord
}

// EvidenceChecker verifies non-QR evidence content (selfie, geofence). The
// actual inspection is an external capability.
type EvidenceChecker interface {
	Verify(ctx context.Context, evidence domain.Evidence) (bool, error)
}

// NoopEvidenceChecker attaches evidence without inspecting content.
type NoopEvidenceChecker struct{}

// Verify always accepts.
func (NoopEvidenceChecker) Verify(context.Context, domain.Evidence) (bool, error) {
	return true, nil
}

// AttendanceService manages the per-user check-in/check-out lifecycle.
type AttendanceService struct {
	records    repository.AttendanceRepository
	locations  repository.LocationRepository
	checker    EvidenceChecker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAttendanceService builds the service.
func NewAttendanceService(records repository.AttendanceRepository, locations repository.LocationRepository, checker EvidenceChecker, dispatcher events.Dispatcher, logger *zap.Logger) *AttendanceService {
	if checker == nil {
		checker = NoopEvidenceChecker{}
	}
	return &AttendanceService{
		records:    records,
		locations:  locations,
		checker:    checker,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Test use.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

// GetStatus derives the current state from the most recent record.
func (s *AttendanceService) GetStatus(ctx context.Context, userID string) (*Status, error) {
	last, err := s.records.GetLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Status{IsCheckedIn: false, CanCheckIn: true}, nil
		}
		return nil, err
	}

	open := last.Open()
	return &Status{
		IsCheckedIn: open,
		CanCheckIn:  !open,
		LastRecord:  last,
	}, nil
}

// CheckIn opens a new attendance record. The store's unique open-record guard
// is the concurrency check: of two simultaneous attempts exactly one insert
// succeeds and the other observes AlreadyCheckedIn.
func (s *AttendanceService) CheckIn(ctx context.Context, userID string, in CheckInInput) (*CheckInResult, error) {
	verified := false

	if in.QRCode != "" {
		ok, err := s.VerifyLocationCode(ctx, in.QRCode, in.LocationID, in.LocationType)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &CheckInResult{Failure: FailureVerificationFailed}, nil
		}
		verified = true
	} else if in.SelfieRef != "" {
		ok, err := s.checker.Verify(ctx, domain.Evidence{SelfieRef: in.SelfieRef})
		if err != nil {
			return nil, err
		}
		if !ok {
			return &CheckInResult{Failure: FailureVerificationFailed}, nil
		}
		verified = true
	} else {
		return &CheckInResult{Failure: FailureVerificationFailed}, nil
	}

	rec := &domain.AttendanceRecord{
		UserID:       userID,
		CheckInTime:  s.now().UTC(),
		LocationType: in.LocationType,
		LocationID:   in.LocationID,
		Evidence:     domain.Evidence{QRCode: in.QRCode, SelfieRef: in.SelfieRef},
		Verified:     verified,
	}

	if err := s.records.CreateOpen(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrOpenRecordExists) {
			return &CheckInResult{Failure: FailureAlreadyCheckedIn}, nil
		}
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventCheckedIn,
		UserID:    userID,
		Timestamp: s.now().UTC(),
		Payload: events.CheckedInPayload{
			RecordID:     rec.ID,
			LocationType: string(in.LocationType),
			LocationID:   in.LocationID,
			Verified:     verified,
		},
	})
	return &CheckInResult{Success: true, CheckInID: rec.ID}, nil
}

// CheckOut closes the open record identified by checkInID and accrues the
// hours onto the user's cumulative total. Record close and aggregate update
// are one transaction in the store, so a retried checkout finds the record
// already closed and reports NoOpenSession instead of double-counting.
func (s *AttendanceService) CheckOut(ctx context.Context, userID, checkInID string, notes *string) (*CheckOutResult, error) {
	open, err := s.records.GetOpenByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &CheckOutResult{Failure: FailureNoOpenSession}, nil
		}
		return nil, err
	}
	if open.ID != checkInID {
		return &CheckOutResult{Failure: FailureNoOpenSession}, nil
	}

	checkOut := s.now().UTC()
	totalHours := round2(checkOut.Sub(open.CheckInTime).Hours())
	if totalHours < 0 {
		totalHours = 0
	}

	closed, err := s.records.CloseWithHours(ctx, userID, checkInID, checkOut, totalHours, notes)
	if err != nil {
		return nil, err
	}
	if !closed {
		// Lost the race to another checkout of the same record.
		return &CheckOutResult{Failure: FailureNoOpenSession}, nil
	}

	s.publish(ctx, events.Event{
		Type:      events.EventCheckedOut,
		UserID:    userID,
		Timestamp: checkOut,
		Payload:   events.CheckedOutPayload{RecordID: checkInID, TotalHours: totalHours},
	})
	return &CheckOutResult{Success: true, TotalHours: totalHours}, nil
}

// VerifyLocationCode compares a submitted code against the location's
// registered one. Exact match only: a code reused from a different location
// must never validate.
func (s *AttendanceService) VerifyLocationCode(ctx context.Context, code, locationID string, locationType domain.LocationType) (bool, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if !loc.Active || loc.Type != locationType {
		return false, nil
	}
	return loc.QRCode != "" && loc.QRCode == code, nil
}

func round2(hours float64) float64 {
	return math.Round(hours*100) / 100
}

func (s *AttendanceService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
