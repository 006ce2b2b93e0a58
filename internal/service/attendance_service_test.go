package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
)

type attendanceFixture struct {
	svc        *AttendanceService
	records    *fakeAttendanceRepo
	dispatcher *captureDispatcher
	now        time.Time
}

func newAttendanceFixture(t *testing.T, locations ...*domain.Location) *attendanceFixture {
	t.Helper()

	f := &attendanceFixture{
		records:    newFakeAttendanceRepo(),
		dispatcher: &captureDispatcher{},
		now:        time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewAttendanceService(f.records, newFakeLocationRepo(locations...), nil, f.dispatcher, zap.NewNop()).
		WithClock(func() time.Time { return f.now })
	return f
}

func workPlacement() *domain.Location {
	return &domain.Location{
		ID:     "placement-1",
		Name:   "Acme Workshop",
		Type:   domain.LocationTypeWork,
		QRCode: "QR-ACME-2025",
		Active: true,
	}
}

func classSession() *domain.Location {
	return &domain.Location{
		ID:     "session-7",
		Name:   "Welding 101",
		Type:   domain.LocationTypeClass,
		QRCode: "QR-CLASS-7",
		Active: true,
	}
}

func TestCheckInAndOutLifecycle(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement())
	ctx := context.Background()

	status, err := f.svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, status.IsCheckedIn)
	require.True(t, status.CanCheckIn)
	require.Nil(t, status.LastRecord)

	res, err := f.svc.CheckIn(ctx, "user-1", CheckInInput{
		LocationType: domain.LocationTypeWork,
		LocationID:   "placement-1",
		QRCode:       "QR-ACME-2025",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.CheckInID)

	status, err = f.svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, status.IsCheckedIn)
	require.False(t, status.CanCheckIn)
	require.True(t, status.LastRecord.Verified)

	// Two hours on the clock.
	f.now = f.now.Add(2 * time.Hour)

	out, err := f.svc.CheckOut(ctx, "user-1", res.CheckInID, nil)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.InDelta(t, 2.00, out.TotalHours, 0.001)

	status, err = f.svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, status.IsCheckedIn)
	require.True(t, status.CanCheckIn)
	require.NotNil(t, status.LastRecord.CheckOutTime)
	require.InDelta(t, 2.00, *status.LastRecord.TotalHours, 0.001)

	require.InDelta(t, 2.00, f.records.completedHours["user-1"], 0.001)
	require.Len(t, f.dispatcher.byType(events.EventCheckedIn), 1)
	require.Len(t, f.dispatcher.byType(events.EventCheckedOut), 1)
}

func TestCheckIn_AlreadyCheckedIn(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement())
	ctx := context.Background()
	in := CheckInInput{
		LocationType: domain.LocationTypeWork,
		LocationID:   "placement-1",
		QRCode:       "QR-ACME-2025",
	}

	first, err := f.svc.CheckIn(ctx, "user-1", in)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := f.svc.CheckIn(ctx, "user-1", in)
	require.NoError(t, err)
	require.False(t, second.Success)
	require.Equal(t, FailureAlreadyCheckedIn, second.Failure)

	// A different user is unaffected.
	other, err := f.svc.CheckIn(ctx, "user-2", in)
	require.NoError(t, err)
	require.True(t, other.Success)
}

func TestCheckIn_QRVerification(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement(), classSession())
	ctx := context.Background()

	cases := []struct {
		name string
		in   CheckInInput
	}{
		{"wrong code", CheckInInput{LocationType: domain.LocationTypeWork, LocationID: "placement-1", QRCode: "QR-WRONG"}},
		{"code from another location", CheckInInput{LocationType: domain.LocationTypeWork, LocationID: "placement-1", QRCode: "QR-CLASS-7"}},
		{"type mismatch", CheckInInput{LocationType: domain.LocationTypeClass, LocationID: "placement-1", QRCode: "QR-ACME-2025"}},
		{"unknown location", CheckInInput{LocationType: domain.LocationTypeWork, LocationID: "nowhere", QRCode: "QR-ACME-2025"}},
		{"no evidence at all", CheckInInput{LocationType: domain.LocationTypeWork, LocationID: "placement-1"}},
	}
	for _, tc := range cases {
		res, err := f.svc.CheckIn(ctx, "user-1", tc.in)
		require.NoError(t, err, tc.name)
		require.False(t, res.Success, tc.name)
		require.Equal(t, FailureVerificationFailed, res.Failure, tc.name)
	}

	// Partial matches never pass; the exact registered code does.
	ok, err := f.svc.VerifyLocationCode(ctx, "QR-ACME", "placement-1", domain.LocationTypeWork)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = f.svc.VerifyLocationCode(ctx, "QR-ACME-2025", "placement-1", domain.LocationTypeWork)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckIn_ClassSessionCode(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, classSession())
	res, err := f.svc.CheckIn(context.Background(), "user-1", CheckInInput{
		LocationType: domain.LocationTypeClass,
		LocationID:   "session-7",
		QRCode:       "QR-CLASS-7",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestCheckIn_SelfieEvidence(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement())
	res, err := f.svc.CheckIn(context.Background(), "user-1", CheckInInput{
		LocationType: domain.LocationTypeWork,
		LocationID:   "placement-1",
		SelfieRef:    "uploads/selfie-123.jpg",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	rec, err := f.records.GetByID(context.Background(), res.CheckInID)
	require.NoError(t, err)
	require.Equal(t, "uploads/selfie-123.jpg", rec.Evidence.SelfieRef)
}

func TestCheckOut_NoOpenSession(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement())
	ctx := context.Background()

	out, err := f.svc.CheckOut(ctx, "user-1", "nonexistent", nil)
	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, FailureNoOpenSession, out.Failure)
}

func TestCheckOut_RetryDoesNotDoubleCount(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement())
	ctx := context.Background()

	res, err := f.svc.CheckIn(ctx, "user-1", CheckInInput{
		LocationType: domain.LocationTypeWork,
		LocationID:   "placement-1",
		QRCode:       "QR-ACME-2025",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	f.now = f.now.Add(90 * time.Minute)

	out, err := f.svc.CheckOut(ctx, "user-1", res.CheckInID, nil)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.InDelta(t, 1.5, out.TotalHours, 0.001)

	// A retried checkout of the same record finds it closed and applies
	// nothing further.
	retry, err := f.svc.CheckOut(ctx, "user-1", res.CheckInID, nil)
	require.NoError(t, err)
	require.False(t, retry.Success)
	require.Equal(t, FailureNoOpenSession, retry.Failure)
	require.InDelta(t, 1.5, f.records.completedHours["user-1"], 0.001)
}

func TestCheckOut_WrongRecordID(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement())
	ctx := context.Background()

	res, err := f.svc.CheckIn(ctx, "user-1", CheckInInput{
		LocationType: domain.LocationTypeWork,
		LocationID:   "placement-1",
		QRCode:       "QR-ACME-2025",
	})
	require.NoError(t, err)

	out, err := f.svc.CheckOut(ctx, "user-1", "some-other-id", nil)
	require.NoError(t, err)
	require.False(t, out.Success)
	require.Equal(t, FailureNoOpenSession, out.Failure)

	// The open record is untouched.
	status, err := f.svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, status.IsCheckedIn)
	require.Equal(t, res.CheckInID, status.LastRecord.ID)
}

func TestGetStatus_Idempotent(t *testing.T) {
	t.Parallel()

	f := newAttendanceFixture(t, workPlacement())
	ctx := context.Background()

	_, err := f.svc.CheckIn(ctx, "user-1", CheckInInput{
		LocationType: domain.LocationTypeWork,
		LocationID:   "placement-1",
		QRCode:       "QR-ACME-2025",
	})
	require.NoError(t, err)

	first, err := f.svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	second, err := f.svc.GetStatus(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestHoursRounding(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2.0, round2(2.0))
	require.Equal(t, 1.99, round2(1.987))
	require.Equal(t, 0.08, round2(0.0833333))
	require.Equal(t, 7.26, round2(7.2551))
}

func TestVerifyLocationCode_InactiveLocation(t *testing.T) {
	t.Parallel()

	loc := workPlacement()
	loc.Active = false
	f := newAttendanceFixture(t, loc)

	ok, err := f.svc.VerifyLocationCode(context.Background(), "QR-ACME-2025", "placement-1", domain.LocationTypeWork)
	require.NoError(t, err)
	require.False(t, ok)
}
