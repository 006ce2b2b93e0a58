package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// In-memory repository fakes. They mirror the store contracts the services
// rely on, including the conditional writes: the refresh fake's
// RevokeIfActive is a real compare-and-swap and the attendance fake enforces
// the one-open-record guard under its lock.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByIDNumber(_ context.Context, idNumber string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.IDNumber == idNumber {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Role = role
	return nil
}

type fakeRefreshRepo struct {
	mu    sync.Mutex
	creds map[string]*domain.RefreshCredential
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{creds: make(map[string]*domain.RefreshCredential)}
}

func (r *fakeRefreshRepo) Save(_ context.Context, cred *domain.RefreshCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cred
	r.creds[cred.TokenID] = &copied
	return nil
}

func (r *fakeRefreshRepo) GetByID(_ context.Context, tokenID string) (*domain.RefreshCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[tokenID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *cred
	return &copied, nil
}

func (r *fakeRefreshRepo) RevokeIfActive(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[tokenID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if cred.Revoked {
		return false, nil
	}
	cred.Revoked = true
	return true, nil
}

func (r *fakeRefreshRepo) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[tokenID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	return cred.Revoked, nil
}

func (r *fakeRefreshRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, cred := range r.creds {
		if !cred.ExpiresAt.After(now) {
			delete(r.creds, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeAttendanceRepo struct {
	mu             sync.Mutex
	records        map[string]*domain.AttendanceRecord
	completedHours map[string]float64
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{
		records:        make(map[string]*domain.AttendanceRecord),
		completedHours: make(map[string]float64),
	}
}

func (r *fakeAttendanceRepo) CreateOpen(_ context.Context, rec *domain.AttendanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.UserID == rec.UserID && existing.CheckOutTime == nil {
			return repository.ErrOpenRecordExists
		}
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = rec.CheckInTime
	copied := *rec
	r.records[rec.ID] = &copied
	return nil
}

func (r *fakeAttendanceRepo) GetByID(_ context.Context, id string) (*domain.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeAttendanceRepo) GetOpenByUser(_ context.Context, userID string) (*domain.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.UserID == userID && rec.CheckOutTime == nil {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAttendanceRepo) GetLatestByUser(_ context.Context, userID string) (*domain.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.AttendanceRecord
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		if latest == nil || rec.CheckInTime.After(latest.CheckInTime) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeAttendanceRepo) CloseWithHours(_ context.Context, userID, recordID string, checkOut time.Time, totalHours float64, notes *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordID]
	if !ok || rec.UserID != userID || rec.CheckOutTime != nil {
		return false, nil
	}
	rec.CheckOutTime = &checkOut
	rec.TotalHours = &totalHours
	if notes != nil {
		rec.Notes = notes
	}
	r.completedHours[userID] += totalHours
	return true, nil
}

type fakeLocationRepo struct {
	locations map[string]*domain.Location
}

func newFakeLocationRepo(locations ...*domain.Location) *fakeLocationRepo {
	r := &fakeLocationRepo{locations: make(map[string]*domain.Location)}
	for _, loc := range locations {
		r.locations[loc.ID] = loc
	}
	return r
}

func (r *fakeLocationRepo) GetByID(_ context.Context, id string) (*domain.Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *loc
	return &copied, nil
}

type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
