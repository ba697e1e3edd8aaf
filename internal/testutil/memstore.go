// Package testutil holds in-memory stand-ins for the PostgreSQL repositories.
// They honour the same conditional-write contracts so service tests exercise
// the real state transitions.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"audit-backend/internal/models"
	"audit-backend/internal/repositories"

	"github.com/google/uuid"
)

// Store implements every services store interface over maps
type Store struct {
	mu sync.Mutex

	users      map[uuid.UUID]*models.User
	bins       map[string]*models.Bin
	otps       map[uuid.UUID]*models.OTPRequest
	sessions   map[uuid.UUID]*models.CountingSession
	records    []*models.CountingRecord
	efficiency map[uuid.UUID]*models.WorkerEfficiency
	attempts   []totpAttempt
	logins     []*models.LoginLog

	efficiencyErr error

	// Clock stamps created_at; defaults to time.Now
	Clock func() time.Time
}

type totpAttempt struct {
	userID  uuid.UUID
	success bool
	at      time.Time
}

func NewStore() *Store {
	return &Store{
		users:      make(map[uuid.UUID]*models.User),
		bins:       make(map[string]*models.Bin),
		otps:       make(map[uuid.UUID]*models.OTPRequest),
		sessions:   make(map[uuid.UUID]*models.CountingSession),
		efficiency: make(map[uuid.UUID]*models.WorkerEfficiency),
		Clock:      time.Now,
	}
}

// Users, Bins, OTPs, Sessions, Records, Efficiency and TOTP expose the store
// under each interface's method set, since several share method names.
func (s *Store) Users() *UserStore               { return &UserStore{s} }
func (s *Store) Bins() *BinStore                 { return &BinStore{s} }
func (s *Store) OTPs() *OTPStore                 { return &OTPStore{s} }
func (s *Store) Sessions() *SessionStore         { return &SessionStore{s} }
func (s *Store) Records() *RecordStore           { return &RecordStore{s} }
func (s *Store) Efficiency() *EfficiencyStore    { return &EfficiencyStore{s} }
func (s *Store) TOTPAttempts() *TOTPAttemptStore { return &TOTPAttemptStore{s} }
func (s *Store) LoginLogs() *LoginLogStore       { return &LoginLogStore{s} }

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// ---- users ----

type UserStore struct{ s *Store }

func (u *UserStore) Create(ctx context.Context, user *models.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return repositories.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = s.Clock()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (u *UserStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			cp := *user
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (u *UserStore) List(ctx context.Context, f models.UserFilter) ([]*models.User, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.User
	for _, user := range s.users {
		if f.Role != "" && user.Role != f.Role {
			continue
		}
		if f.VendorID != nil && (user.VendorID == nil || *user.VendorID != *f.VendorID) {
			continue
		}
		if f.TeamLeaderID != nil && (user.TeamLeaderID == nil || *user.TeamLeaderID != *f.TeamLeaderID) {
			continue
		}
		if f.Approved != nil && user.IsApproved != *f.Approved {
			continue
		}
		cp := *user
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (u *UserStore) SetApproval(ctx context.Context, id uuid.UUID, approved bool) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.IsApproved = approved
	return nil
}

func (u *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	// same foreign keys as the users and counting_sessions tables
	for _, other := range s.users {
		if (other.VendorID != nil && *other.VendorID == id) || (other.TeamLeaderID != nil && *other.TeamLeaderID == id) {
			return repositories.ErrReferenced
		}
	}
	for _, session := range s.sessions {
		if session.WorkerID == id {
			return repositories.ErrReferenced
		}
	}
	delete(s.users, id)
	return nil
}

func (u *UserStore) SetTOTP(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.TOTPSecret = secret
	user.TOTPEnabled = enabled
	return nil
}

func (u *UserStore) CountByRole(ctx context.Context, role string) (int, error) {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, user := range s.users {
		if user.Role == role {
			n++
		}
	}
	return n, nil
}

// ---- bins ----

type BinStore struct{ s *Store }

func (b *BinStore) Upsert(ctx context.Context, bin *models.Bin) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bins[bin.BinCode]; ok {
		existing.WarehouseName = bin.WarehouseName
		existing.Location = bin.Location
		bin.ID = existing.ID
		bin.CreatedAt = existing.CreatedAt
		return nil
	}
	if bin.ID == uuid.Nil {
		bin.ID = uuid.New()
	}
	bin.CreatedAt = s.Clock()
	cp := *bin
	s.bins[bin.BinCode] = &cp
	return nil
}

func (b *BinStore) GetByCode(ctx context.Context, code string) (*models.Bin, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	bin, ok := s.bins[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *bin
	return &cp, nil
}

func (b *BinStore) ListByWarehouse(ctx context.Context, warehouse string) ([]*models.Bin, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Bin
	for _, bin := range s.bins {
		if warehouse == "" || bin.WarehouseName == warehouse {
			cp := *bin
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BinCode < out[j].BinCode })
	return out, nil
}

func (b *BinStore) Count(ctx context.Context) (int, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bins), nil
}

// ---- OTP requests ----

type OTPStore struct{ s *Store }

func (o *OTPStore) Create(ctx context.Context, otp *models.OTPRequest) error {
	s := o.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if otp.ID == uuid.Nil {
		otp.ID = uuid.New()
	}
	otp.CreatedAt = s.Clock()
	cp := *otp
	s.otps[otp.ID] = &cp
	return nil
}

func (o *OTPStore) FetchEligible(ctx context.Context, workerID uuid.UUID, code string, now time.Time) (*models.OTPRequest, error) {
	s := o.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.OTPRequest
	for _, otp := range s.otps {
		if otp.WorkerID != workerID || otp.OTPCode != code || otp.IsUsed || !otp.ExpiresAt.After(now) {
			continue
		}
		if best == nil || otp.CreatedAt.After(best.CreatedAt) {
			best = otp
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (o *OTPStore) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	s := o.s
	s.mu.Lock()
	defer s.mu.Unlock()
	otp, ok := s.otps[id]
	if !ok || otp.IsUsed {
		return false, nil
	}
	otp.IsUsed = true
	return true, nil
}

func (o *OTPStore) ListOutstanding(ctx context.Context, teamLeaderID uuid.UUID, now time.Time) ([]*models.OutstandingOTP, error) {
	s := o.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.OutstandingOTP
	for _, otp := range s.otps {
		if otp.TeamLeaderID != teamLeaderID || otp.IsUsed || !otp.ExpiresAt.After(now) {
			continue
		}
		name := ""
		if w, ok := s.users[otp.WorkerID]; ok {
			name = w.Name
		}
		out = append(out, &models.OutstandingOTP{
			ID:         otp.ID,
			WorkerID:   otp.WorkerID,
			WorkerName: name,
			OTPCode:    otp.OTPCode,
			ExpiresAt:  otp.ExpiresAt,
			CreatedAt:  otp.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// OTP returns a stored request by id, for assertions
func (s *Store) OTP(id uuid.UUID) (*models.OTPRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	otp, ok := s.otps[id]
	if !ok {
		return nil, false
	}
	cp := *otp
	return &cp, true
}

// ---- sessions ----

type SessionStore struct{ s *Store }

func (ss *SessionStore) CreateIfNoneActive(ctx context.Context, session *models.CountingSession) (bool, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.WorkerID == session.WorkerID && existing.Status == models.SessionActive {
			return false, nil
		}
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.Status = models.SessionActive
	session.TotalBinsCounted = 0
	session.TotalQtyCounted = 0
	session.CreatedAt = s.Clock()
	cp := *session
	s.sessions[session.ID] = &cp
	return true, nil
}

func (ss *SessionStore) Get(ctx context.Context, id uuid.UUID) (*models.CountingSession, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (ss *SessionStore) GetActiveByWorker(ctx context.Context, workerID uuid.UUID) (*models.CountingSession, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.WorkerID == workerID && session.Status == models.SessionActive {
			cp := *session
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// CloseWithEfficiency mirrors the repository transaction: nothing changes
// unless both the close and the efficiency insert succeed.
func (ss *SessionStore) CloseWithEfficiency(
	ctx context.Context,
	id uuid.UUID,
	end time.Time,
	build func(*models.CountingSession) *models.WorkerEfficiency,
) (*models.CountingSession, *models.WorkerEfficiency, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.Status != models.SessionActive {
		return nil, nil, repositories.ErrNotFound
	}

	closed := *session
	closed.Status = models.SessionCompleted
	closed.EndTime = &end

	eff := build(&closed)
	if s.efficiencyErr != nil {
		return nil, nil, s.efficiencyErr
	}
	if _, exists := s.efficiency[eff.SessionID]; exists {
		return nil, nil, repositories.ErrDuplicate
	}
	if eff.ID == uuid.Nil {
		eff.ID = uuid.New()
	}
	eff.CreatedAt = s.Clock()

	*session = closed
	stored := *eff
	s.efficiency[eff.SessionID] = &stored
	cp := closed
	return &cp, eff, nil
}

func (ss *SessionStore) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.CountingSession, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CountingSession
	for _, session := range s.sessions {
		if session.WorkerID == workerID {
			cp := *session
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (ss *SessionStore) CountActive(ctx context.Context) (int, error) {
	s := ss.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, session := range s.sessions {
		if session.Status == models.SessionActive {
			n++
		}
	}
	return n, nil
}

// ---- records ----

type RecordStore struct{ s *Store }

func (r *RecordStore) Append(ctx context.Context, rec *models.CountingRecord) (*models.CountingSession, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[rec.SessionID]
	if !ok || session.Status != models.SessionActive {
		return nil, repositories.ErrNotFound
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = s.Clock()
	cp := *rec
	s.records = append(s.records, &cp)
	session.TotalBinsCounted++
	session.TotalQtyCounted += rec.QtyCounted
	out := *session
	return &out, nil
}

func (r *RecordStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.CountingRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CountingRecord
	for _, rec := range s.records {
		if rec.SessionID == sessionID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *RecordStore) ListByWarehouseDate(ctx context.Context, warehouse string, date time.Time) ([]*models.CountingRecord, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CountingRecord
	for _, rec := range s.records {
		if (warehouse == "" || rec.WarehouseName == warehouse) && sameDay(date, rec.Date) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *RecordStore) CountOnDate(ctx context.Context, date time.Time) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if sameDay(date, rec.Date) {
			n++
		}
	}
	return n, nil
}

// ---- efficiency ----

type EfficiencyStore struct{ s *Store }

func (e *EfficiencyStore) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.WorkerEfficiency, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	eff, ok := s.efficiency[sessionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *eff
	return &cp, nil
}

func (e *EfficiencyStore) ListByWarehouseDate(ctx context.Context, warehouse string, date time.Time) ([]*models.WorkerEfficiency, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.WorkerEfficiency
	for _, eff := range s.efficiency {
		if (warehouse == "" || eff.WarehouseName == warehouse) && sameDay(date, eff.Date) {
			cp := *eff
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EfficiencyScore > out[j].EfficiencyScore })
	return out, nil
}

// FailEfficiencyWrites makes every efficiency insert return err until it is
// called again with nil.
func (s *Store) FailEfficiencyWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.efficiencyErr = err
}

// EfficiencyCount reports how many efficiency rows exist
func (s *Store) EfficiencyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.efficiency)
}

// ---- TOTP attempts ----

type TOTPAttemptStore struct{ s *Store }

func (t *TOTPAttemptStore) LogAttempt(ctx context.Context, userID uuid.UUID, ipAddress string, success bool) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, totpAttempt{userID: userID, success: success, at: s.Clock()})
	return nil
}

func (t *TOTPAttemptStore) RecentFailures(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attempts {
		if a.userID == userID && !a.success && a.at.After(since) {
			n++
		}
	}
	return n, nil
}

// ---- login logs ----

type LoginLogStore struct{ s *Store }

func (l *LoginLogStore) Record(ctx context.Context, userID uuid.UUID, ipAddress, userAgent string) error {
	s := l.s
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	s.logins = append(s.logins, &models.LoginLog{
		ID:        int64(len(s.logins) + 1),
		UserID:    userID,
		UserName:  user.Name,
		Email:     user.Email,
		Role:      user.Role,
		LoginTime: s.Clock(),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	return nil
}

func (l *LoginLogStore) ListRecent(ctx context.Context, limit int) ([]*models.LoginLog, error) {
	s := l.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.LoginLog
	for i := len(s.logins) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.logins[i]
		out = append(out, &cp)
	}
	return out, nil
}
