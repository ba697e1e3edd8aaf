package services

import (
	"context"
	"errors"
	"log"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/metrics"
	"audit-backend/internal/models"
	"audit-backend/internal/repositories"
	"audit-backend/internal/timeutil"

	"github.com/google/uuid"
)

// CountingService drives a worker's session: start, record bins, end.
type CountingService struct {
	SessionRepo SessionStore
	RecordRepo  RecordStore
	BinRepo     BinStore
	UserRepo    UserStore

	now func() time.Time
}

func NewCountingService(
	sessionRepo SessionStore,
	recordRepo RecordStore,
	binRepo BinStore,
	userRepo UserStore,
) *CountingService {
	return &CountingService{
		SessionRepo: sessionRepo,
		RecordRepo:  recordRepo,
		BinRepo:     binRepo,
		UserRepo:    userRepo,
		now:         timeutil.Now,
	}
}

func (s *CountingService) SetClock(now func() time.Time) {
	s.now = now
}

// Start opens a session for the worker. Fails if one is already active.
func (s *CountingService) Start(ctx context.Context, worker *models.User) (*models.CountingSession, error) {
	if err := requireCounter(worker); err != nil {
		return nil, err
	}

	session := &models.CountingSession{
		ID:        uuid.New(),
		WorkerID:  worker.ID,
		StartTime: s.now(),
		Status:    models.SessionActive,
	}
	created, err := s.SessionRepo.CreateIfNoneActive(ctx, session)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrSessionAlreadyActive
	}

	metrics.Sessions.WithLabelValues("started").Inc()
	log.Printf("[Counting] Session %s started by %s", session.ID, worker.Username)
	return session, nil
}

// RecordCount appends one bin count to the worker's active session and
// returns the record with the updated running totals.
func (s *CountingService) RecordCount(ctx context.Context, worker *models.User, req *models.RecordCountRequest) (*models.CountingRecord, *models.CountingSession, error) {
	if err := requireCounter(worker); err != nil {
		return nil, nil, err
	}
	if err := validateCount(req); err != nil {
		return nil, nil, err
	}

	session, err := s.active(ctx, worker.ID)
	if err != nil {
		return nil, nil, err
	}

	bin, err := s.BinRepo.GetByCode(ctx, req.BinCode)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	if worker.WarehouseName != "" && bin.WarehouseName != worker.WarehouseName {
		return nil, nil, invalid("bin_code", "bin belongs to another warehouse")
	}

	rec := newRecord(session, worker, s.leaderName(ctx, worker), bin, req, s.now())
	updated, err := s.RecordRepo.Append(ctx, rec)
	if errors.Is(err, repositories.ErrNotFound) {
		// session closed between the lookup and the write
		return nil, nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, nil, err
	}

	metrics.BinsCounted.Inc()
	return rec, updated, nil
}

// End closes the active session and writes its efficiency row
func (s *CountingService) End(ctx context.Context, worker *models.User) (*models.EndSessionResponse, error) {
	if err := requireCounter(worker); err != nil {
		return nil, err
	}

	session, err := s.active(ctx, worker.ID)
	if err != nil {
		return nil, err
	}

	end := s.now()
	closed, eff, err := s.SessionRepo.CloseWithEfficiency(ctx, session.ID, end,
		func(closed *models.CountingSession) *models.WorkerEfficiency {
			return buildEfficiency(closed, worker, end)
		})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	metrics.Sessions.WithLabelValues("completed").Inc()
	log.Printf("[Counting] Session %s completed by %s: %d bins, %d qty, %d min, score %d",
		closed.ID, worker.Username, closed.TotalBinsCounted, closed.TotalQtyCounted, eff.TimeTakenMinutes, eff.EfficiencyScore)

	return &models.EndSessionResponse{Session: closed, Efficiency: eff}, nil
}

// Active returns the worker's active session or ErrNoActiveSession
func (s *CountingService) Active(ctx context.Context, worker *models.User) (*models.CountingSession, error) {
	return s.active(ctx, worker.ID)
}

// History lists the worker's sessions, newest first
func (s *CountingService) History(ctx context.Context, worker *models.User) ([]*models.CountingSession, error) {
	return s.SessionRepo.ListByWorker(ctx, worker.ID)
}

// Records lists a session's bin counts for its owner or a supervisor
func (s *CountingService) Records(ctx context.Context, actor *models.User, sessionID uuid.UUID) ([]*models.CountingRecord, error) {
	session, err := s.SessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}

	if session.WorkerID != actor.ID {
		owner, err := s.UserRepo.Get(ctx, session.WorkerID)
		if err != nil {
			return nil, storeErr(err)
		}
		var leader *models.User
		if actor.Role == models.RoleVendor && owner.TeamLeaderID != nil {
			leader, _ = s.UserRepo.Get(ctx, *owner.TeamLeaderID)
		}
		if !auth.CanView(actor, owner, leader) {
			return nil, ErrForbidden
		}
	}

	return s.RecordRepo.ListBySession(ctx, sessionID)
}

func (s *CountingService) active(ctx context.Context, workerID uuid.UUID) (*models.CountingSession, error) {
	session, err := s.SessionRepo.GetActiveByWorker(ctx, workerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	return session, err
}

func (s *CountingService) leaderName(ctx context.Context, worker *models.User) string {
	if worker.TeamLeaderID == nil {
		return ""
	}
	leader, err := s.UserRepo.Get(ctx, *worker.TeamLeaderID)
	if err != nil {
		return ""
	}
	return leader.Name
}

func requireCounter(worker *models.User) error {
	if worker.Role != models.RoleWorker {
		return ErrForbidden
	}
	if !worker.IsApproved {
		return ErrNotApproved
	}
	return nil
}
