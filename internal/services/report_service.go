package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/models"
	"audit-backend/internal/timeutil"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf/v2"
	"golang.org/x/sync/errgroup"
)

// ArchiveStore receives exported report files
type ArchiveStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type ReportService struct {
	RecordRepo     RecordStore
	EfficiencyRepo EfficiencyStore
	SessionRepo    SessionStore
	BinRepo        BinStore
	Users          *UserService

	archive ArchiveStore
	now     func() time.Time
}

func NewReportService(
	recordRepo RecordStore,
	efficiencyRepo EfficiencyStore,
	sessionRepo SessionStore,
	binRepo BinStore,
	users *UserService,
) *ReportService {
	return &ReportService{
		RecordRepo:     recordRepo,
		EfficiencyRepo: efficiencyRepo,
		SessionRepo:    sessionRepo,
		BinRepo:        binRepo,
		Users:          users,
		now:            timeutil.Now,
	}
}

// SetArchive enables ArchiveDaily
func (s *ReportService) SetArchive(a ArchiveStore) {
	s.archive = a
}

func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

// scopeWarehouse pins everyone except admins to their own warehouse
func scopeWarehouse(actor *models.User, requested string) string {
	if actor.Role == models.RoleAdmin {
		return requested
	}
	return actor.WarehouseName
}

// Leaderboard lists a day's efficiency rows by score. The stored ranking
// column is returned as written.
func (s *ReportService) Leaderboard(ctx context.Context, actor *models.User, warehouse string, date time.Time) ([]*models.WorkerEfficiency, error) {
	return s.EfficiencyRepo.ListByWarehouseDate(ctx, scopeWarehouse(actor, warehouse), timeutil.StartOfDay(date))
}

var csvHeader = []string{
	"Warehouse", "Date", "Team Leader", "Username", "Bin No",
	"Qty Counted", "Qty Recounted", "Qty As Per Books", "Difference", "Reason",
}

// RecordsCSV exports one day's counting records
func (s *ReportService) RecordsCSV(ctx context.Context, actor *models.User, warehouse string, date time.Time) ([]byte, error) {
	if actor.Role == models.RoleWorker {
		return nil, ErrForbidden
	}
	records, err := s.RecordRepo.ListByWarehouseDate(ctx, scopeWarehouse(actor, warehouse), timeutil.StartOfDay(date))
	if err != nil {
		return nil, err
	}
	return recordsToCSV(records)
}

func recordsToCSV(records []*models.CountingRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		recounted := ""
		if r.QtyRecounted != nil {
			recounted = strconv.Itoa(*r.QtyRecounted)
		}
		row := []string{
			r.WarehouseName,
			timeutil.FormatDate(r.Date),
			r.TeamLeaderName,
			r.Username,
			r.BinNo,
			strconv.Itoa(r.QtyCounted),
			recounted,
			strconv.Itoa(r.QtyAsPerBooks),
			strconv.Itoa(r.Difference),
			r.ReasonForDifference,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// SessionPDF renders a printable audit sheet for one session
func (s *ReportService) SessionPDF(ctx context.Context, actor *models.User, sessionID uuid.UUID) ([]byte, error) {
	session, err := s.SessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	worker, err := s.Users.Repo.Get(ctx, session.WorkerID)
	if err != nil {
		return nil, storeErr(err)
	}
	var leader *models.User
	if worker.TeamLeaderID != nil {
		leader, _ = s.Users.Repo.Get(ctx, *worker.TeamLeaderID)
	}
	if !auth.CanView(actor, worker, leader) {
		return nil, ErrForbidden
	}

	records, err := s.RecordRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var eff *models.WorkerEfficiency
	if session.Status == models.SessionCompleted {
		eff, _ = s.EfficiencyRepo.GetBySession(ctx, sessionID)
	}

	return renderSessionPDF(session, worker, leader, records, eff, s.now())
}

func renderSessionPDF(session *models.CountingSession, worker, leader *models.User, records []*models.CountingRecord, eff *models.WorkerEfficiency, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Inventory Audit - Counting Session", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", generated.In(timeutil.Location).Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Session", "1", 1, "L", true, 0, "")

	leaderName := "-"
	if leader != nil {
		leaderName = leader.Name
	}
	ended := "in progress"
	if session.EndTime != nil {
		ended = session.EndTime.In(timeutil.Location).Format(timeutil.DisplayLayout)
	}

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Worker: %s (%s)", worker.Name, worker.Username), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Team Leader: %s", leaderName), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Warehouse: %s", worker.WarehouseName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Status: %s", session.Status), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Started: %s", session.StartTime.In(timeutil.Location).Format(timeutil.DisplayLayout)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Ended: %s", ended), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Bin Counts", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(35, 7, "Bin No", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Counted", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Books", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Difference", "1", 0, "C", true, 0, "")
	pdf.CellFormat(65, 7, "Reason", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, r := range records {
		reason := truncateRunes(r.ReasonForDifference, 35)
		pdf.CellFormat(35, 6, r.BinNo, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(r.QtyCounted), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(r.QtyAsPerBooks), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, strconv.Itoa(r.Difference), "1", 0, "R", false, 0, "")
		pdf.CellFormat(65, 6, reason, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Bins: %d", session.TotalBinsCounted), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Quantity: %d", session.TotalQtyCounted), "1", 0, "C", false, 0, "")
	if eff != nil {
		pdf.CellFormat(64, 8, fmt.Sprintf("Score: %d (%d min)", eff.EfficiencyScore, eff.TimeTakenMinutes), "1", 1, "C", false, 0, "")
	} else {
		pdf.CellFormat(64, 8, "Score: pending", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ArchiveDaily uploads the day's CSV and returns the object key
func (s *ReportService) ArchiveDaily(ctx context.Context, actor *models.User, warehouse string, date time.Time) (string, error) {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleVendor {
		return "", ErrForbidden
	}
	if s.archive == nil {
		return "", ErrStorageDisabled
	}

	warehouse = scopeWarehouse(actor, warehouse)
	data, err := s.RecordsCSV(ctx, actor, warehouse, date)
	if err != nil {
		return "", err
	}

	scope := warehouse
	if scope == "" {
		scope = "all"
	}
	key := fmt.Sprintf("reports/%s/%s/records.csv", scope, timeutil.FormatDate(date))
	if err := s.archive.Put(ctx, key, data, "text/csv"); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Printf("[Reports] Archived %s (%d bytes)", key, len(data))
	return key, nil
}

// Overview loads the dashboard counters concurrently
func (s *ReportService) Overview(ctx context.Context, actor *models.User) (*models.Overview, error) {
	var out models.Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if actor.Role == models.RoleWorker {
			return nil
		}
		pending, err := s.Users.ListPending(gctx, actor)
		out.PendingApprovals = len(pending)
		return err
	})
	g.Go(func() error {
		n, err := s.SessionRepo.CountActive(gctx)
		out.ActiveSessions = n
		return err
	})
	g.Go(func() error {
		n, err := s.BinRepo.Count(gctx)
		out.BinsRegistered = n
		return err
	})
	g.Go(func() error {
		n, err := s.RecordRepo.CountOnDate(gctx, timeutil.StartOfDay(s.now()))
		out.RecordsToday = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// truncateRunes shortens s to at most limit runes, ending in "..." when cut
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
