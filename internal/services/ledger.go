package services

import (
	"strings"
	"time"

	"audit-backend/internal/models"
	"audit-backend/internal/timeutil"
)

// newRecord builds the ledger row for one bin count. Difference is only
// meaningful when the caller supplied a book quantity; otherwise both stay 0.
func newRecord(session *models.CountingSession, worker *models.User, leaderName string, bin *models.Bin, req *models.RecordCountRequest, at time.Time) *models.CountingRecord {
	rec := &models.CountingRecord{
		SessionID:           session.ID,
		WarehouseName:       worker.WarehouseName,
		Date:                timeutil.StartOfDay(at),
		TeamLeaderName:      leaderName,
		Username:            worker.Username,
		BinNo:               bin.BinCode,
		QtyCounted:          *req.Qty,
		ReasonForDifference: strings.TrimSpace(req.ReasonForDifference),
	}
	if rec.WarehouseName == "" {
		rec.WarehouseName = bin.WarehouseName
	}
	if req.QtyAsPerBooks != nil {
		rec.QtyAsPerBooks = *req.QtyAsPerBooks
		rec.Difference = rec.QtyCounted - rec.QtyAsPerBooks
	}
	return rec
}

func validateCount(req *models.RecordCountRequest) error {
	if req == nil {
		return invalid("body", "request body required")
	}
	req.BinCode = strings.TrimSpace(req.BinCode)
	if req.BinCode == "" {
		return invalid("bin_code", "bin code is required")
	}
	if req.Qty == nil {
		return invalid("qty", "quantity is required")
	}
	if *req.Qty < 0 {
		return invalid("qty", "quantity must be a non-negative integer")
	}
	if req.QtyAsPerBooks != nil && *req.QtyAsPerBooks < 0 {
		return invalid("qty_as_per_books", "book quantity must be a non-negative integer")
	}
	return nil
}
