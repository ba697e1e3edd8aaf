package services

import (
	"math"
	"time"

	"audit-backend/internal/models"
	"audit-backend/internal/timeutil"
)

// MaxEfficiencyScore caps the bins-per-hour score
const MaxEfficiencyScore = 100

// Score is bins counted per hour, rounded and capped at 100. Elapsed time
// below one minute counts as one minute.
func Score(binsCounted, minutesElapsed int) int {
	if binsCounted <= 0 {
		return 0
	}
	minutes := minutesElapsed
	if minutes < 1 {
		minutes = 1
	}
	score := int(math.Round(float64(binsCounted) / float64(minutes) * 60))
	if score > MaxEfficiencyScore {
		return MaxEfficiencyScore
	}
	return score
}

// ElapsedMinutes rounds end-start to whole minutes
func ElapsedMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(math.Round(end.Sub(start).Minutes()))
}

// buildEfficiency derives the efficiency row for a just-closed session.
// Ranking is written as 1 and never recomputed against other workers.
func buildEfficiency(session *models.CountingSession, worker *models.User, end time.Time) *models.WorkerEfficiency {
	minutes := ElapsedMinutes(session.StartTime, end)
	return &models.WorkerEfficiency{
		SessionID:        session.ID,
		WarehouseName:    worker.WarehouseName,
		Date:             timeutil.StartOfDay(end),
		Username:         worker.Username,
		BinsCounted:      session.TotalBinsCounted,
		QtyCounted:       session.TotalQtyCounted,
		TimeTakenMinutes: minutes,
		EfficiencyScore:  Score(session.TotalBinsCounted, minutes),
		Ranking:          1,
	}
}
