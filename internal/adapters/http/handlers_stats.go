package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"unisp/internal/application/orchestrators"
	"unisp/internal/application/projections"
)

func handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := projections.QueryGetStats(r.Context(), projections.StatsDeps{
		PassageStore: stores.PassageStore,
		MemberStore:  stores.MemberStore,
		FoodStore:    stores.FoodStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	// The escalation pass doubles as the at-risk report: viewing the stats
	// is what applies the policy, exactly as the old dashboard did.
	evaluation, err := orchestrators.ExecuteEvaluateAbsences(r.Context(), orchestrators.EvaluateAbsencesDeps{
		MemberStore:  stores.MemberStore,
		PassageStore: stores.PassageStore,
		AuditStore:   stores.AuditStore,
		Sender:       emailSender,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trend":        stats.Trend,
		"statuses":     stats.Statuses,
		"topProducts":  stats.TopProducts,
		"atRisk":       evaluation.AtRisk,
		"activityDays": evaluation.TotalActivityDays,
	})
}

func handleExportLogs(w http.ResponseWriter, r *http.Request) {
	now := timeNow()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			http.Error(w, "invalid month", http.StatusBadRequest)
			return
		}
		month = n
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)

	entries, err := stores.AuditStore.ListByRange(r.Context(), from, to)
	if err != nil {
		internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=registro-%04d-%02d.txt", year, month))

	fmt.Fprintf(w, "Registro operazioni UNISP %04d-%02d\n\n", year, month)
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-20s  %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.OperatorName)
		if e.TargetName != "" {
			line += " -> " + e.TargetName
		}
		if e.Details != "" {
			line += "  (" + e.Details + ")"
		}
		fmt.Fprintln(w, line)
	}
}
