package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"unisp/internal/application/orchestrators"
	"unisp/internal/domain/audit"
)

// bulkDrainTimeout bounds the background dispatch that follows an import.
// A full mailing of a large sheet takes minutes at the paced send rate.
const bulkDrainTimeout = 30 * time.Minute

func handleImportMembers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []orchestrators.RawRow `json:"rows"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	op := currentOperator(r)
	result, err := orchestrators.ExecuteImportMembers(r.Context(), orchestrators.ImportMembersInput{
		Rows: req.Rows,
	}, orchestrators.ImportMembersDeps{
		MemberStore: stores.MemberStore,
		AuditStore:  stores.AuditStore,
		Operator:    op,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	// New members need their QR credential. The drain runs detached so the
	// import response returns immediately.
	if result.Imported > 0 {
		go drainBulkQueue(op)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"imported": result.Imported,
		"skipped":  result.Skipped,
	})
}

// drainBulkQueue runs dispatcher batches until the queue is empty,
// recording trigger, completion and failure in the audit log.
func drainBulkQueue(op orchestrators.Operator) {
	ctx, cancel := context.WithTimeout(context.Background(), bulkDrainTimeout)
	defer cancel()

	appendDispatchAudit(ctx, op, audit.ActionEmailAutoTrigger, "bulk QR dispatch started after import")

	totalSent, totalFailed := 0, 0
	for {
		result, err := orchestrators.ExecuteSendBulkQR(ctx, orchestrators.SendBulkQRInput{}, orchestrators.SendBulkQRDeps{
			MemberStore: stores.MemberStore,
			Sender:      emailSender,
		})
		if err != nil {
			slog.Error("bulk_qr_event", "event", "drain_failed", "error", err)
			appendDispatchAudit(ctx, op, audit.ActionEmailAutoError, err.Error())
			return
		}
		totalSent += result.Sent
		totalFailed += result.Failed
		if result.Finished {
			break
		}
	}

	appendDispatchAudit(ctx, op, audit.ActionEmailAutoSent,
		fmt.Sprintf("sent %d, failed %d", totalSent, totalFailed))
}

func appendDispatchAudit(ctx context.Context, op orchestrators.Operator, action, details string) {
	operatorID, operatorName := audit.SystemOperator, audit.SystemOperator
	if op.ID != "" {
		operatorID, operatorName = op.ID, op.Name
	}
	entry := audit.NewEntry(action, operatorID, operatorName).WithDetails(details)
	if err := stores.AuditStore.Append(ctx, entry); err != nil {
		slog.Error("audit_append_failed", "action", action, "error", err)
	}
}

func handleImportFood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rows []orchestrators.FoodRow `json:"rows"`
		Date string                  `json:"date"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteImportFood(r.Context(), orchestrators.ImportFoodInput{
		Rows: req.Rows,
		Date: req.Date,
	}, orchestrators.ImportFoodDeps{
		FoodStore: stores.FoodStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"imported": result.Imported,
		"rejected": result.Rejected,
	})
}
