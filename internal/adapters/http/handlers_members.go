package web

import (
	"errors"
	"net/http"

	memberStore "unisp/internal/adapters/storage/member"
	"unisp/internal/application/orchestrators"
	memberDomain "unisp/internal/domain/member"
)

func handleListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	members, err := stores.MemberStore.List(r.Context(), memberStore.ListFilter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
		Search: q.Get("search"),
	})
	if err != nil {
		internalError(w, err)
		return
	}

	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, toMemberView(m))
	}
	writeJSON(w, http.StatusOK, views)
}

func handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := orchestrators.ExecuteUpdateMember(r.Context(), orchestrators.UpdateMemberInput{
		MemberID: r.PathValue("id"),
		Field:    req.Field,
		Value:    req.Value,
	}, orchestrators.UpdateMemberDeps{
		MemberStore: stores.MemberStore,
		AuditStore:  stores.AuditStore,
		Operator:    currentOperator(r),
	})
	if errors.Is(err, memberDomain.ErrNotFound) {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, orchestrators.ErrUnknownField) {
		http.Error(w, "unknown field", http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	// Stale sessions must not keep a role the directory no longer grants.
	if req.Field == "role" || req.Field == "status" {
		sessions.RefreshRole(m.ID, m.Role)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"member":  toMemberView(m),
	})
}

func handleAuthorizeVolunteer(w http.ResponseWriter, r *http.Request) {
	m, err := orchestrators.ExecuteGrantScanAccess(r.Context(), orchestrators.ScanAccessInput{
		MemberID: r.PathValue("id"),
		Now:      timeNow(),
	}, scanAccessDeps(r))
	if errors.Is(err, memberDomain.ErrNotFound) {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"member":  toMemberView(m),
	})
}

func handleRevokeVolunteer(w http.ResponseWriter, r *http.Request) {
	m, err := orchestrators.ExecuteRevokeScanAccess(r.Context(), orchestrators.ScanAccessInput{
		MemberID: r.PathValue("id"),
	}, scanAccessDeps(r))
	if errors.Is(err, memberDomain.ErrNotFound) {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"member":  toMemberView(m),
	})
}

func scanAccessDeps(r *http.Request) orchestrators.ScanAccessDeps {
	return orchestrators.ScanAccessDeps{
		MemberStore: stores.MemberStore,
		AuditStore:  stores.AuditStore,
		Operator:    currentOperator(r),
	}
}
