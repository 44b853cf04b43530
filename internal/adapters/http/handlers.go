package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"unisp/internal/adapters/http/middleware"
	"unisp/internal/application/orchestrators"
	"unisp/internal/application/projections"
	"unisp/internal/domain/audit"
	memberDomain "unisp/internal/domain/member"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_failed", "error", err)
	}
}

// currentOperator maps the request session onto an audit operator.
func currentOperator(r *http.Request) orchestrators.Operator {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		return orchestrators.Operator{}
	}
	return orchestrators.Operator{ID: sess.MemberID, Name: sess.Name}
}

func registerRoutes(mux *http.ServeMux) {
	staffOnly := middleware.RequireRole(memberDomain.RoleStaff, memberDomain.RoleAdmin)
	adminOnly := middleware.RequireRole(memberDomain.RoleAdmin)

	mux.HandleFunc("POST /api/login", handleLogin)
	mux.HandleFunc("POST /api/logout", handleLogout)

	mux.Handle("POST /api/checkin", middleware.RequireAuth(http.HandlerFunc(handleCheckIn)))
	mux.Handle("GET /api/passages/today", middleware.RequireAuth(http.HandlerFunc(handlePassagesToday)))

	mux.Handle("GET /api/members", staffOnly(http.HandlerFunc(handleListMembers)))
	mux.Handle("PATCH /api/members/{id}", staffOnly(http.HandlerFunc(handleUpdateMember)))
	mux.Handle("POST /api/members/{id}/authorize", staffOnly(http.HandlerFunc(handleAuthorizeVolunteer)))
	mux.Handle("POST /api/members/{id}/revoke", staffOnly(http.HandlerFunc(handleRevokeVolunteer)))

	mux.Handle("POST /api/import-members", staffOnly(http.HandlerFunc(handleImportMembers)))
	mux.Handle("POST /api/import-food", staffOnly(http.HandlerFunc(handleImportFood)))

	mux.Handle("POST /api/send-bulk-qr", staffOnly(http.HandlerFunc(handleSendBulkQR)))
	mux.Handle("POST /api/send-single-qr", staffOnly(http.HandlerFunc(handleSendSingleQR)))
	mux.Handle("POST /api/notify-absence", staffOnly(http.HandlerFunc(handleNotifyAbsence)))
	mux.Handle("POST /api/notify-entry", staffOnly(http.HandlerFunc(handleNotifyEntry)))

	mux.Handle("GET /api/stats", staffOnly(http.HandlerFunc(handleStats)))
	mux.Handle("GET /api/logs", adminOnly(http.HandlerFunc(handleExportLogs)))
}

// memberView is the member representation returned by the API. It never
// carries the password hash.
type memberView struct {
	ID                string     `json:"id"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	FiscalCode        string     `json:"fiscalCode"`
	Role              string     `json:"role"`
	Status            string     `json:"status"`
	ScanCode          string     `json:"scanCode"`
	AuthScanActive    bool       `json:"authScanActive"`
	AuthScanExpiresAt *time.Time `json:"authScanExpiresAt,omitempty"`
	MailSent          bool       `json:"mailSent"`
	CourseName        string     `json:"courseName,omitempty"`
	CourseYear        string     `json:"courseYear,omitempty"`
	StudentNumber     string     `json:"studentNumber,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func toMemberView(m memberDomain.Member) memberView {
	v := memberView{
		ID:             m.ID,
		FirstName:      m.FirstName,
		LastName:       m.LastName,
		Email:          m.Email,
		Phone:          m.Phone,
		FiscalCode:     m.FiscalCode,
		Role:           m.Role,
		Status:         m.Status,
		ScanCode:       m.ScanCode,
		AuthScanActive: m.AuthScanActive,
		MailSent:       m.MailSent,
		CourseName:     m.CourseName,
		CourseYear:     m.CourseYear,
		StudentNumber:  m.StudentNumber,
		CreatedAt:      m.CreatedAt,
	}
	if !m.AuthScanExpiresAt.IsZero() {
		t := m.AuthScanExpiresAt
		v.AuthScanExpiresAt = &t
	}
	return v
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		MemberStore: stores.MemberStore,
		AuditStore:  stores.AuditStore,
	})
	if err == orchestrators.ErrInvalidCredentials {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	token, err := sessions.Create(m.ID, m.Email, m.FullName(), m.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"member":  toMemberView(m),
	})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		sessions.Delete(token)
	}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		entry := audit.NewEntry(audit.ActionLogout, sess.MemberID, sess.Name).WithDetails("logged out")
		if err := stores.AuditStore.Append(r.Context(), entry); err != nil {
			slog.Error("audit_append_failed", "action", entry.Action, "error", err)
		}
	}
	middleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// checkInMessages are the scanner screen texts per outcome.
var checkInMessages = map[string]string{
	orchestrators.OutcomeAccepted:         "Ingresso registrato",
	orchestrators.OutcomeAlreadyCheckedIn: "Ingresso già registrato oggi",
	orchestrators.OutcomeBlocked:          "Account non attivo",
	orchestrators.OutcomeUnknownCode:      "Codice non riconosciuto",
}

func handleCheckIn(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())

	// The gate decision must see the directory record, not the login-time
	// snapshot: a revoke takes effect on the very next scan.
	operator, err := stores.MemberStore.GetByID(r.Context(), sess.MemberID)
	if err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if !orchestrators.CanOperateScanner(operator, timeNow()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteCheckIn(r.Context(), orchestrators.CheckInInput{
		Code: req.Code,
		Now:  timeNow(),
	}, orchestrators.CheckInDeps{
		MemberStore:  stores.MemberStore,
		PassageStore: stores.PassageStore,
		AuditStore:   stores.AuditStore,
		Sender:       emailSender,
		Operator:     orchestrators.Operator{ID: operator.ID, Name: operator.FullName()},
	})
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":        result.Outcome,
		"sequenceNumber": result.SequenceNumber,
		"name":           result.MemberName,
		"status":         result.MemberStatus,
		"message":        checkInMessages[result.Outcome],
	})
}

func handlePassagesToday(w http.ResponseWriter, r *http.Request) {
	rows, err := projections.QueryGetPassagesToday(r.Context(), timeNow(), projections.PassagesTodayDeps{
		PassageStore: stores.PassageStore,
		MemberStore:  stores.MemberStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
