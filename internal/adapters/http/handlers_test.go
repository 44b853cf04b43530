package web

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"unisp/internal/adapters/email"
	"unisp/internal/adapters/http/middleware"
	"unisp/internal/adapters/storage"
	auditStore "unisp/internal/adapters/storage/audit"
	foodStore "unisp/internal/adapters/storage/food"
	memberStore "unisp/internal/adapters/storage/member"
	passageStore "unisp/internal/adapters/storage/passage"
	memberDomain "unisp/internal/domain/member"
)

// setupWeb points the package globals at an in-memory database so handlers
// can be exercised directly.
func setupWeb(t *testing.T) (*http.ServeMux, *email.NoopSender) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	stores = &Stores{
		MemberStore:  memberStore.NewSQLiteStore(db),
		PassageStore: passageStore.NewSQLiteStore(db),
		AuditStore:   auditStore.NewSQLiteStore(db),
		FoodStore:    foodStore.NewSQLiteStore(db),
	}
	sessions = middleware.NewSessionStore()
	sender := email.NewNoopSender()
	SetEmailSender(sender, "test@unisp.it", "")

	mux := http.NewServeMux()
	registerRoutes(mux)
	return mux, sender
}

func seedMember(t *testing.T, id, role, status string) memberDomain.Member {
	t.Helper()
	m := memberDomain.Member{
		ID:         id,
		FirstName:  "Test",
		LastName:   id,
		Email:      id + "@test.it",
		FiscalCode: "CF-" + id,
		Role:       role,
		Status:     status,
		ScanCode:   strings.ToUpper(id),
		CreatedAt:  time.Now(),
	}
	if err := stores.MemberStore.Save(t.Context(), m); err != nil {
		t.Fatalf("seed member %s: %v", id, err)
	}
	return m
}

func doRequest(mux *http.ServeMux, method, path, body string, sess *middleware.Session) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req = req.WithContext(middleware.ContextWithSession(req.Context(), *sess))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func staffSession(m memberDomain.Member) *middleware.Session {
	return &middleware.Session{MemberID: m.ID, Email: m.Email, Name: m.FullName(), Role: m.Role}
}

func TestHandleLogin(t *testing.T) {
	mux, _ := setupWeb(t)
	staff := seedMember(t, "staff1", memberDomain.RoleStaff, memberDomain.StatusActive)
	if err := staff.SetPassword("segreto"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := stores.MemberStore.Save(t.Context(), staff); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := doRequest(mux, "POST", "/api/login", `{"email":"staff1@test.it","password":"segreto"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool       `json:"success"`
		Member  memberView `json:"member"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Member.ID != "staff1" {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "unisp_session=") {
		t.Error("login must set the session cookie")
	}

	rec = doRequest(mux, "POST", "/api/login", `{"email":"staff1@test.it","password":"sbagliato"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	mux, _ := setupWeb(t)

	paths := []struct {
		method, path string
	}{
		{"POST", "/api/checkin"},
		{"GET", "/api/members"},
		{"GET", "/api/stats"},
		{"GET", "/api/logs"},
	}
	for _, p := range paths {
		rec := doRequest(mux, p.method, p.path, "{}", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestStaffRoutesRejectVolunteers(t *testing.T) {
	mux, _ := setupWeb(t)
	m := seedMember(t, "vol1", memberDomain.RoleVolunteer, memberDomain.StatusActive)

	rec := doRequest(mux, "GET", "/api/members", "", staffSession(m))
	if rec.Code != http.StatusForbidden {
		t.Errorf("volunteer on staff route status = %d, want 403", rec.Code)
	}
	rec = doRequest(mux, "GET", "/api/logs", "", staffSession(m))
	if rec.Code != http.StatusForbidden {
		t.Errorf("volunteer on admin route status = %d, want 403", rec.Code)
	}
}

func TestHandleCheckInGatesOnScannerAuthorization(t *testing.T) {
	mux, _ := setupWeb(t)
	volunteer := seedMember(t, "vol1", memberDomain.RoleVolunteer, memberDomain.StatusActive)
	guest := seedMember(t, "guest1", memberDomain.RolePassive, memberDomain.StatusActive)

	body := `{"code":"` + guest.ScanCode + `"}`
	rec := doRequest(mux, "POST", "/api/checkin", body, staffSession(volunteer))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unauthorized volunteer status = %d, want 403", rec.Code)
	}

	volunteer.GrantScanAccess(time.Now())
	if err := stores.MemberStore.Save(t.Context(), volunteer); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec = doRequest(mux, "POST", "/api/checkin", body, staffSession(volunteer))
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized volunteer status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Outcome        string `json:"outcome"`
		SequenceNumber int    `json:"sequenceNumber"`
		Message        string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != "accepted" || resp.SequenceNumber != 1 {
		t.Errorf("response = %+v, want accepted with number 1", resp)
	}
	if resp.Message != "Ingresso registrato" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestHandleCheckInUnknownCode(t *testing.T) {
	mux, _ := setupWeb(t)
	staff := seedMember(t, "staff1", memberDomain.RoleStaff, memberDomain.StatusActive)

	rec := doRequest(mux, "POST", "/api/checkin", `{"code":"ZZZZZZ"}`, staffSession(staff))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Outcome string `json:"outcome"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != "unknown_code" || resp.Message != "Codice non riconosciuto" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleUpdateMemberRefreshesSessions(t *testing.T) {
	mux, _ := setupWeb(t)
	staff := seedMember(t, "staff1", memberDomain.RoleStaff, memberDomain.StatusActive)
	target := seedMember(t, "vol1", memberDomain.RoleVolunteer, memberDomain.StatusActive)

	token, err := sessions.Create(target.ID, target.Email, target.FullName(), target.Role)
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}

	rec := doRequest(mux, "PATCH", "/api/members/"+target.ID,
		`{"field":"role","value":"passive"}`, staffSession(staff))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	updated, err := stores.MemberStore.GetByID(t.Context(), target.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.Role != memberDomain.RolePassive {
		t.Errorf("role = %q, want passive", updated.Role)
	}
	sess, ok := sessions.Get(token)
	if !ok {
		t.Fatal("session must survive the role change")
	}
	if sess.Role != memberDomain.RolePassive {
		t.Errorf("session role = %q, want refreshed to passive", sess.Role)
	}
}

func TestHandleUpdateMemberErrors(t *testing.T) {
	mux, _ := setupWeb(t)
	staff := seedMember(t, "staff1", memberDomain.RoleStaff, memberDomain.StatusActive)

	rec := doRequest(mux, "PATCH", "/api/members/ghost",
		`{"field":"role","value":"passive"}`, staffSession(staff))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown member status = %d, want 404", rec.Code)
	}

	target := seedMember(t, "vol1", memberDomain.RoleVolunteer, memberDomain.StatusActive)
	rec = doRequest(mux, "PATCH", "/api/members/"+target.ID,
		`{"field":"shoe_size","value":"42"}`, staffSession(staff))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestHandleAuthorizeAndRevokeVolunteer(t *testing.T) {
	mux, _ := setupWeb(t)
	staff := seedMember(t, "staff1", memberDomain.RoleStaff, memberDomain.StatusActive)
	target := seedMember(t, "vol1", memberDomain.RoleVolunteer, memberDomain.StatusActive)

	rec := doRequest(mux, "POST", "/api/members/"+target.ID+"/authorize", "", staffSession(staff))
	if rec.Code != http.StatusOK {
		t.Fatalf("authorize status = %d, body = %s", rec.Code, rec.Body.String())
	}
	granted, err := stores.MemberStore.GetByID(t.Context(), target.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !granted.IsScannerAuthorized(time.Now()) {
		t.Error("volunteer must be authorized after the grant")
	}

	rec = doRequest(mux, "POST", "/api/members/"+target.ID+"/revoke", "", staffSession(staff))
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke status = %d", rec.Code)
	}
	revoked, err := stores.MemberStore.GetByID(t.Context(), target.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if revoked.IsScannerAuthorized(time.Now()) {
		t.Error("volunteer must lose authorization after the revoke")
	}
}

func TestListMembersOmitsPasswordHash(t *testing.T) {
	mux, _ := setupWeb(t)
	staff := seedMember(t, "staff1", memberDomain.RoleStaff, memberDomain.StatusActive)

	m, err := stores.MemberStore.GetByID(t.Context(), staff.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if err := m.SetPassword("segreto"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := stores.MemberStore.Save(t.Context(), m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := doRequest(mux, "GET", "/api/members", "", staffSession(staff))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "$2a$") || strings.Contains(rec.Body.String(), "passwordHash") {
		t.Error("member listing must never expose credential material")
	}
}
