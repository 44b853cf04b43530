package web

import (
	"errors"
	"net/http"
	"strings"

	"unisp/internal/adapters/email"
	"unisp/internal/application/orchestrators"
	memberDomain "unisp/internal/domain/member"
)

func handleSendBulkQR(w http.ResponseWriter, r *http.Request) {
	result, err := orchestrators.ExecuteSendBulkQR(r.Context(), orchestrators.SendBulkQRInput{},
		orchestrators.SendBulkQRDeps{
			MemberStore: stores.MemberStore,
			Sender:      emailSender,
		})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"finished": result.Finished,
		"count":    result.Sent,
		"failed":   result.Failed,
	})
}

func handleSendSingleQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"memberId"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := orchestrators.ExecuteSendMemberQR(r.Context(), orchestrators.SendMemberQRInput{
		MemberID: req.MemberID,
	}, orchestrators.SendMemberQRDeps{
		MemberStore: stores.MemberStore,
		Sender:      emailSender,
	})
	if errors.Is(err, memberDomain.ErrNotFound) {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, orchestrators.ErrNoEmail) {
		http.Error(w, "member has no email address", http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func handleNotifyAbsence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"memberId"`
		Type     string `json:"type"`
		Email    string `json:"email"`
		Name     string `json:"name"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	to, name := req.Email, req.Name
	if req.MemberID != "" {
		m, err := stores.MemberStore.GetByID(r.Context(), req.MemberID)
		if err != nil {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		to, name = m.Email, m.FullName()
	}
	if to == "" {
		http.Error(w, "missing email", http.StatusBadRequest)
		return
	}

	var subject, html string
	if strings.EqualFold(req.Type, "SUSPENSION") {
		subject, html = orchestrators.SuspensionEmail(name)
	} else {
		subject, html = orchestrators.AbsenceWarningEmail(name)
	}

	if _, err := emailSender.Send(r.Context(), email.SendRequest{
		To:      []string{to},
		From:    emailFromAddress,
		Subject: subject,
		HTML:    html,
		ReplyTo: emailReplyTo,
	}); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func handleNotifyEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email          string `json:"email"`
		Name           string `json:"name"`
		SequenceNumber int    `json:"sequenceNumber"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "missing email", http.StatusBadRequest)
		return
	}

	subject, html := orchestrators.EntryTicketEmail(req.Name, req.SequenceNumber, timeNow())
	if _, err := emailSender.Send(r.Context(), email.SendRequest{
		To:      []string{req.Email},
		From:    emailFromAddress,
		Subject: subject,
		HTML:    html,
		ReplyTo: emailReplyTo,
	}); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
