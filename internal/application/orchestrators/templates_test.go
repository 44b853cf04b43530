package orchestrators

import (
	"strings"
	"testing"
	"time"
)

func TestEntryTicketEmail(t *testing.T) {
	at := time.Date(2026, 2, 21, 19, 34, 0, 0, time.Local)
	subject, html := EntryTicketEmail("Mario", 12, at)

	if subject != "N° 12 - FEBBRAIO" {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{"Mario", ">12<", "#ef4444", "ORE 19:34", "sabato 21 febbraio 2026"} {
		if !strings.Contains(html, want) {
			t.Errorf("entry ticket missing %q", want)
		}
	}
}

func TestQRCredentialEmail(t *testing.T) {
	subject, html := QRCredentialEmail("Mario", "A1B2C3")
	if !strings.Contains(subject, "Mario") {
		t.Errorf("subject = %q, want the first name", subject)
	}
	if !strings.Contains(html, "api.qrserver.com/v1/create-qr-code/?size=200x200&data=A1B2C3") {
		t.Error("credential email must embed the QR image URL")
	}
	if !strings.Contains(html, ">A1B2C3<") {
		t.Error("credential email must show the code as text")
	}
}

func TestAbsenceEmails(t *testing.T) {
	subject, html := AbsenceWarningEmail("Mario Rossi")
	if !strings.Contains(subject, "Promemoria Assenze") {
		t.Errorf("warning subject = %q", subject)
	}
	if !strings.Contains(html, "4 assenze") {
		t.Error("warning body must name the four absences")
	}

	subject, html = SuspensionEmail("Mario Rossi")
	if !strings.Contains(subject, "Sospensione") {
		t.Errorf("suspension subject = %q", subject)
	}
	if !strings.Contains(html, "5 assenze") {
		t.Error("suspension body must name the five absence limit")
	}
}
