package orchestrators

import (
	"fmt"
	"strings"
	"time"
)

// qrImageURL renders a scan code as a QR image via the public qrserver API,
// the same service the association's printed badges use.
const qrImageURL = "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data=%s"

// monthTheme drives the per-month look of the entry ticket email.
type monthTheme struct {
	Name  string
	Color string
}

var monthThemes = [12]monthTheme{
	{"Gennaio", "#3b82f6"},
	{"Febbraio", "#ef4444"},
	{"Marzo", "#10b981"},
	{"Aprile", "#f59e0b"},
	{"Maggio", "#ec4899"},
	{"Giugno", "#facc15"},
	{"Luglio", "#06b6d4"},
	{"Agosto", "#f97316"},
	{"Settembre", "#8b5cf6"},
	{"Ottobre", "#78350f"},
	{"Novembre", "#475569"},
	{"Dicembre", "#1e3a8a"},
}

var italianWeekdays = [7]string{
	"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato",
}

// formatItalianDate renders t like "lunedì 24 febbraio 2026".
func formatItalianDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d",
		italianWeekdays[t.Weekday()],
		t.Day(),
		strings.ToLower(monthThemes[t.Month()-1].Name),
		t.Year())
}

// EntryTicketEmail builds the month-themed ticket sent after an accepted
// check-in: the day's sequence number is the member's turn number.
func EntryTicketEmail(name string, sequenceNumber int, now time.Time) (subject, html string) {
	theme := monthThemes[now.Month()-1]
	dateText := formatItalianDate(now)
	timeText := now.Format("15:04")

	subject = fmt.Sprintf("N° %d - %s", sequenceNumber, strings.ToUpper(theme.Name))
	html = fmt.Sprintf(`
        <div style="font-family: 'Helvetica', sans-serif; text-align: center; background-color: #f1f5f9; padding: 20px;">
          <div style="max-width: 450px; margin: 0 auto; background: white; border-radius: 40px; padding: 40px; border: 8px solid %[1]s;">
            <div style="margin-bottom: 25px;">
                <h1 style="color: #1e293b; font-size: 28px; font-weight: 900; text-transform: uppercase; margin: 5px 0;">%[2]s</h1>
                <div style="display: inline-block; background: %[1]s; color: white; padding: 5px 20px; border-radius: 50px; font-weight: bold; font-size: 18px; margin-top: 10px;">ORE %[3]s</div>
            </div>
            <div style="background: #1e293b; color: white; border-radius: 35px; padding: 50px 20px; margin: 30px 0; border: 4px solid %[1]s;">
              <p style="font-size: 16px; text-transform: uppercase; font-weight: 800; margin: 0; color: %[1]s; letter-spacing: 2px;">Numero di Turno</p>
              <h1 style="font-size: 130px; margin: 5px 0; line-height: 1; font-weight: 900; color: white;">%[4]d</h1>
              <p style="margin-top: 10px; font-size: 12px; font-weight: bold; text-transform: uppercase; opacity: 0.7;">Mostra questo ticket all'ingresso</p>
            </div>
            <div style="text-align: center;">
                <h3 style="color: #1e293b; font-size: 22px; margin-bottom: 5px;">Ciao %[5]s!</h3>
                <p style="color: #64748b; font-size: 15px; line-height: 1.4;">Il tuo ingresso è stato registrato correttamente per l'attività di oggi.</p>
            </div>
          </div>
          <p style="font-size: 11px; color: #94a3b8; margin-top: 25px; text-transform: uppercase;">&copy; UNISP SYSTEM</p>
        </div>`,
		theme.Color, dateText, timeText, sequenceNumber, name)
	return subject, html
}

// AbsenceWarningEmail builds the reminder sent at four absences.
func AbsenceWarningEmail(name string) (subject, html string) {
	subject = fmt.Sprintf("Promemoria Assenze UNISP - %s", name)
	html = fmt.Sprintf(`
    <div style="font-family: sans-serif; text-align: center; padding: 40px; background-color: #fefce8;">
      <div style="max-width: 500px; margin: 0 auto; background: white; border-radius: 20px; padding: 30px; border: 2px solid #eab308;">
        <h1 style="color: #854d0e;">Avviso Assenze</h1>
        <p style="color: #444; font-size: 16px;">Ciao <strong>%s</strong>,</p>
        <p style="color: #444;">Abbiamo registrato <b>4 assenze</b> a tuo nome.</p>
        <p style="color: #854d0e; font-weight: bold;">Attenzione: alla prossima assenza (la quinta), il tuo account verrà sospeso automaticamente.</p>
        <p style="color: #666; font-size: 13px; margin-top: 20px;">Ti aspettiamo alla prossima attività per mantenere attivo il tuo pass!</p>
      </div>
    </div>`, name)
	return subject, html
}

// SuspensionEmail builds the notice sent when the fifth absence suspends
// the member.
func SuspensionEmail(name string) (subject, html string) {
	subject = fmt.Sprintf("AVVISO IMPORTANTE: Sospensione Account UNISP - %s", name)
	html = fmt.Sprintf(`
    <div style="font-family: sans-serif; text-align: center; padding: 40px; background-color: #fff1f2;">
      <div style="max-width: 500px; margin: 0 auto; background: white; border-radius: 20px; padding: 30px; border: 2px solid #be123c;">
        <h1 style="color: #be123c;">Account Sospeso</h1>
        <p style="color: #444; font-size: 16px;">Ciao <strong>%s</strong>,</p>
        <p style="color: #444;">Ti informiamo che hai raggiunto il limite massimo di <b>5 assenze</b>.</p>
        <p style="background: #be123c; color: white; padding: 15px; border-radius: 10px; font-weight: bold;">Il tuo QR Code è stato disattivato automaticamente.</p>
        <p style="color: #666; font-size: 13px; margin-top: 20px;">Per riattivare la tua iscrizione, ti preghiamo di contattare la segreteria o lo staff dell'UNISP.</p>
      </div>
    </div>`, name)
	return subject, html
}

// QRCredentialEmail builds the access pass email carrying the member's scan
// code both as a QR image and as plain text.
func QRCredentialEmail(firstName, scanCode string) (subject, html string) {
	subject = fmt.Sprintf("Il tuo QR PASS - %s", firstName)
	html = fmt.Sprintf(`
        <div style="text-align:center; font-family:sans-serif; background-color: #f8fafc; padding: 40px;">
          <div style="background-color: #ffffff; padding: 20px; border-radius: 20px; display: inline-block; border: 1px solid #e2e8f0;">
            <h2 style="color: #1e293b; margin-bottom: 5px;">Ciao %[1]s!</h2>
            <p style="color: #64748b; font-size: 14px;">Mostra questo codice all'ingresso.</p>
            <div style="margin: 20px 0;">
              <img src="%[2]s" width="200" height="200" style="display: block; margin: 0 auto;" />
            </div>
            <p style="font-size: 24px; font-weight: 900; letter-spacing: 5px; color: #3b82f6; margin: 0;">%[3]s</p>
          </div>
          <p style="color: #94a3b8; font-size: 10px; margin-top: 20px; text-transform: uppercase; letter-spacing: 1px;">Associazione Unisp 2026</p>
        </div>`,
		firstName, fmt.Sprintf(qrImageURL, scanCode), scanCode)
	return subject, html
}
