// Package digest emails managers a morning summary of the day's prep
// schedules.
package digest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"prepdeck/dblayer"
	"prepdeck/dbtypes"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const dateLayout = "2006-01-02"

type Digest struct {
	db             *dblayer.DB
	sendgridClient *sendgrid.Client
	loc            *time.Location
	sendHour       int
	fromAddress    string
	recheckPeriod  time.Duration

	lastSentDate string
}

func New(db *dblayer.DB, sendgridClient *sendgrid.Client, loc *time.Location, sendHour int, fromAddress string, recheckPeriod time.Duration) *Digest {
	return &Digest{
		db:             db,
		sendgridClient: sendgridClient,
		loc:            loc,
		sendHour:       sendHour,
		fromAddress:    fromAddress,
		recheckPeriod:  recheckPeriod,
	}
}

// Run wakes up periodically and sends the digest once per local day,
// the first time the clock passes the configured send hour.
func (d *Digest) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.recheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now := time.Now().In(d.loc)
		if now.Hour() < d.sendHour {
			continue
		}
		if d.lastSentDate == now.Format(dateLayout) {
			continue
		}

		if err := d.RunOnce(ctx, now); err != nil {
			slog.ErrorContext(ctx, "Error during digest pass", slog.Any("err", err))
			continue
		}
		d.lastSentDate = now.Format(dateLayout)
	}
}

// RunOnce sends the digest for the day containing now.  A day with no
// schedules sends nothing.
func (d *Digest) RunOnce(ctx context.Context, now time.Time) error {
	slog.InfoContext(ctx, "Starting digest pass")
	defer func() {
		slog.InfoContext(ctx, "Finished digest pass")
	}()

	today := now.In(d.loc).Format(dateLayout)

	schedules, err := d.db.SchedulesForDate(ctx, today)
	if err != nil {
		return fmt.Errorf("while loading schedules for %s: %w", today, err)
	}
	if len(schedules) == 0 {
		slog.InfoContext(ctx, "No schedules today, skipping digest", slog.String("date", today))
		return nil
	}

	managers, err := d.db.ManagersWithEmail(ctx)
	if err != nil {
		return fmt.Errorf("while loading manager emails: %w", err)
	}
	if len(managers) == 0 {
		slog.InfoContext(ctx, "No managers with email on file, skipping digest")
		return nil
	}

	body, err := renderDigest(today, schedules)
	if err != nil {
		return fmt.Errorf("while rendering digest: %w", err)
	}

	for _, manager := range managers {
		if err := d.sendEmail(ctx, manager, today, body); err != nil {
			slog.ErrorContext(ctx, "Error sending digest email",
				slog.Int64("user", manager.ID), slog.Any("err", err))
		}
	}

	return nil
}

const digestPlain = `Prep schedules for {{.Date}}:
{{range .Schedules}}
Schedule {{.ID}} (worker {{.AssignedTo}}):
{{- range .Tasks}}
* {{.Name}} ({{.Quantity}}) [{{.Priority}}] - {{.Status}}
{{- end}}
{{end}}`

var digestPlainTemplate = template.Must(template.New("digest").Parse(digestPlain))

func renderDigest(date string, schedules []*dbtypes.Schedule) (string, error) {
	content := &bytes.Buffer{}
	err := digestPlainTemplate.Execute(content, struct {
		Date      string
		Schedules []*dbtypes.Schedule
	}{Date: date, Schedules: schedules})
	if err != nil {
		return "", fmt.Errorf("while templating plain-text digest content: %w", err)
	}
	return content.String(), nil
}

func (d *Digest) sendEmail(ctx context.Context, user *dbtypes.User, date, body string) error {
	message := mail.NewV3Mail()
	message.From = mail.NewEmail("PrepDeck Bot", d.fromAddress)
	message.Subject = fmt.Sprintf("Prep digest for %s", date)

	personalization := mail.NewPersonalization()
	personalization.To = append(personalization.To, mail.NewEmail(user.Name, user.Email))
	message.Personalizations = append(message.Personalizations, personalization)

	message.Content = append(message.Content, mail.NewContent("text/plain", body))

	resp, err := d.sendgridClient.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through Sendgrid: %d %s", resp.StatusCode, resp.Body)
	}

	return nil
}
