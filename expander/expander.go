// Package expander materializes dated prep schedules from recurring
// schedule rules.
package expander

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prepdeck/dblayer"
	"prepdeck/dbtypes"

	"github.com/google/uuid"
)

const (
	// Horizon applied when a rule doesn't specify one.
	defaultDaysAhead = 7
	// Hard cap on how far ahead any rule may generate.
	maxDaysAhead = 30

	dateLayout = "2006-01-02"
)

// Expander expands active recurring-schedule rules into concrete dated
// schedules for an upcoming window.  Each pass is idempotent: a date
// that already has a schedule, from any origin, is never generated
// again.
type Expander struct {
	db            *dblayer.DB
	loc           *time.Location
	recheckPeriod time.Duration
}

func New(db *dblayer.DB, loc *time.Location, recheckPeriod time.Duration) *Expander {
	return &Expander{
		db:            db,
		loc:           loc,
		recheckPeriod: recheckPeriod,
	}
}

func (e *Expander) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.recheckPeriod)
	defer ticker.Stop()

	// Expand once right away --- ticker doesn't fire until the tick
	// period has elapsed.
	if err := e.RunOnce(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Error during expander pass", slog.Any("err", err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := e.RunOnce(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Error during expander pass", slog.Any("err", err))
		}
	}
}

// RunOnce performs a single expansion pass anchored at now.  A failure
// on one rule is logged and does not abort the remaining rules.
func (e *Expander) RunOnce(ctx context.Context, now time.Time) error {
	slog.InfoContext(ctx, "Starting expander pass")
	defer func() {
		slog.InfoContext(ctx, "Finished expander pass")
	}()

	rules, err := e.db.ActiveRecurringRules(ctx)
	if err != nil {
		return fmt.Errorf("while loading active rules: %w", err)
	}

	runID := uuid.NewString()
	today := now.In(e.loc)

	for _, rule := range rules {
		if err := e.expandRule(ctx, rule, today, runID); err != nil {
			slog.ErrorContext(ctx, "Error expanding rule", slog.String("rule", rule.DocID), slog.Any("err", err))
		}
	}

	return nil
}

func (e *Expander) expandRule(ctx context.Context, rule dblayer.Rule, today time.Time, runID string) error {
	if reason := ruleSkipReason(rule.Rule); reason != "" {
		slog.InfoContext(ctx, "Skipping malformed rule", slog.String("rule", rule.DocID), slog.String("reason", reason))
		return nil
	}

	tmpl, err := e.db.ScheduleTemplate(ctx, rule.Rule.TemplateID)
	if errors.Is(err, dblayer.ErrTemplateNotFound) {
		slog.InfoContext(ctx, "Skipping rule with missing template", slog.String("rule", rule.DocID), slog.Int64("template", rule.Rule.TemplateID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("while resolving template: %w", err)
	}

	for _, date := range ruleDates(rule.Rule, today) {
		dateStr := date.Format(dateLayout)

		exists, err := e.db.ScheduleExistsForDate(ctx, dateStr)
		if err != nil {
			slog.ErrorContext(ctx, "Error checking for existing schedule", slog.String("date", dateStr), slog.Any("err", err))
			continue
		}
		if exists {
			continue
		}

		schedule := buildSchedule(rule.Rule, tmpl, date, today, runID)
		err = e.db.CreateSchedule(ctx, schedule)
		if errors.Is(err, dblayer.ErrScheduleExists) {
			// Lost a creation race; the date is covered either way.
			slog.InfoContext(ctx, "Schedule appeared concurrently", slog.String("date", dateStr))
			continue
		}
		if err != nil {
			// Not retried in this pass; the next pass will see the
			// date still missing and try again.
			slog.ErrorContext(ctx, "Error creating schedule", slog.String("date", dateStr), slog.Any("err", err))
			continue
		}

		slog.InfoContext(ctx, "Generated schedule",
			slog.String("rule", rule.DocID),
			slog.String("date", dateStr),
			slog.Int("tasks", len(schedule.Tasks)))
	}

	return nil
}

// ruleSkipReason reports why a rule is unusable, or "" if it is fine.
func ruleSkipReason(rule *dbtypes.RecurringSchedule) string {
	if rule.TemplateID <= 0 {
		return "no linked template"
	}
	if len(rule.DaysOfWeek) == 0 {
		return "empty weekday set"
	}
	if rule.AssignedTo.Primary <= 0 {
		return "no primary worker"
	}
	return ""
}

// ruleDates returns the dates within the rule's generation horizon,
// anchored at today, that pass the weekday and start/end-date filters.
// Dates are "yyyy-mm-dd" in the kitchen timezone, so the range checks
// are plain string comparisons.
func ruleDates(rule *dbtypes.RecurringSchedule, today time.Time) []time.Time {
	ahead := rule.GenerateDaysAhead
	if ahead <= 0 {
		ahead = defaultDaysAhead
	}
	if ahead > maxDaysAhead {
		ahead = maxDaysAhead
	}

	wanted := make(map[int]bool, len(rule.DaysOfWeek))
	for _, dow := range rule.DaysOfWeek {
		wanted[dow] = true
	}

	var dates []time.Time
	for i := 0; i <= ahead; i++ {
		d := today.AddDate(0, 0, i)
		dateStr := d.Format(dateLayout)

		if dateStr < rule.StartDate {
			continue
		}
		if rule.EndDate != "" && dateStr > rule.EndDate {
			continue
		}
		if !wanted[int(d.Weekday())] {
			continue
		}

		dates = append(dates, d)
	}

	return dates
}

// dateID derives a schedule's integer id from its date digits:
// 2024-01-15 becomes 20240115.
func dateID(date time.Time) int64 {
	y, m, d := date.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

// buildSchedule stamps out a concrete schedule from a rule and its
// template.  Every template task becomes an independent copy with a
// fresh id, so later template edits never reach generated schedules.
func buildSchedule(rule *dbtypes.RecurringSchedule, tmpl *dbtypes.ScheduleTemplate, date, now time.Time, runID string) *dbtypes.Schedule {
	idBase := now.UnixMilli()

	tasks := make([]dbtypes.PrepTask, 0, len(tmpl.Tasks))
	for i, tt := range tmpl.Tasks {
		tasks = append(tasks, dbtypes.PrepTask{
			ID:       idBase + int64(i),
			Name:     tt.Name,
			Quantity: tt.Quantity,
			Status:   dbtypes.StatusIncomplete,
			Notes:    tt.Notes,
			Priority: tt.Priority,
		})
	}

	return &dbtypes.Schedule{
		ID:                dateID(date),
		Date:              date.Format(dateLayout),
		AssignedTo:        rule.AssignedTo.Primary,
		AdditionalWorkers: append([]int64(nil), rule.AssignedTo.Additional...),
		Tasks:             tasks,
		CreatedBy:         rule.CreatedBy,
		CreatedAt:         now,
		GenerationRun:     runID,
	}
}
