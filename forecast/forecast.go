// Package forecast predicts upcoming prep quantities from historical
// prep logs.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"time"

	"prepdeck/dblayer"
	"prepdeck/dbtypes"
)

const (
	// How much history feeds the estimate.
	lookbackDays = 28
	// How many days ahead get a forecast, starting today.
	horizonDays = 7

	// Blend of same-weekday history against the overall per-entry
	// average.
	weekdayWeight = 0.7
	averageWeight = 0.3

	dateLayout = "2006-01-02"
)

// Estimator computes per-item predicted quantities for the next week.
// Forecast documents are keyed by (date, item), so repeated runs over
// the same logs overwrite themselves rather than accumulate.
type Estimator struct {
	db            *dblayer.DB
	loc           *time.Location
	recheckPeriod time.Duration
}

func New(db *dblayer.DB, loc *time.Location, recheckPeriod time.Duration) *Estimator {
	return &Estimator{
		db:            db,
		loc:           loc,
		recheckPeriod: recheckPeriod,
	}
}

func (e *Estimator) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.recheckPeriod)
	defer ticker.Stop()

	// Compute once right away --- ticker doesn't fire until the tick
	// period has elapsed.
	if err := e.RunOnce(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Error during estimator pass", slog.Any("err", err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := e.RunOnce(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Error during estimator pass", slog.Any("err", err))
		}
	}
}

// RunOnce performs a single estimation pass anchored at now.  An empty
// log window is a no-op: no forecasts are written at all.
func (e *Estimator) RunOnce(ctx context.Context, now time.Time) error {
	slog.InfoContext(ctx, "Starting estimator pass")
	defer func() {
		slog.InfoContext(ctx, "Finished estimator pass")
	}()

	since := now.AddDate(0, 0, -lookbackDays)
	logs, err := e.db.PreparedLogsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("while loading prep logs: %w", err)
	}

	if len(logs) == 0 {
		slog.InfoContext(ctx, "No prep logs in window, skipping forecast")
		return nil
	}

	aggs := aggregateLogs(logs, e.loc)

	today := now.In(e.loc)
	for i := 0; i < horizonDays; i++ {
		d := today.AddDate(0, 0, i)
		dow := int(d.Weekday())

		for name, agg := range aggs {
			forecast := &dbtypes.Forecast{
				Date:         d.Format(dateLayout),
				ItemName:     name,
				PredictedQty: agg.predict(dow),
				ComputedAt:   now,
			}
			if err := e.db.UpsertForecast(ctx, forecast); err != nil {
				slog.ErrorContext(ctx, "Error upserting forecast",
					slog.String("date", forecast.Date),
					slog.String("item", name),
					slog.Any("err", err))
			}
		}
	}

	return nil
}

// aggregate accumulates the prepared-quantity signal for one task name.
type aggregate struct {
	weekdaySums [7]float64
	total       float64
	count       int
}

// predict blends the historical sum for the target weekday with the
// overall per-entry average, floored at zero and rounded to cents.
func (a *aggregate) predict(dow int) float64 {
	p := a.weekdaySums[dow]*weekdayWeight + (a.total/float64(a.count))*averageWeight
	return math.Max(0, round2(p))
}

func aggregateLogs(logs []*dbtypes.PrepLog, loc *time.Location) map[string]*aggregate {
	aggs := map[string]*aggregate{}

	for _, entry := range logs {
		qty := parseQuantity(entry.Quantity)
		dow := int(entry.CreatedAt.In(loc).Weekday())

		agg := aggs[entry.TaskName]
		if agg == nil {
			agg = &aggregate{}
			aggs[entry.TaskName] = agg
		}

		agg.weekdaySums[dow] += qty
		agg.total += qty
		agg.count++
	}

	return aggs
}

var numberPattern = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)

// parseQuantity pulls the first signed decimal number out of a
// free-text quantity ("2 trays" yields 2).  Text with no number at all
// counts as a single unit.
func parseQuantity(s string) float64 {
	m := numberPattern.FindString(s)
	if m == "" {
		return 1
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 1
	}

	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
