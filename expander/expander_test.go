package expander

import (
	"testing"
	"time"

	"prepdeck/dbtypes"

	"github.com/google/go-cmp/cmp"
)

func dateStrings(dates []time.Time) []string {
	var out []string
	for _, d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	return out
}

func TestRuleDatesWeekdayAndRangeFilters(t *testing.T) {
	// 2024-01-01 is a Monday.
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rule := &dbtypes.RecurringSchedule{
		TemplateID:        1,
		DaysOfWeek:        []int{1, 3}, // Mon, Wed
		AssignedTo:        dbtypes.Assignment{Primary: 7},
		StartDate:         "2024-01-01",
		EndDate:           "2024-01-10",
		GenerateDaysAhead: 14,
	}

	got := dateStrings(ruleDates(rule, today))
	want := []string{"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad dates; diff (-got +want)\n%s", diff)
	}
}

func TestRuleDatesStartDateInFuture(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rule := &dbtypes.RecurringSchedule{
		TemplateID:        1,
		DaysOfWeek:        []int{0, 1, 2, 3, 4, 5, 6},
		AssignedTo:        dbtypes.Assignment{Primary: 7},
		StartDate:         "2024-01-05",
		GenerateDaysAhead: 6,
	}

	got := dateStrings(ruleDates(rule, today))
	want := []string{"2024-01-05", "2024-01-06", "2024-01-07"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad dates; diff (-got +want)\n%s", diff)
	}
}

func TestRuleDatesHorizonCap(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rule := &dbtypes.RecurringSchedule{
		TemplateID:        1,
		DaysOfWeek:        []int{0, 1, 2, 3, 4, 5, 6},
		AssignedTo:        dbtypes.Assignment{Primary: 7},
		StartDate:         "2024-01-01",
		GenerateDaysAhead: 90,
	}

	got := ruleDates(rule, today)
	if len(got) != maxDaysAhead+1 {
		t.Fatalf("Got %d dates, want %d (horizon cap)", len(got), maxDaysAhead+1)
	}
	if last := got[len(got)-1].Format(dateLayout); last != "2024-01-31" {
		t.Fatalf("Got last date %s, want 2024-01-31", last)
	}
}

func TestRuleDatesDefaultHorizon(t *testing.T) {
	today := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rule := &dbtypes.RecurringSchedule{
		TemplateID: 1,
		DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
		AssignedTo: dbtypes.Assignment{Primary: 7},
		StartDate:  "2024-01-01",
	}

	got := ruleDates(rule, today)
	if len(got) != defaultDaysAhead+1 {
		t.Fatalf("Got %d dates, want %d (default horizon)", len(got), defaultDaysAhead+1)
	}
}

func TestRuleSkipReason(t *testing.T) {
	good := func() *dbtypes.RecurringSchedule {
		return &dbtypes.RecurringSchedule{
			TemplateID: 1,
			DaysOfWeek: []int{1},
			AssignedTo: dbtypes.Assignment{Primary: 7},
		}
	}

	if reason := ruleSkipReason(good()); reason != "" {
		t.Fatalf("Valid rule rejected with reason %q", reason)
	}

	r := good()
	r.TemplateID = 0
	if reason := ruleSkipReason(r); reason == "" {
		t.Fatalf("Rule without template was accepted")
	}

	r = good()
	r.DaysOfWeek = nil
	if reason := ruleSkipReason(r); reason == "" {
		t.Fatalf("Rule without weekdays was accepted")
	}

	r = good()
	r.AssignedTo.Primary = 0
	if reason := ruleSkipReason(r); reason == "" {
		t.Fatalf("Rule without primary worker was accepted")
	}
}

func TestDateID(t *testing.T) {
	got := dateID(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if got != 20240115 {
		t.Fatalf("Got id %d, want 20240115", got)
	}
}

func TestBuildScheduleCopiesTemplate(t *testing.T) {
	now := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	rule := &dbtypes.RecurringSchedule{
		TemplateID: 1,
		DaysOfWeek: []int{1},
		AssignedTo: dbtypes.Assignment{Primary: 7, Additional: []int64{8, 9}},
		CreatedBy:  3,
	}
	tmpl := &dbtypes.ScheduleTemplate{
		ID:   1,
		Name: "Morning prep",
		Tasks: []dbtypes.TaskTemplate{
			{Name: "Dice onions", Quantity: "2 trays", Priority: "high"},
			{Name: "Stock sauces", Quantity: "a few", Priority: "low", Notes: "check walk-in first"},
		},
	}

	schedule := buildSchedule(rule, tmpl, date, now, "run-1")

	if schedule.ID != 20240115 {
		t.Fatalf("Got schedule id %d, want 20240115", schedule.ID)
	}
	if schedule.Date != "2024-01-15" {
		t.Fatalf("Got schedule date %s, want 2024-01-15", schedule.Date)
	}
	if schedule.AssignedTo != 7 {
		t.Fatalf("Got assigned worker %d, want 7", schedule.AssignedTo)
	}
	if len(schedule.Tasks) != 2 {
		t.Fatalf("Got %d tasks, want 2", len(schedule.Tasks))
	}
	if schedule.Tasks[0].ID == schedule.Tasks[1].ID {
		t.Fatalf("Copied tasks share id %d", schedule.Tasks[0].ID)
	}
	for _, task := range schedule.Tasks {
		if task.Status != dbtypes.StatusIncomplete {
			t.Fatalf("Task %q generated with status %q, want %q", task.Name, task.Status, dbtypes.StatusIncomplete)
		}
	}

	// Generated tasks are copies: later template edits must not reach
	// them.
	tmpl.Tasks[0].Name = "Dice shallots"
	tmpl.Tasks[0].Quantity = "9 trays"
	if schedule.Tasks[0].Name != "Dice onions" || schedule.Tasks[0].Quantity != "2 trays" {
		t.Fatalf("Template edit leaked into generated task: %+v", schedule.Tasks[0])
	}
}
