// Package dbtypes holds the document schemas shared between the backend
// jobs and the mobile client.  Collection names are part of the contract
// and live in dblayer.
package dbtypes

import "time"

// Roles assignable to a User.
const (
	RoleEmployee = "Employee"
	RoleManager  = "Manager"
	RoleITAdmin  = "IT_Admin"
)

// Prep task lifecycle states.  Transitions are not linear: a Complete
// task can be reverted to Incomplete.
const (
	StatusIncomplete = "Incomplete"
	StatusInProgress = "In Progress"
	StatusComplete   = "Complete"
)

// Prep log actions.
const (
	ActionPrepared = "prepared"
	ActionReverted = "reverted"
)

// User is a kitchen staff member.  IDs are assigned by the client, not
// by the store.  The PIN is the de-facto login key; the client treats it
// as unique even though the schema does not enforce that.
type User struct {
	ID          int64     `firestore:"id" json:"id"`
	Name        string    `firestore:"name" json:"name"`
	PIN         string    `firestore:"pin" json:"pin"`
	Role        string    `firestore:"role" json:"role"`
	Permissions []string  `firestore:"permissions" json:"permissions"`
	Active      bool      `firestore:"active" json:"active"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`

	// Optional; only consulted by the daily digest job.  Managers
	// without one simply don't receive digests.
	Email string `firestore:"email,omitempty" json:"email,omitempty"`
}

// TaskTemplate is one line of a ScheduleTemplate.  Quantity is free text
// ("2 trays"); generated schedules copy these rather than reference
// them, so later edits never touch already-materialized tasks.
type TaskTemplate struct {
	Name     string `firestore:"name" json:"name"`
	Quantity string `firestore:"quantity" json:"quantity"`
	Priority string `firestore:"priority" json:"priority"`
	Notes    string `firestore:"notes,omitempty" json:"notes,omitempty"`
}

// ScheduleTemplate is a named, ordered task list used as a stamp when
// materializing dated schedules.
type ScheduleTemplate struct {
	ID        int64          `firestore:"id" json:"id"`
	Name      string         `firestore:"name" json:"name"`
	Tasks     []TaskTemplate `firestore:"tasks" json:"tasks"`
	CreatedBy int64          `firestore:"createdBy" json:"createdBy"`
}

// Assignment names the workers a rule or schedule is assigned to.
type Assignment struct {
	Primary    int64   `firestore:"primary" json:"primary"`
	Additional []int64 `firestore:"additional,omitempty" json:"additional,omitempty"`
}

// RecurringSchedule is a rule consumed nightly by the expander.
// Deactivating a rule stops future generation without touching
// already-materialized schedules.
type RecurringSchedule struct {
	TemplateID int64      `firestore:"templateId" json:"templateId"`
	Active     bool       `firestore:"active" json:"active"`
	DaysOfWeek []int      `firestore:"daysOfWeek" json:"daysOfWeek"`
	AssignedTo Assignment `firestore:"assignedTo" json:"assignedTo"`

	// Dates are "yyyy-mm-dd" strings in the configured kitchen
	// timezone.  EndDate may be empty for an open-ended rule.
	StartDate string `firestore:"startDate" json:"startDate"`
	EndDate   string `firestore:"endDate,omitempty" json:"endDate,omitempty"`

	// How far ahead to materialize.  Zero means the default horizon;
	// the expander caps this at 30 days.
	GenerateDaysAhead int   `firestore:"generateDaysAhead" json:"generateDaysAhead"`
	CreatedBy         int64 `firestore:"createdBy" json:"createdBy"`
}

// PrepTask is embedded in a Schedule.  CompletedBy and CompletedAt are
// set exactly when Status is Complete.
type PrepTask struct {
	ID          int64      `firestore:"id" json:"id"`
	Name        string     `firestore:"name" json:"name"`
	Quantity    string     `firestore:"quantity" json:"quantity"`
	Status      string     `firestore:"status" json:"status"`
	Notes       string     `firestore:"notes,omitempty" json:"notes,omitempty"`
	Priority    string     `firestore:"priority" json:"priority"`
	CompletedBy int64      `firestore:"completedBy,omitempty" json:"completedBy,omitempty"`
	CompletedAt *time.Time `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
	StartedAt   *time.Time `firestore:"startedAt,omitempty" json:"startedAt,omitempty"`
}

// Notifications carries idempotency markers for push delivery.
type Notifications struct {
	CompletedPushedAt *time.Time `firestore:"completedPushedAt,omitempty" json:"completedPushedAt,omitempty"`
}

// Schedule is a concrete dated prep list.  Its integer ID is the digits
// of its date (20240115 for 2024-01-15), and at most one schedule may
// exist per date regardless of origin.
type Schedule struct {
	ID                int64         `firestore:"id" json:"id"`
	Date              string        `firestore:"date" json:"date"`
	AssignedTo        int64         `firestore:"assignedTo" json:"assignedTo"`
	AdditionalWorkers []int64       `firestore:"additionalWorkers,omitempty" json:"additionalWorkers,omitempty"`
	Tasks             []PrepTask    `firestore:"tasks" json:"tasks"`
	CreatedBy         int64         `firestore:"createdBy" json:"createdBy"`
	CreatedAt         time.Time     `firestore:"createdAt" json:"createdAt"`
	Notifications     Notifications `firestore:"notifications,omitempty" json:"notifications,omitempty"`

	// Audit stamp identifying the expander pass that generated this
	// schedule; empty for manually created ones.
	GenerationRun string `firestore:"generationRun,omitempty" json:"generationRun,omitempty"`
}

// PrepLog is an append-only record of a task state transition, used for
// analytics and forecasting.  Never mutated after creation.
type PrepLog struct {
	ScheduleID int64     `firestore:"scheduleId" json:"scheduleId"`
	Date       string    `firestore:"date" json:"date"`
	TaskID     int64     `firestore:"taskId" json:"taskId"`
	TaskName   string    `firestore:"taskName" json:"taskName"`
	Quantity   string    `firestore:"quantity" json:"quantity"`
	Action     string    `firestore:"action" json:"action"`
	UserID     int64     `firestore:"userId" json:"userId"`
	UserName   string    `firestore:"userName" json:"userName"`
	CreatedAt  time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`

	StartedAt   *time.Time `firestore:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt  *time.Time `firestore:"finishedAt,omitempty" json:"finishedAt,omitempty"`
	DurationSec int64      `firestore:"durationSec,omitempty" json:"durationSec,omitempty"`
}

// Forecast is a predicted quantity for one item on one date.  Document
// IDs are "{date}__{itemName}", which makes estimator runs idempotent
// overwrites.
type Forecast struct {
	Date         string    `firestore:"date" json:"date"`
	ItemName     string    `firestore:"itemName" json:"itemName"`
	PredictedQty float64   `firestore:"predictedQty" json:"predictedQty"`
	ComputedAt   time.Time `firestore:"computedAt" json:"computedAt"`
}

// PushToken is a device registration, keyed by user id.  Role is
// denormalized so notification fan-out can filter without a join.
type PushToken struct {
	UserID    int64     `firestore:"userId" json:"userId"`
	Token     string    `firestore:"token" json:"token"`
	Role      string    `firestore:"role" json:"role"`
	Platform  string    `firestore:"platform" json:"platform"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}
