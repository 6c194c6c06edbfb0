// Package dblayer packages up most actual firestore accesses.
package dblayer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"prepdeck/dbtypes"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names.  The mobile client reads and writes these
// collections directly, so the names are a contract.
const (
	CollectionUsers              = "users"
	CollectionSchedules          = "schedules"
	CollectionScheduleTemplates  = "scheduleTemplates"
	CollectionRecurringSchedules = "recurringSchedules"
	CollectionPrepLogs           = "prepLogs"
	CollectionPrepForecasts      = "prepForecasts"
	CollectionPushTokens         = "pushTokens"
)

var (
	ErrTemplateNotFound = errors.New("no schedule template by that id")
	ErrScheduleExists   = errors.New("a schedule already exists for that date")
	ErrStaleSchedule    = errors.New("schedule changed since it was read")
)

type DB struct {
	firestoreClient *firestore.Client
}

func New(firestoreClient *firestore.Client) *DB {
	return &DB{firestoreClient: firestoreClient}
}

// Rule pairs a recurring-schedule document with its document ID, which
// callers want for logging.
type Rule struct {
	DocID string
	Rule  *dbtypes.RecurringSchedule
}

// ActiveRecurringRules returns every rule with active == true.
func (db *DB) ActiveRecurringRules(ctx context.Context) ([]Rule, error) {
	var rules []Rule

	ruleIter := db.firestoreClient.Collection(CollectionRecurringSchedules).Where("active", "==", true).Documents(ctx)
	defer ruleIter.Stop()
	for {
		ruleSnapshot, err := ruleIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while iterating recurring schedules: %w", err)
		}

		rule := &dbtypes.RecurringSchedule{}
		if err := ruleSnapshot.DataTo(rule); err != nil {
			return nil, fmt.Errorf("while unmarshaling recurring schedule %s: %w", ruleSnapshot.Ref.ID, err)
		}

		rules = append(rules, Rule{DocID: ruleSnapshot.Ref.ID, Rule: rule})
	}

	return rules, nil
}

// ScheduleTemplate looks up a template by its integer id.  Returns
// ErrTemplateNotFound if no such document exists.
func (db *DB) ScheduleTemplate(ctx context.Context, id int64) (*dbtypes.ScheduleTemplate, error) {
	docSnap, err := db.firestoreClient.Collection(CollectionScheduleTemplates).Doc(strconv.FormatInt(id, 10)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("while retrieving schedule template %d: %w", id, err)
	}

	tmpl := &dbtypes.ScheduleTemplate{}
	if err := docSnap.DataTo(tmpl); err != nil {
		return nil, fmt.Errorf("while unmarshaling schedule template %d: %w", id, err)
	}

	return tmpl, nil
}

// ScheduleExistsForDate reports whether any schedule document exists for
// the given "yyyy-mm-dd" date, regardless of how it was created.
func (db *DB) ScheduleExistsForDate(ctx context.Context, date string) (bool, error) {
	schedIter := db.firestoreClient.Collection(CollectionSchedules).Where("date", "==", date).Limit(1).Documents(ctx)
	defer schedIter.Stop()

	_, err := schedIter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("while checking for schedule on %s: %w", date, err)
	}

	return true, nil
}

// CreateSchedule creates a schedule under its deterministic date-digit
// document ID.  A lost creation race surfaces as ErrScheduleExists
// rather than a duplicate document.
func (db *DB) CreateSchedule(ctx context.Context, schedule *dbtypes.Schedule) error {
	docRef := db.firestoreClient.Collection(CollectionSchedules).Doc(strconv.FormatInt(schedule.ID, 10))
	_, err := docRef.Create(ctx, schedule)
	if status.Code(err) == codes.AlreadyExists {
		return ErrScheduleExists
	}
	if err != nil {
		return fmt.Errorf("while creating schedule for %s: %w", schedule.Date, err)
	}

	return nil
}

// ScheduleByDocID fetches a schedule together with its document update
// time, which callers use as a write precondition.
func (db *DB) ScheduleByDocID(ctx context.Context, docID string) (*dbtypes.Schedule, time.Time, error) {
	docSnap, err := db.firestoreClient.Collection(CollectionSchedules).Doc(docID).Get(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("while retrieving schedule %s: %w", docID, err)
	}

	schedule := &dbtypes.Schedule{}
	if err := docSnap.DataTo(schedule); err != nil {
		return nil, time.Time{}, fmt.Errorf("while unmarshaling schedule %s: %w", docID, err)
	}

	return schedule, docSnap.UpdateTime, nil
}

// SchedulesForDate returns all schedules dated the given "yyyy-mm-dd"
// day.  There should be at most one, but the digest tolerates more.
func (db *DB) SchedulesForDate(ctx context.Context, date string) ([]*dbtypes.Schedule, error) {
	var schedules []*dbtypes.Schedule

	schedIter := db.firestoreClient.Collection(CollectionSchedules).Where("date", "==", date).Documents(ctx)
	defer schedIter.Stop()
	for {
		schedSnapshot, err := schedIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while iterating schedules for %s: %w", date, err)
		}

		schedule := &dbtypes.Schedule{}
		if err := schedSnapshot.DataTo(schedule); err != nil {
			return nil, fmt.Errorf("while unmarshaling schedule %s: %w", schedSnapshot.Ref.ID, err)
		}

		schedules = append(schedules, schedule)
	}

	return schedules, nil
}

// MarkCompletionPushed sets the completion-notification marker on a
// schedule.  When updateTime is non-zero it is used as a precondition,
// so a concurrent marker write fails instead of silently double-sending.
func (db *DB) MarkCompletionPushed(ctx context.Context, docID string, at time.Time, updateTime time.Time) error {
	docRef := db.firestoreClient.Collection(CollectionSchedules).Doc(docID)

	opts := []firestore.Precondition{}
	if !updateTime.IsZero() {
		opts = append(opts, firestore.LastUpdateTime(updateTime))
	}

	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "notifications.completedPushedAt", Value: at},
	}, opts...)
	if status.Code(err) == codes.FailedPrecondition {
		return ErrStaleSchedule
	}
	if err != nil {
		return fmt.Errorf("while marking schedule %s as pushed: %w", docID, err)
	}

	return nil
}

// PreparedLogsSince returns every "prepared" prep-log entry created at
// or after the given instant.
func (db *DB) PreparedLogsSince(ctx context.Context, since time.Time) ([]*dbtypes.PrepLog, error) {
	var logs []*dbtypes.PrepLog

	logIter := db.firestoreClient.Collection(CollectionPrepLogs).
		Where("action", "==", dbtypes.ActionPrepared).
		Where("createdAt", ">=", since).
		Documents(ctx)
	defer logIter.Stop()
	for {
		logSnapshot, err := logIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while iterating prep logs: %w", err)
		}

		entry := &dbtypes.PrepLog{}
		if err := logSnapshot.DataTo(entry); err != nil {
			return nil, fmt.Errorf("while unmarshaling prep log %s: %w", logSnapshot.Ref.ID, err)
		}

		logs = append(logs, entry)
	}

	return logs, nil
}

// UpsertForecast overwrites the forecast document for the entry's
// (date, itemName) pair.  The deterministic key makes estimator runs
// idempotent.
func (db *DB) UpsertForecast(ctx context.Context, forecast *dbtypes.Forecast) error {
	docID := forecast.Date + "__" + forecast.ItemName
	if _, err := db.firestoreClient.Collection(CollectionPrepForecasts).Doc(docID).Set(ctx, forecast); err != nil {
		return fmt.Errorf("while upserting forecast %s: %w", docID, err)
	}

	return nil
}

// PushTokenForUser returns the push token registered for a user, or nil
// if the user has no registered device.
func (db *DB) PushTokenForUser(ctx context.Context, userID int64) (*dbtypes.PushToken, error) {
	docSnap, err := db.firestoreClient.Collection(CollectionPushTokens).Doc(strconv.FormatInt(userID, 10)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while retrieving push token for user %d: %w", userID, err)
	}

	token := &dbtypes.PushToken{}
	if err := docSnap.DataTo(token); err != nil {
		return nil, fmt.Errorf("while unmarshaling push token for user %d: %w", userID, err)
	}

	return token, nil
}

// ManagerPushTokens returns the push tokens of every Manager and
// IT_Admin user.
func (db *DB) ManagerPushTokens(ctx context.Context) ([]*dbtypes.PushToken, error) {
	var tokens []*dbtypes.PushToken

	for _, role := range []string{dbtypes.RoleManager, dbtypes.RoleITAdmin} {
		tokenIter := db.firestoreClient.Collection(CollectionPushTokens).Where("role", "==", role).Documents(ctx)
		for {
			tokenSnapshot, err := tokenIter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				tokenIter.Stop()
				return nil, fmt.Errorf("while iterating %s push tokens: %w", role, err)
			}

			token := &dbtypes.PushToken{}
			if err := tokenSnapshot.DataTo(token); err != nil {
				tokenIter.Stop()
				return nil, fmt.Errorf("while unmarshaling push token %s: %w", tokenSnapshot.Ref.ID, err)
			}

			tokens = append(tokens, token)
		}
		tokenIter.Stop()
	}

	return tokens, nil
}

// ManagersWithEmail returns every active Manager or IT_Admin user that
// has an email address on file.
func (db *DB) ManagersWithEmail(ctx context.Context) ([]*dbtypes.User, error) {
	var users []*dbtypes.User

	for _, role := range []string{dbtypes.RoleManager, dbtypes.RoleITAdmin} {
		userIter := db.firestoreClient.Collection(CollectionUsers).Where("role", "==", role).Documents(ctx)
		for {
			userSnapshot, err := userIter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				userIter.Stop()
				return nil, fmt.Errorf("while iterating %s users: %w", role, err)
			}

			user := &dbtypes.User{}
			if err := userSnapshot.DataTo(user); err != nil {
				userIter.Stop()
				return nil, fmt.Errorf("while unmarshaling user %s: %w", userSnapshot.Ref.ID, err)
			}

			if user.Active && user.Email != "" {
				users = append(users, user)
			}
		}
		userIter.Stop()
	}

	return users, nil
}
