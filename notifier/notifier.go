// Package notifier pushes a notification when a prep schedule's tasks
// transition from not-all-complete to all-complete.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prepdeck/dblayer"
	"prepdeck/dbtypes"
	"prepdeck/expopush"
)

// Outcome classifies what a Process call did.  Callers treat every
// outcome as "continue"; the distinction exists for logs and tests.
type Outcome string

const (
	Delivered Outcome = "delivered"
	Skipped   Outcome = "skipped"
	Failed    Outcome = "failed"
)

type Result struct {
	Outcome Outcome
	Reason  string
}

func skipped(reason string) Result { return Result{Outcome: Skipped, Reason: reason} }
func failed(reason string) Result  { return Result{Outcome: Failed, Reason: reason} }

// Pusher sends push messages.  Satisfied by *expopush.Client.
type Pusher interface {
	Send(ctx context.Context, messages []expopush.Message) error
}

type Notifier struct {
	db     *dblayer.DB
	pusher Pusher
}

func New(db *dblayer.DB, pusher Pusher) *Notifier {
	return &Notifier{
		db:     db,
		pusher: pusher,
	}
}

// Process reacts to one write event on a schedule document.  It never
// returns an error: a push that cannot be delivered is a Failed result,
// logged and forgotten, so the triggering client write is unaffected.
func (n *Notifier) Process(ctx context.Context, now time.Time, docID string, before, after *dbtypes.Schedule) Result {
	if fire, reason := decide(before, after); !fire {
		return skipped(reason)
	}

	// Re-read the document: the event images may be stale, and the
	// fresh update time serves as the marker-write precondition.
	updateTime := time.Time{}
	current, ut, err := n.db.ScheduleByDocID(ctx, docID)
	if err != nil {
		slog.ErrorContext(ctx, "Error re-reading schedule, proceeding from event image",
			slog.String("schedule", docID), slog.Any("err", err))
	} else {
		if current.Notifications.CompletedPushedAt != nil {
			return skipped("completion already pushed")
		}
		updateTime = ut
	}

	// Claim the marker before sending.  Best effort: only a lost
	// precondition race suppresses the send, any other failure is
	// logged and the send still happens, so a marker outage can't
	// turn into a retry storm in the trigger infrastructure.
	err = n.db.MarkCompletionPushed(ctx, docID, now, updateTime)
	if errors.Is(err, dblayer.ErrStaleSchedule) {
		return skipped("marker claimed concurrently")
	}
	if err != nil {
		slog.ErrorContext(ctx, "Error setting notification marker",
			slog.String("schedule", docID), slog.Any("err", err))
	}

	messages, err := n.buildMessages(ctx, after)
	if err != nil {
		slog.ErrorContext(ctx, "Error resolving notification recipients",
			slog.String("schedule", docID), slog.Any("err", err))
		return failed(fmt.Sprintf("resolving recipients: %v", err))
	}
	if len(messages) == 0 {
		return skipped("no registered recipients")
	}

	if err := n.pusher.Send(ctx, messages); err != nil {
		slog.ErrorContext(ctx, "Error delivering completion push",
			slog.String("schedule", docID), slog.Any("err", err))
		return failed(fmt.Sprintf("delivering push: %v", err))
	}

	slog.InfoContext(ctx, "Sent completion push",
		slog.String("schedule", docID),
		slog.Int("recipients", len(messages)))
	return Result{Outcome: Delivered}
}

// decide reports whether a before/after pair is the firing transition:
// not all complete before, all complete after, and not already pushed.
func decide(before, after *dbtypes.Schedule) (bool, string) {
	if after == nil {
		return false, "no after image"
	}
	if !allComplete(after) {
		return false, "schedule not fully complete"
	}
	if allComplete(before) {
		return false, "schedule was already complete"
	}
	if after.Notifications.CompletedPushedAt != nil {
		return false, "completion already pushed"
	}
	return true, ""
}

// allComplete reports whether every task on the schedule is Complete.
// A schedule with no tasks at all does not count as complete; an empty
// schedule should never announce itself as done.
func allComplete(schedule *dbtypes.Schedule) bool {
	if schedule == nil || len(schedule.Tasks) == 0 {
		return false
	}
	for _, task := range schedule.Tasks {
		if task.Status != dbtypes.StatusComplete {
			return false
		}
	}
	return true
}

func (n *Notifier) buildMessages(ctx context.Context, schedule *dbtypes.Schedule) ([]expopush.Message, error) {
	var tokens []*dbtypes.PushToken

	primary, err := n.db.PushTokenForUser(ctx, schedule.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("while loading primary worker token: %w", err)
	}
	if primary != nil {
		tokens = append(tokens, primary)
	}

	managers, err := n.db.ManagerPushTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("while loading manager tokens: %w", err)
	}
	tokens = append(tokens, managers...)

	title, body := completionMessage(schedule)

	seen := map[string]bool{}
	var messages []expopush.Message
	for _, token := range tokens {
		if token.Token == "" || seen[token.Token] {
			continue
		}
		seen[token.Token] = true
		messages = append(messages, expopush.Message{
			To:    token.Token,
			Title: title,
			Body:  body,
		})
	}

	return messages, nil
}

func completionMessage(schedule *dbtypes.Schedule) (title, body string) {
	return "Prep Schedule Completed", fmt.Sprintf("All prep tasks for %s are complete.", schedule.Date)
}
