package notifier

import (
	"testing"
	"time"

	"prepdeck/dbtypes"
)

func scheduleWith(statuses ...string) *dbtypes.Schedule {
	s := &dbtypes.Schedule{ID: 20240115, Date: "2024-01-15", AssignedTo: 7}
	for i, st := range statuses {
		s.Tasks = append(s.Tasks, dbtypes.PrepTask{ID: int64(i + 1), Name: "task", Status: st})
	}
	return s
}

func TestAllComplete(t *testing.T) {
	if allComplete(nil) {
		t.Fatalf("nil schedule counted as complete")
	}
	if allComplete(scheduleWith()) {
		t.Fatalf("schedule with zero tasks counted as complete")
	}
	if allComplete(scheduleWith(dbtypes.StatusComplete, dbtypes.StatusInProgress)) {
		t.Fatalf("partially complete schedule counted as complete")
	}
	if !allComplete(scheduleWith(dbtypes.StatusComplete, dbtypes.StatusComplete)) {
		t.Fatalf("fully complete schedule not counted as complete")
	}
}

func TestDecideFiresOnCompletionTransition(t *testing.T) {
	before := scheduleWith(dbtypes.StatusComplete, dbtypes.StatusIncomplete)
	after := scheduleWith(dbtypes.StatusComplete, dbtypes.StatusComplete)

	fire, reason := decide(before, after)
	if !fire {
		t.Fatalf("No fire on completion transition: %s", reason)
	}
}

func TestDecideIgnoresNonTransitions(t *testing.T) {
	complete := scheduleWith(dbtypes.StatusComplete)
	incomplete := scheduleWith(dbtypes.StatusIncomplete)

	if fire, _ := decide(complete, complete); fire {
		t.Fatalf("Fired on complete -> complete no-op")
	}
	if fire, _ := decide(incomplete, incomplete); fire {
		t.Fatalf("Fired with incomplete tasks")
	}
	if fire, _ := decide(complete, nil); fire {
		t.Fatalf("Fired on delete event")
	}
	if fire, _ := decide(nil, incomplete); fire {
		t.Fatalf("Fired on creation of incomplete schedule")
	}
}

func TestDecideEmptyScheduleNeverFires(t *testing.T) {
	// Zero tasks is defined as not complete, so an empty schedule must
	// not announce completion no matter what it transitions from.
	if fire, _ := decide(nil, scheduleWith()); fire {
		t.Fatalf("Fired on empty schedule create")
	}
	if fire, _ := decide(scheduleWith(dbtypes.StatusIncomplete), scheduleWith()); fire {
		t.Fatalf("Fired on transition to empty schedule")
	}
}

func TestDecideRespectsMarker(t *testing.T) {
	before := scheduleWith(dbtypes.StatusIncomplete)
	after := scheduleWith(dbtypes.StatusComplete)

	// Toggle back and forth: second completion carries the marker from
	// the first push and must not re-fire.
	pushedAt := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	after.Notifications.CompletedPushedAt = &pushedAt

	fire, reason := decide(before, after)
	if fire {
		t.Fatalf("Re-fired despite completion marker")
	}
	if reason != "completion already pushed" {
		t.Fatalf("Got reason %q, want %q", reason, "completion already pushed")
	}
}
