package triggers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cancelkit/cancelscope/scope"
)

func TestDeadlineCheckAlreadyElapsed(t *testing.T) {
	d := NewDeadline(-time.Second)
	reason, ok := d.Check()
	if !ok {
		t.Fatal("Check on a negative-budget Deadline should report true")
	}
	if reason.Kind() != scope.KindDeadline {
		t.Fatalf("Kind = %v, want KindDeadline", reason.Kind())
	}
}

func TestDeadlineCheckNotYetElapsed(t *testing.T) {
	d := NewDeadline(time.Hour)
	if _, ok := d.Check(); ok {
		t.Fatal("Check on a fresh hour-long Deadline should report false")
	}
}

func TestDeadlineRemainingFloorsAtZero(t *testing.T) {
	d := NewDeadline(-time.Second)
	if r := d.Remaining(); r != 0 {
		t.Fatalf("Remaining = %v, want 0", r)
	}
}

func TestDeadlineScopeFiresAfterBudget(t *testing.T) {
	sc := scope.New([]scope.Trigger{NewDeadline(30 * time.Millisecond)})
	err := sc.Run(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("err = %v, want nil: the scope owns the cancellation it caused", err)
	}
	if !sc.Cancelled() {
		t.Fatal("Cancelled() = false, want true")
	}
	reasons := sc.Reasons()
	if len(reasons) != 1 || reasons[0].Kind() != scope.KindDeadline {
		t.Fatalf("Reasons = %v, want one KindDeadline reason", reasons)
	}
}

func TestDeadlineScopeMessageReportsBudget(t *testing.T) {
	sc := scope.New([]scope.Trigger{NewDeadline(50 * time.Millisecond)})
	_ = sc.Run(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	reasons := sc.Reasons()
	if len(reasons) != 1 {
		t.Fatalf("Reasons = %v, want exactly one", reasons)
	}
	if got := reasons[0].Message(); !strings.Contains(got, "0.05") {
		t.Fatalf("Message() = %q, want it to contain the 0.05s budget", got)
	}
}

func TestDeadlineScopeBodyFinishesBeforeBudget(t *testing.T) {
	sc := scope.New([]scope.Trigger{NewDeadline(time.Hour)})
	err := sc.Run(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if sc.Cancelled() {
		t.Fatal("Cancelled() = true, want false")
	}
}
