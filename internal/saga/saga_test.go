package saga

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunner() *Runner {
	return NewRunner("test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	var order []string
	steps := []Step{
		{Name: "first", Run: func(context.Context) error { order = append(order, "first"); return nil }},
		{Name: "second", Run: func(context.Context) error { order = append(order, "second"); return nil }},
		{Name: "third", Run: func(context.Context) error { order = append(order, "third"); return nil }},
	}

	err := testRunner().Execute(context.Background(), steps)

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestExecuteUnwindsCompletedStepsNewestFirst(t *testing.T) {
	var compensated []string
	boom := errors.New("boom")

	steps := []Step{
		{
			Name:       "a",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "a"); return nil },
		},
		{
			Name:       "b",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "b"); return nil },
		},
		{
			Name:   "c",
			Run:    func(context.Context) error { return boom },
			Unwind: true,
		},
	}

	err := testRunner().Execute(context.Background(), steps)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"b", "a"}, compensated)
}

func TestExecuteWithoutUnwindLeavesEffectsInPlace(t *testing.T) {
	var compensated int
	boom := errors.New("boom")

	steps := []Step{
		{
			Name:       "commit",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated++; return nil },
		},
		{
			Name: "fail",
			Run:  func(context.Context) error { return boom },
			// Unwind deliberately false.
		},
	}

	err := testRunner().Execute(context.Background(), steps)

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, compensated)
}

func TestExecuteReturnsStepErrorUntouched(t *testing.T) {
	boom := errors.New("exact error")
	steps := []Step{
		{Name: "fail", Run: func(context.Context) error { return boom }, Unwind: true},
	}

	err := testRunner().Execute(context.Background(), steps)

	assert.Same(t, boom, err)
}

func TestExecuteCompensationFailureDoesNotStopUnwind(t *testing.T) {
	var compensated []string
	boom := errors.New("boom")

	steps := []Step{
		{
			Name:       "a",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { compensated = append(compensated, "a"); return nil },
		},
		{
			Name:       "b",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return errors.New("compensation rejected") },
		},
		{
			Name:   "c",
			Run:    func(context.Context) error { return boom },
			Unwind: true,
		},
	}

	err := testRunner().Execute(context.Background(), steps)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, compensated)
}

func TestExecuteSkipsNilCompensations(t *testing.T) {
	boom := errors.New("boom")
	steps := []Step{
		{Name: "a", Run: func(context.Context) error { return nil }},
		{Name: "b", Run: func(context.Context) error { return boom }, Unwind: true},
	}

	assert.ErrorIs(t, testRunner().Execute(context.Background(), steps), boom)
}

func TestExecuteEmptyStepList(t *testing.T) {
	assert.NoError(t, testRunner().Execute(context.Background(), nil))
}

func TestExecuteRejectsStepWithoutAction(t *testing.T) {
	err := testRunner().Execute(context.Background(), []Step{{Name: "hollow"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "hollow")
}

func TestStepRecorderObservesOutcomes(t *testing.T) {
	type record struct{ saga, step, status string }
	var records []record
	RegisterStepRecorder(func(saga, step, status string) {
		records = append(records, record{saga, step, status})
	})
	t.Cleanup(func() { RegisterStepRecorder(nil) })

	steps := []Step{
		{
			Name:       "a",
			Run:        func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return nil },
		},
		{Name: "b", Run: func(context.Context) error { return errors.New("boom") }, Unwind: true},
	}
	_ = testRunner().Execute(context.Background(), steps)

	assert.Equal(t, []record{
		{"test", "a", "ok"},
		{"test", "b", "failed"},
		{"test", "a", "compensated"},
	}, records)
}
