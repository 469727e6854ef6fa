package sagas

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type trace struct {
	calls []string
}

func record(name string) func(context.Context, *trace) error {
	return func(_ context.Context, tr *trace) error {
		tr.calls = append(tr.calls, name)
		return nil
	}
}

func TestSaga_Completes(t *testing.T) {
	saga := New[trace]("ok", zap.NewNop()).
		Step("one", record("one"), record("undo one")).
		Step("two", record("two"), nil)

	var tr trace
	err := saga.Execute(context.Background(), &tr)

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, tr.calls)
	assert.Equal(t, StateCompleted, saga.GetState())
	assert.NotEmpty(t, saga.GetID())
}

func TestSaga_CompensatesInReverse(t *testing.T) {
	boom := errors.New("boom")
	saga := New[trace]("failing", zap.NewNop()).
		Step("one", record("one"), record("undo one")).
		Step("two", record("two"), record("undo two")).
		Step("three", func(context.Context, *trace) error { return boom }, record("undo three"))

	var tr trace
	err := saga.Execute(context.Background(), &tr)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "three", stepErr.Step)
	assert.Equal(t, []string{"one", "two", "undo two", "undo one"}, tr.calls)
	assert.Equal(t, StateCompensated, saga.GetState())
	assert.Equal(t, 2, saga.GetCurrentStep())
}

func TestSaga_FailedCompensation(t *testing.T) {
	saga := New[trace]("failing", zap.NewNop()).
		Step("one", record("one"), func(context.Context, *trace) error { return errors.New("undo failed") }).
		Step("two", func(context.Context, *trace) error { return errors.New("boom") }, nil)

	var tr trace
	err := saga.Execute(context.Background(), &tr)

	require.Error(t, err)
	assert.Equal(t, StateFailed, saga.GetState())
}

func TestSaga_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	saga := New[trace]("cancelled", zap.NewNop()).
		Step("one", func(_ context.Context, tr *trace) error {
			tr.calls = append(tr.calls, "one")
			cancel()
			return nil
		}, record("undo one")).
		Step("two", record("two"), nil)

	var tr trace
	err := saga.Execute(ctx, &tr)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"one", "undo one"}, tr.calls)
}
