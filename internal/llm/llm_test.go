package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	outputs []Output
	err     error
}

func (s *recordingSink) RecordOutput(ctx context.Context, out Output) error {
	s.outputs = append(s.outputs, out)
	return s.err
}

func echo(response string, err error) GeneratorFunc {
	return func(ctx context.Context, system, user string, temperature float64) (string, error) {
		return response, err
	}
}

func TestRecorder_RecordsSuccess(t *testing.T) {
	sink := &recordingSink{}
	r := NewRecorder(echo(`{"ok":true}`, nil), sink, "test-model")

	got, err := r.Generate(context.Background(), "sys", "usr", 0.1)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)

	require.Len(t, sink.outputs, 1)
	out := sink.outputs[0]
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "test-model", out.Model)
	assert.Equal(t, "sys", out.System)
	assert.Equal(t, "usr", out.User)
	assert.Equal(t, 0.1, out.Temperature)
	assert.Empty(t, out.Error)
}

func TestRecorder_RecordsFailure(t *testing.T) {
	sink := &recordingSink{}
	r := NewRecorder(echo("", errors.New("boom")), sink, "m")

	_, err := r.Generate(context.Background(), "s", "u", 0.2)
	require.Error(t, err)
	require.Len(t, sink.outputs, 1)
	assert.Equal(t, "boom", sink.outputs[0].Error)
}

func TestRecorder_SinkFailureIgnored(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	r := NewRecorder(echo("text", nil), sink, "m")

	got, err := r.Generate(context.Background(), "s", "u", 0.2)
	require.NoError(t, err)
	assert.Equal(t, "text", got)
}

func TestRateLimited_PassesThrough(t *testing.T) {
	var calls int
	next := GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		calls++
		return user, nil
	})
	r := NewRateLimited(next, 0, 0)

	for i := 0; i < 3; i++ {
		got, err := r.Generate(context.Background(), "", "hello", 0)
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	}
	assert.Equal(t, 3, calls)
}

func TestRateLimited_CancelledContext(t *testing.T) {
	var calls int
	next := GeneratorFunc(func(ctx context.Context, system, user string, temperature float64) (string, error) {
		calls++
		return "x", nil
	})
	r := NewRateLimited(next, 1, 1)

	_, err := r.Generate(context.Background(), "", "", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Generate(ctx, "", "", 0)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
