package toolreg

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoDef(name string) Definition {
	return Definition{
		Name:        name,
		Description: "echoes input",
		Handler: func(ctx context.Context, input string) (string, error) {
			return input, nil
		},
	}
}

func TestRegistry_New_Validation(t *testing.T) {
	_, err := New([]Definition{{Name: "", Handler: echoDef("x").Handler}}, zerolog.Nop())
	assert.Error(t, err, "Empty tool name should fail construction")

	_, err = New([]Definition{{Name: "broken"}}, zerolog.Nop())
	assert.Error(t, err, "Nil handler should fail construction")

	_, err = New([]Definition{{
		Name:        "bad-schema",
		InputSchema: `{"type": nonsense}`,
		Handler:     echoDef("x").Handler,
	}}, zerolog.Nop())
	assert.Error(t, err, "Malformed schema should fail construction, not first call")
}

func TestRegistry_UseTool(t *testing.T) {
	r, err := New([]Definition{echoDef("echo")}, zerolog.Nop())
	require.NoError(t, err)

	out, err := r.UseTool(context.Background(), "echo", "hello")
	assert.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRegistry_UseTool_NotFound(t *testing.T) {
	invoked := false
	r, err := New([]Definition{
		{
			Name: "known",
			Handler: func(ctx context.Context, input string) (string, error) {
				invoked = true
				return "", nil
			},
		},
	}, zerolog.Nop())
	require.NoError(t, err)

	out, err := r.UseTool(context.Background(), "unknown", "{}")
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), "unknown")
	assert.Empty(t, out)
	assert.False(t, invoked, "No handler should run for an unknown tool")
}

func TestRegistry_UseTool_FirstMatchWins(t *testing.T) {
	r, err := New([]Definition{
		{
			Name: "dup",
			Handler: func(ctx context.Context, input string) (string, error) {
				return "first", nil
			},
		},
		{
			Name: "dup",
			Handler: func(ctx context.Context, input string) (string, error) {
				return "second", nil
			},
		},
	}, zerolog.Nop())
	require.NoError(t, err)

	out, err := r.UseTool(context.Background(), "dup", "")
	assert.NoError(t, err)
	assert.Equal(t, "first", out)
	assert.Equal(t, 2, r.Count())
}

func TestRegistry_UseTool_HandlerErrorPropagates(t *testing.T) {
	boom := errors.New("tool blew up")
	r, err := New([]Definition{
		{
			Name: "faulty",
			Handler: func(ctx context.Context, input string) (string, error) {
				return "", boom
			},
		},
	}, zerolog.Nop())
	require.NoError(t, err)

	_, err = r.UseTool(context.Background(), "faulty", "")
	assert.Equal(t, boom, err, "Handler errors should propagate unchanged")
}

func TestRegistry_UseTool_SchemaValidation(t *testing.T) {
	r, err := New([]Definition{
		{
			Name:        "strict",
			InputSchema: `{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`,
			Handler: func(ctx context.Context, input string) (string, error) {
				return "ok", nil
			},
		},
	}, zerolog.Nop())
	require.NoError(t, err)

	out, err := r.UseTool(context.Background(), "strict", `{"city":"Austin"}`)
	assert.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = r.UseTool(context.Background(), "strict", `{"zip":78701}`)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegistry_Names(t *testing.T) {
	r, err := New([]Definition{echoDef("a"), echoDef("b"), echoDef("a")}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "a"}, r.Names())
}
