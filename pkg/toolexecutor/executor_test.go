package toolexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growup62/openapex/pkg/llm"
)

func echoSchema() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "echo",
		Description: "Echoes its input back.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"text": {"type": "string"}
			},
			"required": ["text"]
		}`),
	}
}

func echoDefinition() Definition {
	return Definition{
		Schema: echoSchema(),
		Handler: func(_ context.Context, args map[string]interface{}) (string, error) {
			return fmt.Sprintf("echo: %v", args["text"]), nil
		},
	}
}

func TestExecutorRegister(t *testing.T) {
	t.Run("should register a tool with a valid schema", func(t *testing.T) {
		e := New(zerolog.Nop())
		require.NoError(t, e.Register(echoDefinition()))

		schema, ok := e.Schema("echo")
		require.True(t, ok)
		assert.Equal(t, "echo", schema.Name)
		assert.Len(t, e.Schemas(), 1)
	})

	t.Run("should reject duplicates", func(t *testing.T) {
		e := New(zerolog.Nop())
		require.NoError(t, e.Register(echoDefinition()))
		assert.Error(t, e.Register(echoDefinition()))
	})

	t.Run("should reject a tool without a name or handler", func(t *testing.T) {
		e := New(zerolog.Nop())
		assert.Error(t, e.Register(Definition{Handler: func(context.Context, map[string]interface{}) (string, error) { return "", nil }}))
		assert.Error(t, e.Register(Definition{Schema: llm.ToolSchema{Name: "no_handler"}}))
	})

	t.Run("should reject an uncompilable parameter schema at registration", func(t *testing.T) {
		e := New(zerolog.Nop())
		def := echoDefinition()
		def.Schema.Parameters = json.RawMessage(`{"type": ["broken"`)
		assert.Error(t, e.Register(def))
	})
}

func TestExecutorExecute(t *testing.T) {
	t.Run("should execute a registered tool", func(t *testing.T) {
		e := New(zerolog.Nop())
		require.NoError(t, e.Register(echoDefinition()))

		out, err := e.Execute(context.Background(), "echo", `{"text": "hello"}`)
		require.NoError(t, err)
		assert.Equal(t, "echo: hello", out)
	})

	t.Run("should return ErrUnknownTool for unregistered names", func(t *testing.T) {
		e := New(zerolog.Nop())
		_, err := e.Execute(context.Background(), "nope", "{}")
		assert.ErrorIs(t, err, ErrUnknownTool)
	})

	t.Run("should return ArgumentError for non-JSON arguments", func(t *testing.T) {
		e := New(zerolog.Nop())
		require.NoError(t, e.Register(echoDefinition()))

		_, err := e.Execute(context.Background(), "echo", `not json`)
		var argErr *ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "echo", argErr.Tool)
	})

	t.Run("should return ArgumentError when the schema rejects the payload", func(t *testing.T) {
		e := New(zerolog.Nop())
		require.NoError(t, e.Register(echoDefinition()))

		_, err := e.Execute(context.Background(), "echo", `{"text": 42}`)
		var argErr *ArgumentError
		require.ErrorAs(t, err, &argErr)

		_, err = e.Execute(context.Background(), "echo", `{}`)
		require.ErrorAs(t, err, &argErr)
	})

	t.Run("should wrap handler failures with the tool name", func(t *testing.T) {
		e := New(zerolog.Nop())
		boom := errors.New("boom")
		require.NoError(t, e.Register(Definition{
			Schema: llm.ToolSchema{Name: "flaky"},
			Handler: func(context.Context, map[string]interface{}) (string, error) {
				return "", boom
			},
		}))

		_, err := e.Execute(context.Background(), "flaky", "{}")
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "flaky")
	})

	t.Run("should treat an empty payload as an empty object", func(t *testing.T) {
		e := New(zerolog.Nop())
		require.NoError(t, e.Register(Definition{
			Schema: llm.ToolSchema{Name: "noargs"},
			Handler: func(context.Context, map[string]interface{}) (string, error) {
				return "ok", nil
			},
		}))

		out, err := e.Execute(context.Background(), "noargs", "")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	})
}

func TestAllowlist(t *testing.T) {
	setup := func(t *testing.T) *Executor {
		e := New(zerolog.Nop())
		require.NoError(t, e.Register(echoDefinition()))
		require.NoError(t, e.Register(Definition{
			Schema: llm.ToolSchema{Name: "system_run_command", Description: "dangerous"},
			Handler: func(context.Context, map[string]interface{}) (string, error) {
				return "ran", nil
			},
		}))
		return e
	}

	t.Run("should execute allowlisted tools", func(t *testing.T) {
		d := setup(t).WithAllowlist([]string{"echo"})
		out, err := d.Execute(context.Background(), "echo", `{"text": "hi"}`)
		require.NoError(t, err)
		assert.Equal(t, "echo: hi", out)
	})

	t.Run("should reject tools outside the allowlist even when registered", func(t *testing.T) {
		d := setup(t).WithAllowlist([]string{"echo"})
		_, err := d.Execute(context.Background(), "system_run_command", "{}")
		assert.ErrorIs(t, err, ErrToolNotPermitted)
	})

	t.Run("should expose only allowlisted schemas", func(t *testing.T) {
		d := setup(t).WithAllowlist([]string{"echo"})
		schemas := d.Schemas()
		require.Len(t, schemas, 1)
		assert.Equal(t, "echo", schemas[0].Name)
	})
}
