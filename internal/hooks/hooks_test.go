package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartgate/chartgate/internal/api"
)

func textCompletion(text string) *api.ChatCompletion {
	return &api.ChatCompletion{
		ID: "chatcmpl-test",
		Choices: []api.Choice{{
			Message: api.ResponseMessage{Role: "assistant", Content: api.Text(text)},
		}},
	}
}

// appendMarker returns a hook that appends marker to the text content.
func appendMarker(marker string) Hook {
	return NewFunc(marker, func(_ context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error) {
		text := resp.Choices[0].Message.Content.Text()
		resp.Choices[0].Message.Content = api.Text(text + marker)
		return resp, nil
	})
}

// TestApplyEmptyChainIsIdentity verifies the empty registry returns its
// input unchanged.
func TestApplyEmptyChainIsIdentity(t *testing.T) {
	r := NewRegistry(nil)
	in := textCompletion("base")
	out := r.Apply(context.Background(), in)
	assert.Equal(t, in, out)
}

// TestApplyOrderIsRegistrationOrder verifies reordering registration
// reorders observable effects.
func TestApplyOrderIsRegistrationOrder(t *testing.T) {
	forward := NewRegistry(nil)
	forward.Register(appendMarker("-a"))
	forward.Register(appendMarker("-b"))
	assert.Equal(t, "base-a-b", forward.Apply(context.Background(), textCompletion("base")).Text())

	reversed := NewRegistry(nil)
	reversed.Register(appendMarker("-b"))
	reversed.Register(appendMarker("-a"))
	assert.Equal(t, "base-b-a", reversed.Apply(context.Background(), textCompletion("base")).Text())
}

// TestFailOpenOnError verifies an erroring hook is skipped and the base
// text still flows through.
func TestFailOpenOnError(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(NewFunc("broken", func(_ context.Context, _ *api.ChatCompletion) (*api.ChatCompletion, error) {
		return nil, errors.New("render exploded")
	}))
	r.Register(appendMarker("-after"))

	out := r.Apply(context.Background(), textCompletion("base"))
	assert.Equal(t, "base-after", out.Text())
}

// TestFailOpenOnPanic verifies a panicking hook does not abort the chain.
func TestFailOpenOnPanic(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(NewFunc("panicky", func(_ context.Context, _ *api.ChatCompletion) (*api.ChatCompletion, error) {
		panic("boom")
	}))

	out := r.Apply(context.Background(), textCompletion("base"))
	assert.Equal(t, "base", out.Text())
}

// TestFailOpenOnNilOutput verifies a hook returning nil is treated as a
// failure.
func TestFailOpenOnNilOutput(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(NewFunc("nilly", func(_ context.Context, _ *api.ChatCompletion) (*api.ChatCompletion, error) {
		return nil, nil
	}))

	out := r.Apply(context.Background(), textCompletion("base"))
	assert.Equal(t, "base", out.Text())
}

// TestMalformedOutputCaught verifies structurally invalid hook output never
// reaches the caller.
func TestMalformedOutputCaught(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(NewFunc("mangler", func(_ context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error) {
		resp.Choices[0].Message.Role = ""
		return resp, nil
	}))

	out := r.Apply(context.Background(), textCompletion("base"))
	require.NoError(t, out.Validate())
	assert.Equal(t, "assistant", out.Choices[0].Message.Role)
	assert.Equal(t, "base", out.Text())
}

// TestHooksReceiveClones verifies a hook mutating its input cannot affect
// the value carried forward when it subsequently fails.
func TestHooksReceiveClones(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(NewFunc("mutate-then-fail", func(_ context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error) {
		resp.Choices[0].Message.Content = api.Text("corrupted")
		return nil, errors.New("late failure")
	}))

	in := textCompletion("base")
	out := r.Apply(context.Background(), in)
	assert.Equal(t, "base", out.Text())
	assert.Equal(t, "base", in.Text())
}

// TestRegisterNilPanics verifies nil registration fails fast at startup
// rather than at request time.
func TestRegisterNilPanics(t *testing.T) {
	r := NewRegistry(nil)
	assert.Panics(t, func() { r.Register(nil) })
}

// TestNames reports hooks in application order.
func TestNames(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(appendMarker("x"))
	r.Register(appendMarker("y"))
	assert.Equal(t, []string{"x", "y"}, r.Names())
	assert.Equal(t, 2, r.Len())
}
