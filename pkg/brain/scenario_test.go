package brain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growup62/openapex/pkg/llm"
	"github.com/growup62/openapex/pkg/state"
)

// Drives a task through a real gateway instead of a scripted one: the
// primary lacks its credential, the first fallback returns 500, the
// second answers in plain text.
func TestSolveOverRealGateway(t *testing.T) {
	var brokenHits, healthyHits atomic.Int32

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		brokenHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		healthyHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"the weather is sunny"}}]}`))
	}))
	defer healthy.Close()

	router := llm.New(llm.Config{
		Credentials: llm.Credentials{Groq: "gsk-test"},
		Fallbacks: []llm.Candidate{
			{Name: "broken", Model: "groq/llama-3.1-8b-instant", BaseURL: broken.URL},
			{Name: "healthy", Model: "groq/llama-3.1-8b-instant", BaseURL: healthy.URL},
		},
		Timeout: 5 * time.Second,
		Logger:  zerolog.Nop(),
	})

	selfModel := &fakeSelfModel{}
	mem := &fakeMemory{}
	b, err := New(Config{
		Gateway:   router,
		Executor:  testExecutor(t),
		Memory:    mem,
		SelfModel: selfModel,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)

	answer, err := b.Solve(context.Background(), "what is the weather")
	require.NoError(t, err)
	assert.Equal(t, "the weather is sunny", answer)
	assert.Equal(t, state.Idle, b.State())

	assert.Equal(t, int32(1), brokenHits.Load(), "failed fallback is tried once")
	assert.Equal(t, int32(1), healthyHits.Load())
	assert.Equal(t, []string{"what is the weather"}, mem.stored)
	assert.Equal(t, []string{"what is the weather"}, selfModel.completed)
}
