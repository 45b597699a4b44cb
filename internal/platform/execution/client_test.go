package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJudge struct {
	submits   atomic.Int32
	polls     atomic.Int32
	lastLang  atomic.Int32
	lastStdin atomic.Value
	headers   atomic.Value

	submitFn    func(n int32) (int, string)
	pollFn      func(n int32) (int, string)
	submitDelay time.Duration
}

func (f *fakeJudge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/submissions":
		n := f.submits.Add(1)
		if f.submitDelay > 0 {
			select {
			case <-time.After(f.submitDelay):
			case <-r.Context().Done():
				return
			}
		}
		var req submitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.lastLang.Store(int32(req.LanguageID))
		f.lastStdin.Store(req.Stdin)
		f.headers.Store(r.Header.Clone())
		code, body := http.StatusCreated, `{"token":"tok-1"}`
		if f.submitFn != nil {
			code, body = f.submitFn(n)
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/submissions/"):
		n := f.polls.Add(1)
		code, body := http.StatusOK, `{"stdout":"ok\n","stderr":null,"status":{"id":3,"description":"Accepted"}}`
		if f.pollFn != nil {
			code, body = f.pollFn(n)
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, judge *fakeJudge, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(judge)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = time.Millisecond
	}
	return NewClient(opts)
}

func TestExecute_PollsUntilTerminal(t *testing.T) {
	judge := &fakeJudge{
		pollFn: func(n int32) (int, string) {
			if n < 3 {
				return http.StatusOK, `{"stdout":null,"status":{"id":2,"description":"Processing"}}`
			}
			return http.StatusOK, `{"stdout":"42\n","stderr":"","status":{"id":3,"description":"Accepted"}}`
		},
	}
	c := newTestClient(t, judge, Options{MaxRetries: 2, APIHost: "judge0.example", APIKey: "secret"})

	v := c.Execute(context.Background(), "print(42)", model.LangJava, "in", time.Now().Add(5*time.Second))

	assert.Equal(t, model.VerdictSuccess, v.Kind)
	assert.Equal(t, "42\n", v.Stdout)
	assert.Equal(t, "Accepted", v.StatusDescription)
	assert.EqualValues(t, 3, judge.polls.Load())
	assert.EqualValues(t, 62, judge.lastLang.Load())
	assert.Equal(t, "in", judge.lastStdin.Load())

	h := judge.headers.Load().(http.Header)
	assert.Equal(t, "judge0.example", h.Get("X-RapidAPI-Host"))
	assert.Equal(t, "secret", h.Get("X-RapidAPI-Key"))
}

func TestSubmit_UnknownLanguageFallsBackToPython(t *testing.T) {
	judge := &fakeJudge{}
	c := newTestClient(t, judge, Options{MaxRetries: 0})

	token, err := c.Submit(context.Background(), "fn main() {}", model.Language("rust"), "")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.EqualValues(t, model.FallbackLanguageID, judge.lastLang.Load())
}

func TestSubmit_RetriesThenReportsUnavailable(t *testing.T) {
	judge := &fakeJudge{
		submitFn: func(int32) (int, string) { return http.StatusBadGateway, `{}` },
	}
	c := newTestClient(t, judge, Options{MaxRetries: 2})

	_, err := c.Submit(context.Background(), "x", model.LangPython, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrServiceUnavailable))
	assert.EqualValues(t, 3, judge.submits.Load())
}

func TestSubmit_RecoversAfterTransientFailure(t *testing.T) {
	judge := &fakeJudge{
		submitFn: func(n int32) (int, string) {
			if n == 1 {
				return http.StatusServiceUnavailable, `{}`
			}
			return http.StatusCreated, `{"token":"tok-2"}`
		},
	}
	c := newTestClient(t, judge, Options{MaxRetries: 3})

	token, err := c.Submit(context.Background(), "x", model.LangC, "")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
	assert.EqualValues(t, 50, judge.lastLang.Load())
}

func TestExecute_SubmitFailureBecomesServiceErrorVerdict(t *testing.T) {
	judge := &fakeJudge{
		submitFn: func(int32) (int, string) { return http.StatusInternalServerError, `{}` },
	}
	c := newTestClient(t, judge, Options{MaxRetries: 1})

	v := c.Execute(context.Background(), "x", model.LangPython, "", time.Now().Add(time.Minute))
	assert.Equal(t, model.VerdictServiceError, v.Kind)
	assert.True(t, v.IsServiceFailure())
	assert.EqualValues(t, 0, judge.polls.Load())
}

func TestExecute_SlowSubmitIsCutAtDeadline(t *testing.T) {
	judge := &fakeJudge{submitDelay: 600 * time.Millisecond}
	c := newTestClient(t, judge, Options{MaxRetries: 2})

	start := time.Now()
	v := c.Execute(context.Background(), "x", model.LangPython, "", start.Add(100*time.Millisecond))
	elapsed := time.Since(start)

	assert.Equal(t, model.VerdictServiceTimeout, v.Kind)
	assert.Less(t, elapsed, 400*time.Millisecond)
	assert.EqualValues(t, 1, judge.submits.Load())
	assert.EqualValues(t, 0, judge.polls.Load())
}

func TestExecute_NoRetryWhenBackoffPassesDeadline(t *testing.T) {
	judge := &fakeJudge{
		submitFn: func(int32) (int, string) { return http.StatusServiceUnavailable, `{}` },
	}
	c := newTestClient(t, judge, Options{MaxRetries: 5, RetryBaseDelay: 200 * time.Millisecond})

	start := time.Now()
	v := c.Execute(context.Background(), "x", model.LangPython, "", start.Add(300*time.Millisecond))

	assert.True(t, v.IsServiceFailure())
	assert.EqualValues(t, 2, judge.submits.Load())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecute_ExpiredDeadlineSubmitsNothing(t *testing.T) {
	judge := &fakeJudge{}
	c := newTestClient(t, judge, Options{MaxRetries: 0})

	v := c.Execute(context.Background(), "x", model.LangPython, "", time.Now().Add(-time.Second))
	assert.Equal(t, model.VerdictServiceTimeout, v.Kind)
	assert.EqualValues(t, 0, judge.submits.Load())
}

func TestAwaitResult_LateTokenIsNotFetched(t *testing.T) {
	judge := &fakeJudge{}
	c := newTestClient(t, judge, Options{MaxRetries: 0})

	v := c.AwaitResult(context.Background(), "tok-1", time.Now().Add(-time.Millisecond))
	assert.Equal(t, model.VerdictServiceTimeout, v.Kind)
	assert.EqualValues(t, 0, judge.polls.Load())
}

func TestAwaitResult_FetchFailuresBecomeServiceError(t *testing.T) {
	judge := &fakeJudge{
		pollFn: func(int32) (int, string) { return http.StatusInternalServerError, `oops` },
	}
	c := newTestClient(t, judge, Options{MaxRetries: 2})

	v := c.AwaitResult(context.Background(), "tok-1", time.Now().Add(time.Minute))
	assert.Equal(t, model.VerdictServiceError, v.Kind)
	assert.Equal(t, model.StatusDescServiceError, v.StatusDescription)
	assert.EqualValues(t, 3, judge.polls.Load())
}

func TestAwaitResult_DeadlineYieldsTimeoutVerdict(t *testing.T) {
	judge := &fakeJudge{
		pollFn: func(int32) (int, string) {
			return http.StatusOK, `{"status":{"id":1,"description":"In Queue"}}`
		},
	}
	clock := clockwork.NewFakeClock()
	c := newTestClient(t, judge, Options{MaxRetries: 2, PollInterval: time.Second, Clock: clock})

	deadline := clock.Now().Add(3 * time.Second)
	done := make(chan model.ExecutionVerdict, 1)
	go func() {
		done <- c.AwaitResult(context.Background(), "tok-1", deadline)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Second)
	}

	select {
	case v := <-done:
		assert.Equal(t, model.VerdictServiceTimeout, v.Kind)
		assert.Equal(t, model.StatusDescServiceTimeout, v.StatusDescription)
	case <-ctx.Done():
		t.Fatal("AwaitResult did not return after the deadline")
	}
	assert.EqualValues(t, 3, judge.polls.Load())
}

func TestAwaitResult_CompileErrorCarriesCompileOutput(t *testing.T) {
	judge := &fakeJudge{
		pollFn: func(int32) (int, string) {
			return http.StatusOK, `{"stdout":null,"stderr":null,"compile_output":"main.c:1: error","status":{"id":6,"description":"Compilation Error"}}`
		},
	}
	c := newTestClient(t, judge, Options{MaxRetries: 0})

	v := c.AwaitResult(context.Background(), "tok-1", time.Now().Add(time.Minute))
	assert.Equal(t, model.VerdictCompileError, v.Kind)
	assert.Equal(t, "main.c:1: error", v.Stderr)
	assert.Equal(t, "main.c:1: error", v.Output())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status submissionStatus
		want   model.VerdictKind
	}{
		{submissionStatus{ID: 3, Description: "Accepted"}, model.VerdictSuccess},
		{submissionStatus{ID: 5, Description: "Time Limit Exceeded"}, model.VerdictTimeLimit},
		{submissionStatus{ID: 11, Description: "Runtime Error (NZEC)"}, model.VerdictRuntimeError},
		{submissionStatus{ID: 13, Description: "Internal Error"}, model.VerdictServiceError},
		{submissionStatus{Description: "Compilation Error"}, model.VerdictCompileError},
		{submissionStatus{Description: "Accepted"}, model.VerdictSuccess},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.status), tt.status.Description)
	}

	assert.False(t, isTerminal(submissionStatus{ID: 1}))
	assert.False(t, isTerminal(submissionStatus{Description: "Processing"}))
	assert.True(t, isTerminal(submissionStatus{Description: "Wrong Answer"}))
}
