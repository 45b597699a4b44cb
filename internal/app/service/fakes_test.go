package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/domain/repository"
)

type fakeExecutor struct {
	ExecuteFn func(ctx context.Context, code string, language model.Language, stdin string, deadline time.Time) model.ExecutionVerdict

	mu    sync.Mutex
	calls int
}

func (f *fakeExecutor) Execute(ctx context.Context, code string, language model.Language, stdin string, deadline time.Time) model.ExecutionVerdict {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.ExecuteFn(ctx, code, language, stdin, deadline)
}

func (f *fakeExecutor) Now() time.Time { return time.Now() }

func (f *fakeExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// echoExecutor accepts every program and prints its stdin back.
func echoExecutor() *fakeExecutor {
	return &fakeExecutor{
		ExecuteFn: func(_ context.Context, _ string, _ model.Language, stdin string, _ time.Time) model.ExecutionVerdict {
			return model.ExecutionVerdict{Stdout: stdin + "\n", StatusDescription: "Accepted", Kind: model.VerdictSuccess}
		},
	}
}

type fakeChallengeRepo struct {
	challenges map[int]*model.Challenge
	err        error
}

func (f *fakeChallengeRepo) FindByRound(_ context.Context, round int) (*model.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.challenges[round]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (f *fakeChallengeRepo) ListRounds(_ context.Context) ([]model.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Challenge, 0, len(f.challenges))
	for _, c := range f.challenges {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

// fakeUserRepo is an in-memory versioned store with the same conditional
// write semantics as the Postgres repository.
type fakeUserRepo struct {
	mu      sync.Mutex
	records map[string]*model.UserProgression
	writes  int

	// beforeUpdate runs inside UpdateProgression before the version check,
	// without the lock held, to let tests interleave writers.
	beforeUpdate func()
}

func newFakeUserRepo(users ...*model.UserProgression) *fakeUserRepo {
	r := &fakeUserRepo{records: map[string]*model.UserProgression{}}
	for _, u := range users {
		r.records[u.UserID] = u.Clone()
	}
	return r
}

func (r *fakeUserRepo) FindProgression(_ context.Context, userID string) (*model.UserProgression, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.records[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *fakeUserRepo) UpdateProgression(_ context.Context, p *model.UserProgression, expectedVersion int64) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.records[p.UserID]
	if !ok || cur.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	next := p.Clone()
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now()
	r.records[p.UserID] = next
	r.writes++
	p.Version = next.Version
	return nil
}

func (r *fakeUserRepo) get(userID string) *model.UserProgression {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[userID].Clone()
}

func (r *fakeUserRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func testChallenge(round int, cases ...model.TestCase) *model.Challenge {
	return &model.Challenge{
		Round:            round,
		Title:            "Round challenge",
		Language:         model.LangPython,
		TestCases:        cases,
		TimeLimitMinutes: 5,
	}
}

func echoCases(inputs ...string) []model.TestCase {
	cases := make([]model.TestCase, len(inputs))
	for i, in := range inputs {
		cases[i] = model.TestCase{Input: in, ExpectedOutput: in}
	}
	return cases
}

// rendezvousExecutor holds every call until n calls are in flight, so
// concurrent submissions overlap inside execution.
func rendezvousExecutor(n int32) *fakeExecutor {
	var arrived atomic.Int32
	gate := make(chan struct{})
	return &fakeExecutor{
		ExecuteFn: func(_ context.Context, _ string, _ model.Language, stdin string, _ time.Time) model.ExecutionVerdict {
			if arrived.Add(1) == n {
				close(gate)
			}
			select {
			case <-gate:
			case <-time.After(2 * time.Second):
			}
			return model.ExecutionVerdict{Stdout: stdin, StatusDescription: "Accepted", Kind: model.VerdictSuccess}
		},
	}
}

func submitConcurrently(svc *SubmissionService, reqs ...model.SubmitRequest) ([]*model.SubmitResult, []error) {
	results := make([]*model.SubmitResult, len(reqs))
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Submit(context.Background(), req)
		}()
	}
	wg.Wait()
	return results, errs
}
