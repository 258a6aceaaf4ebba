package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/adapter"
	"github.com/sells-group/meetingintel/internal/cache"
	"github.com/sells-group/meetingintel/internal/generate"
	"github.com/sells-group/meetingintel/internal/guard"
	"github.com/sells-group/meetingintel/internal/identity"
	"github.com/sells-group/meetingintel/internal/model"
)

func collection() *adapter.Collection {
	return &adapter.Collection{
		Items: []model.EvidenceItem{
			model.NewEvidenceItem(model.SourceCompanySite, "Acme builds warehouse robots.", "https://acme.io/about"),
			model.NewEvidenceItem(model.SourceWebSearchNews, "Acme raises Series B to expand robotics.", "https://news.example.com/acme"),
		},
		Stats: []adapter.Stat{
			{Adapter: "company-site", Status: adapter.StatusOK, Items: 1},
			{Adapter: "web-search-news", Status: adapter.StatusOK, Items: 1},
			{Adapter: "social", Status: adapter.StatusTimeout},
		},
		CompanyResolved: true,
	}
}

func guardResult(outcome model.Outcome, in guard.Input) *guard.Result {
	b := model.Brief{
		InputEmail:     in.Identity.Email,
		CompanyDomain:  in.Identity.CompanyDomain,
		Confidence:     in.Estimate,
		Evidence:       in.Evidence.Refs(),
		Outcome:        outcome,
		RepairAttempts: 1,
	}
	b.ApplyDefaults()
	res := &guard.Result{Brief: b, Trace: []guard.State{guard.StateDrafting, guard.StateParsed, guard.StateSchemaValid}}
	if outcome == model.OutcomeFallback {
		res.Reason = "schema"
	}
	return res
}

func newMocks(outcome model.Outcome) (*MockCollector, *MockGenerator) {
	col := &MockCollector{}
	col.On("Collect", mock.Anything, mock.Anything).Return(collection(), nil)
	gen := &MockGenerator{}
	gen.On("Run", mock.Anything, mock.Anything).Return(func(_ context.Context, in guard.Input) (*guard.Result, error) {
		return guardResult(outcome, in), nil
	})
	return col, gen
}

func TestAnalyze_Success(t *testing.T) {
	col, gen := newMocks(model.OutcomeSuccess)
	st := &MockStore{}
	st.On("RecordRun", mock.Anything, mock.MatchedBy(func(rec model.RunRecord) bool {
		return rec.Outcome == model.OutcomeSuccess &&
			rec.Mode == model.InputModeEmail &&
			rec.EvidenceCount == 2 &&
			rec.AdaptersFailed == 1 &&
			rec.RepairAttempts == 1 &&
			len(rec.InputHash) == 16 &&
			!rec.CacheHit
	})).Return(nil)

	svc := New(Deps{Collector: col, Guard: gen, Store: st})
	res, err := svc.Analyze(context.Background(), identity.Request{Email: "Jane.Doe@acme.io"})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeSuccess, res.Brief.Outcome)
	assert.Equal(t, "jane.doe@acme.io", res.Brief.InputEmail)
	assert.Len(t, res.Brief.Evidence, 2)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.CacheHit)
	assert.Len(t, res.Adapters, 3)
	st.AssertExpectations(t)

	in := gen.Calls[0].Arguments.Get(1).(guard.Input)
	assert.Equal(t, model.LabelHigh, in.Cap)
	assert.Equal(t, 2, in.Evidence.Len())
	assert.Equal(t, "acme.io", in.Identity.CompanyDomain)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	svc := New(Deps{Collector: &MockCollector{}, Guard: &MockGenerator{}})
	_, err := svc.Analyze(context.Background(), identity.Request{Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, identity.IsInvalidInput(err))

	_, err = svc.Analyze(context.Background(), identity.Request{})
	assert.ErrorIs(t, err, identity.ErrEmptyInput)
}

func TestAnalyze_ResolverRunsFirst(t *testing.T) {
	col, gen := newMocks(model.OutcomeSuccess)
	res := &MockResolver{}
	res.On("Resolve", mock.Anything, mock.Anything).Return(func(_ context.Context, id model.Identity) (model.Identity, error) {
		id.CompanyDomain = "acme.io"
		id.CompanyResolution = model.ResolutionSearch
		return id, nil
	})

	svc := New(Deps{Resolver: res, Collector: col, Guard: gen})
	out, err := svc.Analyze(context.Background(), identity.Request{Name: "Jane Doe", Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme.io", out.Identity.CompanyDomain)

	collected := col.Calls[0].Arguments.Get(1).(model.Identity)
	assert.Equal(t, "acme.io", collected.CompanyDomain)
	in := gen.Calls[0].Arguments.Get(1).(guard.Input)
	assert.Equal(t, model.LabelMedium, in.Cap)
}

func TestAnalyze_CachesSuccessOnly(t *testing.T) {
	col, gen := newMocks(model.OutcomeSuccess)
	c := cache.New(cache.NewMemoryBackend(0), time.Minute)
	svc := New(Deps{Collector: col, Guard: gen, Cache: c})
	req := identity.Request{Email: "jane.doe@acme.io"}

	first, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, model.OutcomeSuccess, second.Brief.Outcome)
	assert.Equal(t, 1, second.Brief.RepairAttempts)
	assert.Equal(t, first.Brief.Evidence, second.Brief.Evidence)
	assert.NotEqual(t, first.RunID, second.RunID)
	gen.AssertNumberOfCalls(t, "Run", 1)
}

func TestAnalyze_FallbackNotCached(t *testing.T) {
	col, gen := newMocks(model.OutcomeFallback)
	c := cache.New(cache.NewMemoryBackend(0), time.Minute)
	svc := New(Deps{Collector: col, Guard: gen, Cache: c})
	req := identity.Request{Email: "jane.doe@acme.io"}

	first, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFallback, first.Brief.Outcome)
	assert.Equal(t, "schema", first.Fallback)

	second, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	gen.AssertNumberOfCalls(t, "Run", 2)
}

func TestAnalyze_QuotaPropagates(t *testing.T) {
	col := &MockCollector{}
	col.On("Collect", mock.Anything, mock.Anything).Return(collection(), nil)
	gen := &MockGenerator{}
	qe := generate.NewQuotaExceeded("anthropic", 12*time.Second, assert.AnError)
	gen.On("Run", mock.Anything, mock.Anything).Return(nil, qe)
	st := &MockStore{}

	svc := New(Deps{Collector: col, Guard: gen, Store: st})
	_, err := svc.Analyze(context.Background(), identity.Request{Email: "jane.doe@acme.io"})
	got, ok := generate.AsQuotaExceeded(err)
	require.True(t, ok)
	assert.Equal(t, 12*time.Second, got.RetryAfter)
	st.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything)
}

func TestAnalyze_CollectCancelled(t *testing.T) {
	col := &MockCollector{}
	col.On("Collect", mock.Anything, mock.Anything).Return(nil, context.Canceled)
	gen := &MockGenerator{}

	svc := New(Deps{Collector: col, Guard: gen})
	_, err := svc.Analyze(context.Background(), identity.Request{Email: "jane.doe@acme.io"})
	assert.ErrorIs(t, err, context.Canceled)
	gen.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestAnalyze_StoreFailureIsLogged(t *testing.T) {
	col, gen := newMocks(model.OutcomeSuccess)
	st := &MockStore{}
	st.On("RecordRun", mock.Anything, mock.Anything).Return(assert.AnError)

	svc := New(Deps{Collector: col, Guard: gen, Store: st})
	res, err := svc.Analyze(context.Background(), identity.Request{Email: "jane.doe@acme.io"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, res.Brief.Outcome)
}

func TestRunRecord(t *testing.T) {
	res := &Result{
		RunID:    "r1",
		Brief:    model.Brief{Outcome: model.OutcomeFallback, RepairAttempts: 2, Confidence: model.Verdict{Label: model.LabelLow}},
		Adapters: []adapter.Stat{{Status: adapter.StatusOpen}, {Status: adapter.StatusSkipped}, {Status: adapter.StatusError}},
		Duration: 1500 * time.Millisecond,
	}
	rec := RunRecord(res, "hash", model.InputModeSocial)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, 2, rec.AdaptersFailed)
	assert.Equal(t, int64(1500), rec.DurationMs)
	assert.Equal(t, model.LabelLow, rec.Label)
	assert.False(t, rec.CreatedAt.IsZero())
}
