package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/meetingintel/internal/adapter"
	"github.com/sells-group/meetingintel/internal/guard"
	"github.com/sells-group/meetingintel/internal/model"
	"github.com/sells-group/meetingintel/internal/store"
)

type MockCollector struct {
	mock.Mock
}

func (m *MockCollector) Collect(ctx context.Context, id model.Identity) (*adapter.Collection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*adapter.Collection), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, id model.Identity) (model.Identity, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(context.Context, model.Identity) (model.Identity, error)); ok {
		return fn(ctx, id)
	}
	return args.Get(0).(model.Identity), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Run(ctx context.Context, in guard.Input) (*guard.Result, error) {
	args := m.Called(ctx, in)
	if fn, ok := args.Get(0).(func(context.Context, guard.Input) (*guard.Result, error)); ok {
		return fn(ctx, in)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*guard.Result), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) RecordRun(ctx context.Context, rec model.RunRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockStore) RecordRuns(ctx context.Context, recs []model.RunRecord) error {
	return m.Called(ctx, recs).Error(0)
}

func (m *MockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.RunRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RunRecord), args.Error(1)
}

func (m *MockStore) RunStats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunStats), args.Error(1)
}

func (m *MockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *MockStore) Close() error { return m.Called().Error(0) }
