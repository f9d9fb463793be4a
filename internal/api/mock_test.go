package api

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/openkiosk/priceboard/internal/model"
	"github.com/openkiosk/priceboard/internal/pipeline"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunOnce(ctx context.Context) (pipeline.Result, error) {
	args := m.Called(ctx)
	return args.Get(0).(pipeline.Result), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertPriceFacts(ctx context.Context, facts []model.PriceFact) (int, error) {
	args := m.Called(ctx, facts)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) LatestPriceFacts(ctx context.Context, limit int) ([]model.PriceFact, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PriceFact), args.Error(1)
}

func (m *mockStore) CreateUser(ctx context.Context, email string, passwordHash string) (*model.User, error) {
	args := m.Called(ctx, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockStore) CreateDisplay(ctx context.Context, userID string, name string, payload json.RawMessage) (*model.Display, error) {
	args := m.Called(ctx, userID, name, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Display), args.Error(1)
}

func (m *mockStore) GetDisplay(ctx context.Context, userID string, id string) (*model.Display, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Display), args.Error(1)
}

func (m *mockStore) ListDisplays(ctx context.Context, userID string) ([]model.Display, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Display), args.Error(1)
}

func (m *mockStore) UpdateDisplay(ctx context.Context, userID string, id string, name string, payload json.RawMessage) (*model.Display, error) {
	args := m.Called(ctx, userID, id, name, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Display), args.Error(1)
}

func (m *mockStore) DeleteDisplay(ctx context.Context, userID string, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
