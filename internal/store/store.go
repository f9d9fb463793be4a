package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/openkiosk/priceboard/internal/model"
)

// ErrNotFound is returned when a requested row does not exist or belongs to
// another user.
var ErrNotFound = eris.New("store: not found")

// ErrConflict is returned when an insert collides with a uniqueness
// constraint that is not silently skippable (e.g. duplicate email).
var ErrConflict = eris.New("store: conflict")

// Store defines the persistence interface for priceboard.
type Store interface {
	// Price facts
	InsertPriceFacts(ctx context.Context, facts []model.PriceFact) (int, error)
	LatestPriceFacts(ctx context.Context, limit int) ([]model.PriceFact, error)

	// Users
	CreateUser(ctx context.Context, email string, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// Displays
	CreateDisplay(ctx context.Context, userID string, name string, payload json.RawMessage) (*model.Display, error)
	GetDisplay(ctx context.Context, userID string, id string) (*model.Display, error)
	ListDisplays(ctx context.Context, userID string) ([]model.Display, error)
	UpdateDisplay(ctx context.Context, userID string, id string, name string, payload json.RawMessage) (*model.Display, error)
	DeleteDisplay(ctx context.Context, userID string, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
