package service

import (
	"context"

	"github.com/atinyakov/shortlink/internal/models"
)

//go:generate mockgen -destination=../../mocks/storage.go -package=mocks github.com/atinyakov/shortlink/internal/app/service Storage

// Storage is the persistence contract of the shortener. Lookups report a
// miss as a nil record and a nil error. Create and Update report a taken
// short code with an errx.Conflict error; any other failure leaves the
// store unchanged.
type Storage interface {
	Create(ctx context.Context, longURL, shortCode string) (*models.URL, error)
	FindByCode(ctx context.Context, shortCode string) (*models.URL, error)
	FindByID(ctx context.Context, id int64) (*models.URL, error)
	List(ctx context.Context) ([]models.URL, error)
	ExistsByCode(ctx context.Context, shortCode string) (bool, error)
	Update(ctx context.Context, id int64, shortCode, longURL string) (*models.URL, error)
	Delete(ctx context.Context, id int64) (bool, error)
	PingContext(ctx context.Context) error
}

//go:generate mockgen -destination=../../mocks/service.go -package=mocks github.com/atinyakov/shortlink/internal/app/service URLServiceIface

// URLServiceIface is what the transports need from the shortening engine.
type URLServiceIface interface {
	Shorten(ctx context.Context, longURL string) (*models.URL, error)
	Resolve(ctx context.Context, shortCode string) (string, bool, error)
	Get(ctx context.Context, id int64) (*models.URL, error)
	List(ctx context.Context) ([]models.URL, error)
	Update(ctx context.Context, id int64, shortCode, longURL string) (*models.URL, error)
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteBatch(ctx context.Context, ids []int64) error
	ShortURL(shortCode string) string
	PingContext(ctx context.Context) error
}
