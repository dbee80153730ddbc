// Package service implements the URL shortening engine and the token based
// authentication used to guard its mutating operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/models"
	"github.com/atinyakov/shortlink/internal/worker"
)

const (
	DefaultMaxURLLength = 2048
	DefaultMaxAttempts  = 10
	MaxCodeLength       = 64
)

// Options configures a URLService. Zero values fall back to the defaults.
type Options struct {
	BaseURL      string
	CodeLength   int
	MaxURLLength int
	MaxAttempts  int
}

// URLService allocates short codes and resolves them back to long URLs.
// It keeps no state between store calls apart from the delete queue, so the
// store's uniqueness constraint is the only authority on code ownership.
type URLService struct {
	repository   Storage
	generator    CodeGenerator
	logger       *zap.Logger
	baseURL      string
	codeLength   int
	maxURLLength int
	maxAttempts  int
	ch           chan<- int64
	workerDone   <-chan struct{}
}

// NewURL builds the engine and starts its batch delete worker, which stops
// when ctx is cancelled.
func NewURL(ctx context.Context, repo Storage, gen CodeGenerator, logger *zap.Logger, opts Options) *URLService {
	if gen == nil {
		gen = NewRandomGenerator(Alphabet)
	}
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	if opts.MaxURLLength <= 0 {
		opts.MaxURLLength = DefaultMaxURLLength
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	w := worker.NewDeleteTaskWorker(logger, repo)
	go w.FlushRecords(ctx)

	return &URLService{
		repository:   repo,
		generator:    gen,
		logger:       logger,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		codeLength:   opts.CodeLength,
		maxURLLength: opts.MaxURLLength,
		maxAttempts:  opts.MaxAttempts,
		ch:           w.GetInChannel(),
		workerDone:   w.Done(),
	}
}

// Wait blocks until the delete worker has flushed and stopped.
func (s *URLService) Wait() {
	<-s.workerDone
}

func (s *URLService) PingContext(ctx context.Context) error {
	return s.repository.PingContext(ctx)
}

// ShortURL returns the public link for a short code.
func (s *URLService) ShortURL(shortCode string) string {
	return s.baseURL + "/" + shortCode
}

// Shorten stores longURL under a freshly generated short code. Every taken
// candidate, whether seen by the existence probe or rejected by the store,
// consumes one attempt; when none are left an errx.Exhausted error is returned.
func (s *URLService) Shorten(ctx context.Context, longURL string) (*models.URL, error) {
	const op = "service.Shorten"

	if err := s.validateURL(longURL); err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generator.Generate(s.codeLength)
		if err != nil {
			return nil, errx.E(op, errx.Internal, err)
		}

		taken, err := s.repository.ExistsByCode(ctx, code)
		if err != nil {
			return nil, errx.E(op, errx.Unavailable, err)
		}
		if taken {
			s.logger.Debug("candidate code taken", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}

		record, err := s.repository.Create(ctx, longURL, code)
		if errx.Is(err, errx.Conflict) {
			s.logger.Debug("candidate code lost a race", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, errx.E(op, errx.Unavailable, err)
		}

		s.logger.Info("short code allocated",
			zap.Int64("id", record.ID),
			zap.String("code", record.ShortCode),
			zap.Int("attempts", attempt),
		)
		return record, nil
	}

	s.logger.Warn("short code space exhausted", zap.Int("attempts", s.maxAttempts), zap.Int("length", s.codeLength))
	return nil, errx.Errorf(op, errx.Exhausted, "no free short code after %d attempts", s.maxAttempts)
}

// Resolve returns the long URL behind shortCode. A miss is reported as
// false, not as an error.
func (s *URLService) Resolve(ctx context.Context, shortCode string) (string, bool, error) {
	const op = "service.Resolve"

	if shortCode == "" {
		return "", false, nil
	}

	record, err := s.repository.FindByCode(ctx, shortCode)
	if err != nil {
		return "", false, errx.E(op, errx.Unavailable, err)
	}
	if record == nil {
		return "", false, nil
	}

	return record.LongURL, true, nil
}

// Get returns the record with id, or nil if there is none.
func (s *URLService) Get(ctx context.Context, id int64) (*models.URL, error) {
	const op = "service.Get"

	record, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	return record, nil
}

// List returns every record, newest first.
func (s *URLService) List(ctx context.Context) ([]models.URL, error) {
	const op = "service.List"

	records, err := s.repository.List(ctx)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	if records == nil {
		records = []models.URL{}
	}
	return records, nil
}

// Update replaces the short code and long URL of the record with id.
func (s *URLService) Update(ctx context.Context, id int64, shortCode, longURL string) (*models.URL, error) {
	const op = "service.Update"

	if err := s.validateURL(longURL); err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}
	if err := validateCode(shortCode); err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}

	owner, err := s.repository.FindByCode(ctx, shortCode)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	if owner != nil && owner.ID != id {
		return nil, errx.Errorf(op, errx.DuplicateCode, "short code %q is already in use", shortCode)
	}

	record, err := s.repository.Update(ctx, id, shortCode, longURL)
	if errx.Is(err, errx.Conflict) {
		return nil, errx.E(op, errx.DuplicateCode, fmt.Errorf("short code %q is already in use: %w", shortCode, err))
	}
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	if record == nil {
		return nil, errx.Errorf(op, errx.NotFound, "url %d not found", id)
	}

	return record, nil
}

// Delete removes the record with id and reports whether it existed.
func (s *URLService) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "service.Delete"

	deleted, err := s.repository.Delete(ctx, id)
	if err != nil {
		return false, errx.E(op, errx.Unavailable, err)
	}
	return deleted, nil
}

// DeleteBatch queues ids for asynchronous deletion.
func (s *URLService) DeleteBatch(ctx context.Context, ids []int64) error {
	const op = "service.DeleteBatch"

	select {
	case <-s.workerDone:
		return errx.E(op, errx.Unavailable, errors.New("delete worker stopped"))
	default:
	}

	s.logger.Info("queueing delete tasks", zap.Int("count", len(ids)))
	for _, id := range ids {
		select {
		case s.ch <- id:
		case <-s.workerDone:
			return errx.E(op, errx.Unavailable, errors.New("delete worker stopped"))
		case <-ctx.Done():
			return errx.E(op, errx.Unavailable, ctx.Err())
		}
	}
	return nil
}

func (s *URLService) validateURL(longURL string) error {
	if strings.TrimSpace(longURL) == "" {
		return errors.New("url must not be empty")
	}
	if utf8.RuneCountInString(longURL) > s.maxURLLength {
		return fmt.Errorf("url is longer than %d characters", s.maxURLLength)
	}
	return nil
}

func validateCode(code string) error {
	if code == "" {
		return errors.New("short code must not be empty")
	}
	if len(code) > MaxCodeLength {
		return fmt.Errorf("short code is longer than %d characters", MaxCodeLength)
	}
	if !InAlphabet(code) {
		return errors.New("short code may only contain letters and digits")
	}
	return nil
}
