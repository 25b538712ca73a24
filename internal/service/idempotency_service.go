package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/resource-conflict-api/internal/models"
	appErrors "github.com/noah-isme/resource-conflict-api/pkg/errors"
)

const (
	maxIdempotencyKeyLength = 255
	inFlightTTL             = 30 * time.Second
)

// IdempotencyStore persists replayable responses.
type IdempotencyStore interface {
	Enabled() bool
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Save(ctx context.Context, key string, record models.IdempotencyRecord, ttl time.Duration) error
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

// IdempotencyService replays the first successful response for an Idempotency-Key. Store
// failures never block a request: the key is then ignored.
type IdempotencyService struct {
	repo    IdempotencyStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewIdempotencyService constructs the service.
func NewIdempotencyService(repo IdempotencyStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *IdempotencyService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyService{repo: repo, metrics: metrics, ttl: ttl, logger: logger}
}

// Enabled indicates whether replay is active.
func (s *IdempotencyService) Enabled() bool {
	return s != nil && s.repo != nil && s.repo.Enabled()
}

// ValidateKey checks the header value.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > maxIdempotencyKeyLength {
		return appErrors.Validation("invalid idempotency key", map[string]string{"Idempotency-Key": "must be 1-255 characters"})
	}
	return nil
}

// Fingerprint identifies a request body so a reused key with a different payload is refused.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the stored response for key, if any.
func (s *IdempotencyService) Lookup(ctx context.Context, key, fingerprint string) (*models.IdempotencyRecord, bool, error) {
	if !s.Enabled() {
		return nil, false, nil
	}
	record, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false, nil
	}
	if record.Fingerprint != fingerprint {
		return nil, false, appErrors.Clone(appErrors.ErrConflict, "idempotency key reused with a different request")
	}
	s.metrics.RecordReplay()
	return record, true, nil
}

// Begin marks key as in flight. A concurrent request holding the same key is refused.
func (s *IdempotencyService) Begin(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	ok, err := s.repo.Acquire(ctx, key, inFlightTTL)
	if err != nil {
		s.logger.Warn("idempotency acquire failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrConflict, "a request with this idempotency key is already in progress")
	}
	return nil
}

// Remember stores a successful response for replay. Other statuses are not kept so the
// caller may retry them.
func (s *IdempotencyService) Remember(ctx context.Context, key, fingerprint string, status int, body interface{}) {
	if !s.Enabled() || status < 200 || status > 299 {
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Warn("idempotency encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	record := models.IdempotencyRecord{
		Fingerprint: fingerprint,
		Status:      status,
		Body:        payload,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, key, record, s.ttl); err != nil {
		s.logger.Warn("idempotency save failed", zap.String("key", key), zap.Error(err))
	}
}

// Release clears the in-flight marker for key.
func (s *IdempotencyService) Release(ctx context.Context, key string) {
	if !s.Enabled() {
		return
	}
	s.repo.Release(ctx, key)
}
