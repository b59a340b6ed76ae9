package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yanqian/searchcal/internal/domain/search"
	apperrors "github.com/yanqian/searchcal/pkg/errors"
	"github.com/yanqian/searchcal/pkg/util"
)

const (
	scopeIngest     = "ingest"
	defaultMaxBatch = 1000
)

// Service stores documents and guards the write path with service tokens.
type Service interface {
	Ingest(ctx context.Context, req Request) (Result, error)
	ValidateToken(ctx context.Context, token string) (Claims, error)
	IssueToken(subject string, ttl time.Duration) (string, error)
}

type service struct {
	cfg         Config
	indexer     search.Indexer
	invalidator Invalidator
	logger      *slog.Logger
	now         util.Clock
}

// NewService constructs a Service instance. invalidator may be nil.
func NewService(cfg Config, indexer search.Indexer, invalidator Invalidator, logger *slog.Logger) Service {
	return &service{
		cfg:         cfg,
		indexer:     indexer,
		invalidator: invalidator,
		logger:      logger.With("component", "ingest.service"),
		now:         util.NowUTC,
	}
}

func (s *service) Ingest(ctx context.Context, req Request) (Result, error) {
	index := strings.TrimSpace(req.Index)
	if index == "" {
		index = s.cfg.Index
	}
	if index == "" {
		return Result{}, apperrors.Wrap(apperrors.CodeInvalidInput, "index is required", nil)
	}
	if len(req.Documents) == 0 {
		return Result{}, apperrors.Wrap(apperrors.CodeInvalidInput, "documents cannot be empty", nil)
	}
	maxBatch := s.cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	if len(req.Documents) > maxBatch {
		return Result{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("at most %d documents per request", maxBatch), nil)
	}

	rows := make([]search.Row, 0, len(req.Documents))
	ids := make([]string, 0, len(req.Documents))
	for i, doc := range req.Documents {
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			id = uuid.NewString()
		}
		if len(doc.Fields) == 0 {
			return Result{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("document %d has no fields", i), nil)
		}
		fields := make(map[string]string, len(doc.Fields))
		for k, v := range doc.Fields {
			fields[k] = v
		}
		rows = append(rows, search.Row{ID: id, URL: strings.TrimSpace(doc.URL), Fields: fields})
		ids = append(ids, id)
	}

	if err := s.indexer.Put(ctx, index, rows); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeIngest, "failed to store documents", err)
	}
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("year cache invalidation failed", "error", err)
		}
	}
	s.logger.Info("documents ingested", "index", index, "count", len(rows))
	return Result{Index: index, Indexed: len(rows), IDs: ids}, nil
}

func (s *service) IssueToken(subject string, ttl time.Duration) (string, error) {
	if s.cfg.Secret == "" {
		return "", apperrors.Wrap(apperrors.CodeConfig, "ingest secret is not configured", nil)
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "subject cannot be empty", nil)
	}
	if ttl <= 0 {
		ttl = s.cfg.TokenTTL
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := s.now()
	claims := tokenClaims{
		Scope: scopeIngest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeConfig, "failed to sign token", err)
	}
	return signed, nil
}

func (s *service) ValidateToken(_ context.Context, token string) (Claims, error) {
	if s.cfg.Secret == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "ingest is disabled", nil)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token invalid", nil)
	}
	if claims.Scope != scopeIngest {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token lacks ingest scope", nil)
	}
	return Claims{
		Subject:   claims.Subject,
		Scope:     claims.Scope,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}
