package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/searchcal/internal/domain/search"
	apperrors "github.com/yanqian/searchcal/pkg/errors"
)

type stubIndexer struct {
	putFn func(ctx context.Context, index string, rows []search.Row) error
	index string
	rows  []search.Row
}

func (s *stubIndexer) Put(ctx context.Context, index string, rows []search.Row) error {
	s.index = index
	s.rows = append(s.rows, rows...)
	if s.putFn != nil {
		return s.putFn(ctx, index, rows)
	}
	return nil
}

type stubInvalidator struct {
	calls int
	err   error
}

func (s *stubInvalidator) Invalidate(context.Context) error {
	s.calls++
	return s.err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{Index: "docs", Secret: "test-secret", Issuer: "searchcal", TokenTTL: time.Hour, MaxBatch: 2}
}

func TestIngestAssignsMissingIDs(t *testing.T) {
	indexer := &stubIndexer{}
	inv := &stubInvalidator{}
	svc := NewService(testConfig(), indexer, inv, newTestLogger())

	res, err := svc.Ingest(context.Background(), Request{Documents: []Document{
		{ID: " a ", URL: "/node/a", Fields: map[string]string{"date": "2022-03-04"}},
		{Fields: map[string]string{"date": "2022-03-05"}},
	}})
	require.NoError(t, err)
	require.Equal(t, "docs", res.Index)
	require.Equal(t, 2, res.Indexed)
	require.Equal(t, "a", res.IDs[0])
	_, err = uuid.Parse(res.IDs[1])
	require.NoError(t, err)

	require.Equal(t, "docs", indexer.index)
	require.Len(t, indexer.rows, 2)
	require.Equal(t, "2022-03-05", indexer.rows[1].Field("date"))
	require.Equal(t, 1, inv.calls)
}

func TestIngestValidation(t *testing.T) {
	svc := NewService(testConfig(), &stubIndexer{}, nil, newTestLogger())

	_, err := svc.Ingest(context.Background(), Request{})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Ingest(context.Background(), Request{Documents: []Document{{ID: "a"}}})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	docs := []Document{{Fields: map[string]string{"a": "1"}}, {Fields: map[string]string{"a": "2"}}, {Fields: map[string]string{"a": "3"}}}
	_, err = svc.Ingest(context.Background(), Request{Documents: docs})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	cfg := testConfig()
	cfg.Index = ""
	_, err = NewService(cfg, &stubIndexer{}, nil, newTestLogger()).Ingest(context.Background(), Request{Documents: docs[:1]})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestIngestIndexerFailure(t *testing.T) {
	indexer := &stubIndexer{putFn: func(context.Context, string, []search.Row) error { return errors.New("disk full") }}
	inv := &stubInvalidator{}
	svc := NewService(testConfig(), indexer, inv, newTestLogger())

	_, err := svc.Ingest(context.Background(), Request{Index: "other", Documents: []Document{{Fields: map[string]string{"a": "1"}}}})
	require.True(t, apperrors.IsCode(err, apperrors.CodeIngest))
	require.Zero(t, inv.calls)
}

func TestIngestInvalidationFailureIsNotFatal(t *testing.T) {
	svc := NewService(testConfig(), &stubIndexer{}, &stubInvalidator{err: errors.New("valkey down")}, newTestLogger())
	res, err := svc.Ingest(context.Background(), Request{Documents: []Document{{Fields: map[string]string{"a": "1"}}}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Indexed)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(testConfig(), &stubIndexer{}, nil, newTestLogger())

	token, err := svc.IssueToken("importer", 0)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "importer", claims.Subject)
	require.Equal(t, scopeIngest, claims.Scope)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestValidateTokenRejects(t *testing.T) {
	cfg := testConfig()
	svc := NewService(cfg, &stubIndexer{}, nil, newTestLogger()).(*service)

	other := cfg
	other.Secret = "other-secret"
	forged, err := NewService(other, &stubIndexer{}, nil, newTestLogger()).IssueToken("x", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), forged)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))

	other = cfg
	other.Issuer = "someone-else"
	foreign, err := NewService(other, &stubIndexer{}, nil, newTestLogger()).IssueToken("x", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(context.Background(), foreign)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))

	token, err := svc.IssueToken("x", time.Minute)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = svc.ValidateToken(context.Background(), token)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))

	_, err = svc.ValidateToken(context.Background(), "not-a-jwt")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = ""
	svc := NewService(cfg, &stubIndexer{}, nil, newTestLogger())
	_, err := svc.IssueToken("importer", time.Hour)
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
	_, err = svc.ValidateToken(context.Background(), "x")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}
