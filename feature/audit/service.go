package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	engine "payroll-auditor/core/audit"
	"payroll-auditor/core/parser"
	"payroll-auditor/core/storage"
)

// ErrInvalidRequest marks failures caused by the submitted files or settings
// rather than by the service itself.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound is returned when no stored comparison matches the given id.
var ErrNotFound = errors.New("comparison not found")

// Upload is one submitted payroll file.
type Upload struct {
	Filename string
	Data     []byte
}

// Options are the per-request comparison settings. Empty strings fall back
// to the configured engine defaults.
type Options struct {
	// EarningsTolerance is the monetary tolerance as a decimal string.
	EarningsTolerance string
	// NameThreshold is the fuzzy match threshold as a decimal string.
	NameThreshold string
	// FuzzyMatching enables the fuzzy-name matching pass. The upload form
	// uses checkbox semantics: an unchecked box submits nothing and the
	// handler maps that to false.
	FuzzyMatching bool
}

// Comparison is a completed, persisted comparison run.
type Comparison struct {
	// ID is the identifier the stored result can be fetched under.
	ID string `json:"id"`
	// FileA and FileB are the submitted file names.
	FileA string `json:"file_a"`
	FileB string `json:"file_b"`
	// Result is the full engine output.
	Result *engine.Result `json:"result"`
}

// Service runs comparisons and persists their inputs and results.
type Service struct {
	client   storage.Client
	bucket   string
	logger   *zap.Logger
	defaults engine.Config
}

// NewService creates a new audit service.
func NewService(client storage.Client, bucket string, logger *zap.Logger, defaults engine.Config) *Service {
	return &Service{
		client:   client,
		bucket:   bucket,
		logger:   logger,
		defaults: defaults,
	}
}

// Compare runs the engine on two uploaded files and persists the uploads and
// the result JSON under a fresh comparison id.
func (s *Service) Compare(ctx context.Context, fileA, fileB Upload, opts Options) (*Comparison, error) {
	formatA, err := formatFor(fileA.Filename)
	if err != nil {
		return nil, err
	}
	formatB, err := formatFor(fileB.Filename)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configFor(opts)
	if err != nil {
		return nil, err
	}

	result, err := engine.Run(fileA.Data, formatA, fileB.Data, formatB, cfg)
	if err != nil {
		var parseErr *parser.ParseError
		if errors.As(err, &parseErr) || errors.Is(err, parser.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}

	comparison := &Comparison{
		ID:     uuid.NewString(),
		FileA:  safeName(fileA.Filename),
		FileB:  safeName(fileB.Filename),
		Result: result,
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	if err := s.putObject(ctx, uploadKey(comparison.ID, "a", comparison.FileA), fileA.Data, "application/octet-stream"); err != nil {
		return nil, err
	}
	if err := s.putObject(ctx, uploadKey(comparison.ID, "b", comparison.FileB), fileB.Data, "application/octet-stream"); err != nil {
		return nil, err
	}

	resultJSON, err := json.MarshalIndent(comparison, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := s.putObject(ctx, resultKey(comparison.ID), resultJSON, "application/json"); err != nil {
		return nil, err
	}

	s.logger.Info("Comparison stored",
		zap.String("id", comparison.ID),
		zap.String("risk", string(result.Summary.Risk)),
		zap.Int("discrepancies", len(result.Discrepancies)),
	)

	return comparison, nil
}

// Result fetches a stored comparison result as raw JSON.
func (s *Service) Result(ctx context.Context, id string) ([]byte, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: malformed comparison id %q", ErrInvalidRequest, id)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, resultKey(id), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result %s: %w", id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read result %s: %w", id, err)
	}
	return data, nil
}

// List returns the ids of every stored comparison.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: "results/", Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list results: %w", obj.Err)
		}
		id := strings.TrimSuffix(strings.TrimPrefix(obj.Key, "results/"), ".json")
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes a stored comparison result together with its uploaded
// input files.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed comparison id %q", ErrInvalidRequest, id)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, resultKey(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove result %s: %w", id, err)
	}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: "uploads/" + id + "/", Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list uploads for %s: %w", id, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", obj.Key, err)
		}
	}

	s.logger.Info("Comparison deleted", zap.String("id", id))
	return nil
}

// Status reports the engine version and the supported format tags.
func (s *Service) Status() map[string]any {
	return map[string]any{
		"status":            "online",
		"version":           engine.Version,
		"supported_formats": parser.Formats(),
	}
}

// configFor derives the engine configuration for one request from the
// service defaults and the submitted overrides.
func (s *Service) configFor(opts Options) (engine.Config, error) {
	cfg := s.defaults

	if opts.EarningsTolerance != "" {
		tol, err := decimal.NewFromString(opts.EarningsTolerance)
		if err != nil || tol.IsNegative() {
			return engine.Config{}, fmt.Errorf("%w: earnings_tolerance must be a non-negative decimal, got %q", ErrInvalidRequest, opts.EarningsTolerance)
		}
		cfg.EarningsTolerance = tol
	}
	if opts.NameThreshold != "" {
		threshold, err := strconv.ParseFloat(opts.NameThreshold, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			return engine.Config{}, fmt.Errorf("%w: name_threshold must be in [0,1], got %q", ErrInvalidRequest, opts.NameThreshold)
		}
		cfg.NameThreshold = threshold
	}
	cfg.FuzzyMatching = opts.FuzzyMatching

	return cfg, nil
}

// formatFor maps an uploaded file name to its declared format.
func formatFor(filename string) (parser.Format, error) {
	format, ok := parser.FormatForExtension(filepath.Ext(filename))
	if !ok {
		return "", fmt.Errorf("%w: unsupported file type %q (accepted: .xlsx, .xls, .pdf, .csv, .json)", ErrInvalidRequest, filename)
	}
	return format, nil
}

func (s *Service) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *Service) putObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func uploadKey(id, side, filename string) string {
	return "uploads/" + id + "/" + side + "_" + filename
}

func resultKey(id string) string {
	return "results/" + id + ".json"
}

// safeName strips any path components from a client-supplied file name.
func safeName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
