package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by ExportStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one line of an org's monthly export manifest.
type ManifestEntry struct {
	Key         string `json:"key"`
	OrgID       string `json:"org_id"`
	Format      string `json:"format"`
	Bytes       int    `json:"bytes"`
	ArchivedAt  string `json:"archived_at"`
	ContentType string `json:"content_type"`
}

// ExportStore keeps contact exports in S3.
type ExportStore struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
	now      func() time.Time
}

// NewExportStore creates an ExportStore. If bucket is empty, Enabled reports false.
func NewExportStore(s3Client S3API, bucket string, logger *slog.Logger) *ExportStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStore{
		bucket:   bucket,
		s3Client: s3Client,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *ExportStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveExport uploads body and records it in the org's manifest. It returns
// the object key.
func (s *ExportStore) ArchiveExport(ctx context.Context, orgID, ext, contentType string, body []byte) (string, error) {
	if !s.Enabled() {
		return "", errors.New("archive: export archive disabled")
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return "", errors.New("archive: org id required")
	}

	now := s.now()
	key := fmt.Sprintf("exports/v1/%s/%d/%02d/%02d/contacts-%s-%s.%s",
		orgID, now.Year(), now.Month(), now.Day(),
		now.Format("150405"), uuid.NewString()[:8], ext)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("archived contact export to S3",
		"org_id", orgID,
		"s3_key", key,
		"bytes", len(body),
	)

	entry := ManifestEntry{
		Key:         key,
		OrgID:       orgID,
		Format:      ext,
		Bytes:       len(body),
		ArchivedAt:  now.Format(time.RFC3339),
		ContentType: contentType,
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		// the export itself is stored; a missing manifest line is recoverable
		s.logger.Warn("failed to append manifest", "error", err, "s3_key", key)
	}
	return key, nil
}

// AppendManifest appends a JSONL line to the org's monthly manifest.
// Uses read-modify-write since S3 doesn't support append.
func (s *ExportStore) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}

	now := s.now()
	manifestKey := fmt.Sprintf("exports/v1/%s/manifests/%d-%02d.jsonl", entry.OrgID, now.Year(), now.Month())

	var existing []byte
	getResp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(manifestKey),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(getResp.Body)
		getResp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", manifestKey)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "StatusCode: 404")
}
