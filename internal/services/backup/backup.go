// Package backup uploads nightly snapshots of the data directory's SQLite
// databases to S3. Snapshots are staged locally with VACUUM INTO so live
// connections keep writing while the copy is taken, verified, then uploaded
// under a date-keyed prefix. Old remote snapshots are rotated out.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/database"
)

const (
	// defaultKeepDays bounds how long remote snapshots are retained.
	defaultKeepDays = 30

	// runTimeout bounds a full backup run including uploads and rotation.
	runTimeout = 5 * time.Minute

	// deleteBatchSize is the S3 DeleteObjects per-request cap.
	deleteBatchSize = 1000
)

// Uploader uploads a single object. *manager.Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ObjectStore lists and deletes objects. *s3.Client satisfies it.
type ObjectStore interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// NewS3Client builds an S3 client from the ambient AWS configuration
// (environment, shared config files, instance role).
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Service snapshots the cache database and every per-account transaction
// ledger in the data directory, then uploads the snapshots to S3.
type Service struct {
	uploader Uploader
	store    ObjectStore
	db       *database.DB
	dataDir  string
	bucket   string
	prefix   string
	keepDays int
	log      zerolog.Logger
}

// NewService creates the backup service. The caller is expected to gate
// construction on a configured bucket name.
func NewService(
	uploader Uploader,
	store ObjectStore,
	db *database.DB,
	dataDir string,
	bucket string,
	prefix string,
	log zerolog.Logger,
) *Service {
	return &Service{
		uploader: uploader,
		store:    store,
		db:       db,
		dataDir:  dataDir,
		bucket:   bucket,
		prefix:   prefix,
		keepDays: defaultKeepDays,
		log:      log.With().Str("service", "backup").Logger(),
	}
}

// Backup stages snapshots of every database file, uploads them under
// <prefix>/<YYYY-MM-DD>/, and rotates remote snapshots past the retention
// window. A rotation failure does not fail the run once uploads succeeded.
func (s *Service) Backup() error {
	s.log.Info().Str("bucket", s.bucket).Msg("Starting backup")
	startTime := time.Now()

	stageDir, err := os.MkdirTemp("", "etrade-backup-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stageDir)

	staged, err := s.stage(stageDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	date := time.Now().UTC().Format("2006-01-02")
	for _, file := range staged {
		key := path.Join(s.prefix, date, filepath.Base(file))
		if err := s.upload(ctx, file, key); err != nil {
			return fmt.Errorf("failed to upload %s: %w", filepath.Base(file), err)
		}
	}

	if err := s.rotate(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate old backups")
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Int("files", len(staged)).
		Str("bucket", s.bucket).
		Msg("Backup complete")

	return nil
}

// stage snapshots every database into stageDir and returns the staged paths.
// The cache snapshot is taken through the live connection; ledger files are
// opened read-side so VACUUM INTO sees a consistent copy regardless of
// concurrent writers.
func (s *Service) stage(stageDir string) ([]string, error) {
	var staged []string

	cachePath := filepath.Join(stageDir, filepath.Base(s.db.Path()))
	if _, err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", cachePath)); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", s.db.Name(), err)
	}
	if err := verifySnapshot(cachePath); err != nil {
		return nil, fmt.Errorf("staged %s failed verification: %w", s.db.Name(), err)
	}
	staged = append(staged, cachePath)

	ledgers, err := filepath.Glob(filepath.Join(s.dataDir, "txledger_*.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory: %w", err)
	}

	for _, src := range ledgers {
		dst := filepath.Join(stageDir, filepath.Base(src))
		if err := snapshotFile(src, dst); err != nil {
			s.log.Error().Err(err).Str("file", filepath.Base(src)).Msg("Failed to stage ledger, skipping")
			continue
		}
		staged = append(staged, dst)
	}

	return staged, nil
}

// snapshotFile copies src to dst through VACUUM INTO and verifies the result.
func snapshotFile(src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", dst)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}

	return verifySnapshot(dst)
}

// verifySnapshot runs an integrity check against a staged snapshot.
func verifySnapshot(snapshotPath string) error {
	db, err := sql.Open("sqlite", snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

func (s *Service) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open staged snapshot: %w", err)
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return err
	}

	s.log.Debug().Str("key", key).Msg("Uploaded snapshot")
	return nil
}

// rotate deletes remote snapshots older than the retention window. Keys that
// do not carry a parseable date segment are left alone.
func (s *Service) rotate(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.keepDays)

	var stale []types.ObjectIdentifier
	var token *string
	for {
		out, err := s.store.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.listPrefix()),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("failed to list backup objects: %w", err)
		}

		for _, obj := range out.Contents {
			date, ok := s.snapshotDate(aws.ToString(obj.Key))
			if !ok {
				continue
			}
			if date.Before(cutoff) {
				stale = append(stale, types.ObjectIdentifier{Key: obj.Key})
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}

	if len(stale) == 0 {
		return nil
	}

	for start := 0; start < len(stale); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(stale))
		_, err := s.store.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: stale[start:end],
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete old backups: %w", err)
		}
	}

	s.log.Info().Int("objects", len(stale)).Msg("Rotated old backups")
	return nil
}

func (s *Service) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

// snapshotDate extracts the date segment from <prefix>/<YYYY-MM-DD>/<file>.
func (s *Service) snapshotDate(key string) (time.Time, bool) {
	rest := strings.TrimPrefix(key, s.listPrefix())
	segment, _, found := strings.Cut(rest, "/")
	if !found {
		return time.Time{}, false
	}

	date, err := time.Parse("2006-01-02", segment)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// Job wraps the service for the scheduler.
type Job struct {
	service *Service
}

// NewJob creates the backup job.
func NewJob(service *Service) *Job {
	return &Job{service: service}
}

// Name returns the job name
func (j *Job) Name() string {
	return "backup"
}

// Run executes a backup.
func (j *Job) Run() error {
	return j.service.Backup()
}
