package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ChemStor-Intelligence/internal/domain/sorting"
	"github.com/turtacn/ChemStor-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemStor-Intelligence/pkg/errors"
)

var ErrReportNotFound = errors.New(errors.ErrCodeNotFound, "sort run report not found")

const (
	reportPrefix      = "sort-runs/"
	reportSuffix      = ".json"
	reportContentType = "application/json"

	reportSchemaVersion = 1

	maxReportList = 1000
)

// RunReport is the archived form of a sort run.  SchemaVersion guards readers
// against future layout changes.
type RunReport struct {
	SchemaVersion int              `json:"schema_version"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Run           *sorting.SortRun `json:"run"`
}

// ReportRef identifies a stored report.
type ReportRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	ETag   string `json:"etag,omitempty"`
	Size   int64  `json:"size"`
}

// ReportInfo is one entry of a report listing.
type ReportInfo struct {
	RunID        string    `json:"run_id"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ReportStore persists sort-run reports as JSON objects keyed by run ID.
type ReportStore struct {
	client *Client
	logger logging.Logger
	now    func() time.Time
}

// NewReportStore builds a report store over the shared client.
func NewReportStore(client *Client, log logging.Logger) *ReportStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ReportStore{
		client: client,
		logger: log.Named("minio.reports"),
		now:    time.Now,
	}
}

// Save renders the run to JSON and uploads it under sort-runs/<runID>.json.
// Saving the same run again overwrites the previous report.
func (s *ReportStore) Save(ctx context.Context, run *sorting.SortRun) (*ReportRef, error) {
	if run == nil || run.ID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "sort run with an ID is required")
	}

	report := RunReport{
		SchemaVersion: reportSchemaVersion,
		GeneratedAt:   s.now().UTC(),
		Run:           run,
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode sort run report")
	}

	key := reportKey(string(run.ID))
	opts := minio.PutObjectOptions{
		ContentType: reportContentType,
		UserMetadata: map[string]string{
			"run-id":  string(run.ID),
			"trigger": run.Trigger,
		},
	}
	info, err := s.client.API().PutObject(ctx, s.client.Bucket(), key,
		bytes.NewReader(payload), int64(len(payload)), opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to upload sort run report").
			WithDetail("run_id=" + string(run.ID))
	}

	s.logger.Debug("report saved",
		logging.String("run_id", string(run.ID)),
		logging.String("key", key),
		logging.Int64("size", info.Size),
	)
	return &ReportRef{Bucket: info.Bucket, Key: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

// Load fetches and decodes the report for the given run.
func (s *ReportStore) Load(ctx context.Context, runID string) (*RunReport, error) {
	if runID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "run id is required")
	}

	rc, _, err := s.client.API().FetchObject(ctx, s.client.Bucket(), reportKey(runID), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrReportNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to download sort run report")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to read sort run report")
	}

	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed sort run report").
			WithDetail("run_id=" + runID)
	}
	return &report, nil
}

// Delete removes the report.  Deleting a report that was never written is not
// an error.
func (s *ReportStore) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return errors.New(errors.ErrCodeValidation, "run id is required")
	}
	key := reportKey(runID)
	if err := s.client.API().RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to delete sort run report")
	}
	s.logger.Debug("report deleted", logging.String("key", key))
	return nil
}

// PresignedURL returns a time-limited download link for the report.  A zero
// expiry falls back to the configured default.
func (s *ReportStore) PresignedURL(ctx context.Context, runID string, expiry time.Duration) (string, error) {
	if runID == "" {
		return "", errors.New(errors.ErrCodeValidation, "run id is required")
	}
	if expiry <= 0 {
		expiry = s.client.PresignExpiry()
	}
	key := reportKey(runID)

	if _, err := s.client.API().StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return "", ErrReportNotFound
		}
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to stat sort run report")
	}

	reqParams := url.Values{}
	reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", runID+reportSuffix))
	u, err := s.client.API().PresignedGetObject(ctx, s.client.Bucket(), key, expiry, reqParams)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign report URL")
	}
	return u.String(), nil
}

// List enumerates stored reports, newest keys last in bucket order, up to
// limit entries.
func (s *ReportStore) List(ctx context.Context, limit int) ([]ReportInfo, error) {
	if limit <= 0 || limit > maxReportList {
		limit = maxReportList
	}

	// Cancelling the derived context stops the SDK listing goroutine when we
	// bail out early.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	infos := make([]ReportInfo, 0, 16)
	for obj := range s.client.API().ListObjects(listCtx, s.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    reportPrefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "failed to list sort run reports")
		}
		if !strings.HasSuffix(obj.Key, reportSuffix) {
			continue
		}
		infos = append(infos, ReportInfo{
			RunID:        runIDFromKey(obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
		if len(infos) >= limit {
			break
		}
	}
	return infos, nil
}

func reportKey(runID string) string {
	return reportPrefix + runID + reportSuffix
}

func runIDFromKey(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, reportPrefix), reportSuffix)
}

// isNoSuchKey recognises the S3 missing-object error.
func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

//Personal.AI order the ending
