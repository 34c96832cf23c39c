package monitoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand/v2"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"carbon-scribe/project-portal/ledger-backend/pkg/geospatial"
	"carbon-scribe/project-portal/ledger-backend/pkg/storage"
)

var (
	ErrNotFound          = errors.New("monitoring record not found")
	ErrInvalidInput      = errors.New("invalid monitoring record")
	ErrPhotosUnavailable = errors.New("photo storage is not configured")
)

// Config holds monitoring service settings
type Config struct {
	RecentWindowDays int
	PhotoBucket      string
	PhotoURLExpiry   time.Duration
}

// PhotoUpload is a photo to attach to a record
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Caption     string
	Body        io.Reader
}

// Service handles monitoring business logic
type Service struct {
	repo   Repository
	photos storage.S3Client
	config Config
	logger *zap.Logger
	now    func() time.Time
	intn   func(n int) int
}

// NewService creates a monitoring service. photos may be nil.
func NewService(repo Repository, photos storage.S3Client, config Config, logger *zap.Logger) *Service {
	if config.RecentWindowDays <= 0 {
		config.RecentWindowDays = DefaultRecentWindowDays
	}
	if config.PhotoURLExpiry <= 0 {
		config.PhotoURLExpiry = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		photos: photos,
		config: config,
		logger: logger,
		now:    time.Now,
		intn:   mathrand.IntN,
	}
}

// List returns records matching filter, newest first
func (s *Service) List(ctx context.Context, filter Filter) ([]MonitoringRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MonitoringRecord, 0, len(records))
	for _, r := range records {
		if filter.ProjectID != "" && r.ProjectID != filter.ProjectID {
			continue
		}
		if filter.DataType != "" && r.DataType != filter.DataType {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Sites returns the located records matching filter as GeoJSON points.
// Records without coordinates are left out.
func (s *Service) Sites(ctx context.Context, filter Filter) (*geojson.FeatureCollection, error) {
	records, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	sites := make([]geospatial.Site, 0, len(records))
	for _, r := range records {
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}
		sites = append(sites, geospatial.Site{
			ID:        r.ID,
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
			Properties: map[string]any{
				"project_id":          r.ProjectID,
				"project_name":        r.ProjectName,
				"data_type":           r.DataType,
				"monitoring_date":     r.MonitoringDate,
				"verification_status": r.VerificationStatus,
				"priority":            r.Priority,
			},
		})
	}
	return geospatial.FeatureCollection(sites), nil
}

// Get returns one record
func (s *Service) Get(ctx context.Context, id string) (MonitoringRecord, error) {
	rec, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return MonitoringRecord{}, err
	}
	if !ok {
		return MonitoringRecord{}, ErrNotFound
	}
	return rec, nil
}

// Create inserts rec, or replaces the record with the same id.
func (s *Service) Create(ctx context.Context, rec MonitoringRecord) (MonitoringRecord, error) {
	if err := validate(rec); err != nil {
		return MonitoringRecord{}, err
	}

	now := s.now()
	generated := rec.ID == ""
	if generated {
		rec.ID = NewRecordID(now, s.intn)
	} else if rec.CreatedAt.IsZero() {
		existing, ok, err := s.repo.Get(ctx, rec.ID)
		if err != nil {
			return MonitoringRecord{}, err
		}
		if ok {
			rec.CreatedAt = existing.CreatedAt
		}
	}

	if rec.MonitoringDate.IsZero() {
		rec.MonitoringDate = now
	}
	if rec.VerificationStatus == "" {
		rec.VerificationStatus = VerificationPending
	}
	if rec.SyncStatus == "" {
		rec.SyncStatus = SyncLocal
	}
	if rec.Priority == "" {
		rec.Priority = PriorityMedium
	}
	if rec.Photos == nil {
		rec.Photos = []Photo{}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return MonitoringRecord{}, err
	}
	if generated {
		if err := s.repo.SetLastRecordID(ctx, rec.ID); err != nil {
			s.logger.Warn("Failed to store last monitoring id", zap.Error(err))
		}
	}

	s.logger.Info("Monitoring record saved",
		zap.String("record_id", rec.ID),
		zap.String("project_id", rec.ProjectID),
		zap.String("data_type", string(rec.DataType)))
	return rec, nil
}

// Update replaces a stored record. It reports false when the id is unknown.
func (s *Service) Update(ctx context.Context, rec MonitoringRecord) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if err := validate(rec); err != nil {
		return false, err
	}
	if rec.Photos == nil {
		rec.Photos = []Photo{}
	}
	return s.repo.Update(ctx, rec)
}

func validate(rec MonitoringRecord) error {
	if rec.DataType != "" && !rec.DataType.Valid() {
		return fmt.Errorf("%w: unknown data type %q", ErrInvalidInput, rec.DataType)
	}
	if rec.VerificationStatus != "" && !rec.VerificationStatus.Valid() {
		return fmt.Errorf("%w: unknown verification status %q", ErrInvalidInput, rec.VerificationStatus)
	}
	if rec.SyncStatus != "" && !rec.SyncStatus.Valid() {
		return fmt.Errorf("%w: unknown sync status %q", ErrInvalidInput, rec.SyncStatus)
	}
	if rec.Priority != "" && !rec.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, rec.Priority)
	}
	return nil
}

// Delete removes a record. Unknown ids are ignored.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Clear removes every record and the last generated id
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Monitoring ledger cleared")
	return nil
}

// LastRecordID returns the most recently generated record id
func (s *Service) LastRecordID(ctx context.Context) (string, error) {
	return s.repo.LastRecordID(ctx)
}

// UpdateVerificationStatus sets the verification status and appends an audit
// line to the record notes.
func (s *Service) UpdateVerificationStatus(ctx context.Context, id string, status VerificationStatus, note, reviewer string) (MonitoringRecord, error) {
	if !status.Valid() {
		return MonitoringRecord{}, fmt.Errorf("%w: unknown verification status %q", ErrInvalidInput, status)
	}

	now := s.now()
	entry := auditNote(now, status, note, reviewer)
	return s.patch(ctx, id, func(r MonitoringRecord) MonitoringRecord {
		r.VerificationStatus = status
		if r.Notes == "" {
			r.Notes = entry
		} else {
			r.Notes = r.Notes + "\n" + entry
		}
		return r
	})
}

func auditNote(at time.Time, status VerificationStatus, note, reviewer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Verification status changed to %s", at.UTC().Format(time.RFC3339), status)
	if reviewer != "" {
		fmt.Fprintf(&b, " by %s", reviewer)
	}
	if note = strings.TrimSpace(note); note != "" {
		b.WriteString(": ")
		b.WriteString(note)
	}
	return b.String()
}

// UpdateSyncStatus sets the sync status
func (s *Service) UpdateSyncStatus(ctx context.Context, id string, status SyncStatus) (MonitoringRecord, error) {
	if !status.Valid() {
		return MonitoringRecord{}, fmt.Errorf("%w: unknown sync status %q", ErrInvalidInput, status)
	}
	return s.patch(ctx, id, func(r MonitoringRecord) MonitoringRecord {
		r.SyncStatus = status
		return r
	})
}

// SetCompleted marks a record complete, removing it from the overdue list
func (s *Service) SetCompleted(ctx context.Context, id string, completed bool) (MonitoringRecord, error) {
	return s.patch(ctx, id, func(r MonitoringRecord) MonitoringRecord {
		r.Completed = completed
		return r
	})
}

func (s *Service) patch(ctx context.Context, id string, fn func(MonitoringRecord) MonitoringRecord) (MonitoringRecord, error) {
	rec, found, err := s.repo.Patch(ctx, id, fn)
	if err != nil {
		return MonitoringRecord{}, err
	}
	if !found {
		return MonitoringRecord{}, ErrNotFound
	}
	return rec, nil
}

// Stats computes monitoring statistics
func (s *Service) Stats(ctx context.Context) (MonitoringStats, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return MonitoringStats{}, err
	}
	return ComputeStats(records), nil
}

// RequiringAttention returns urgent and overdue records
func (s *Service) RequiringAttention(ctx context.Context) ([]MonitoringRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return RequiringAttention(records, s.now()), nil
}

// Recent returns records monitored within the last days days, or the
// configured window when days is not positive.
func (s *Service) Recent(ctx context.Context, days int) ([]MonitoringRecord, error) {
	if days <= 0 {
		days = s.config.RecentWindowDays
	}
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Recent(records, s.now(), days), nil
}

// AttachPhoto uploads a photo and appends it to the record.
func (s *Service) AttachPhoto(ctx context.Context, id string, upload PhotoUpload) (Photo, error) {
	if s.photos == nil {
		return Photo{}, ErrPhotosUnavailable
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return Photo{}, err
	}

	filename := path.Base(strings.ReplaceAll(upload.Filename, "\\", "/"))
	if filename == "." || filename == "/" {
		filename = "photo"
	}
	photoID := uuid.NewString()
	key := fmt.Sprintf("monitoring/%s/%s/%s-%s", rec.ProjectID, rec.ID, photoID, filename)

	if err := s.photos.Upload(ctx, s.config.PhotoBucket, key, upload.ContentType, upload.Body); err != nil {
		return Photo{}, err
	}
	url, err := s.photos.GetPresignedURL(ctx, s.config.PhotoBucket, key, s.config.PhotoURLExpiry)
	if err != nil {
		s.logger.Warn("Failed to presign photo url", zap.String("key", key), zap.Error(err))
	}

	photo := Photo{
		ID:          photoID,
		Key:         key,
		URL:         url,
		Filename:    filename,
		ContentType: upload.ContentType,
		Size:        upload.Size,
		Caption:     upload.Caption,
		UploadedAt:  s.now(),
	}

	_, found, err := s.repo.Patch(ctx, id, func(r MonitoringRecord) MonitoringRecord {
		r.Photos = append(r.Photos, photo)
		return r
	})
	if err == nil && !found {
		err = ErrNotFound
	}
	if err != nil {
		if delErr := s.photos.Delete(ctx, s.config.PhotoBucket, key); delErr != nil {
			s.logger.Error("Failed to remove orphaned photo", zap.String("key", key), zap.Error(delErr))
		}
		return Photo{}, err
	}

	s.logger.Info("Photo attached",
		zap.String("record_id", id),
		zap.String("key", key),
		zap.Int64("size", upload.Size))
	return photo, nil
}
