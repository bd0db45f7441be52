package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/repository"
)

var (
	ErrInvalidVersion  = errors.New("version must be in X.Y.Z form")
	ErrVersionNotNewer = errors.New("version must be newer than the current latest")
)

// UpdateCheck is the answer to "should this client update".
type UpdateCheck struct {
	UpdateAvailable bool               `json:"update_available"`
	ForceUpdate     bool               `json:"force_update"`
	Latest          *domain.APKVersion `json:"latest,omitempty"`
}

// APKService manages companion app releases. Uploaded files are stored
// on disk with a sha256 checksum; exactly one active release is marked
// latest at a time.
type APKService interface {
	Upload(ctx context.Context, version, releaseNotes string, forceUpdate bool, minimumSupported string, file io.Reader) (*domain.APKVersion, error)
	Latest(ctx context.Context) (*domain.APKVersion, error)
	List(ctx context.Context) ([]*domain.APKVersion, error)
	CheckUpdate(ctx context.Context, currentVersion string) (*UpdateCheck, error)
	Deactivate(ctx context.Context, version string) error
	FilePath(ctx context.Context, version string) (string, error)
}

type apkService struct {
	db         *sql.DB
	repo       repository.APKRepository
	storageDir string
	logger     *zap.Logger
}

// NewAPKService creates a new instance of APKService.
func NewAPKService(db *sql.DB, repo repository.APKRepository, storageDir string, logger *zap.Logger) APKService {
	return &apkService{db: db, repo: repo, storageDir: storageDir, logger: logger}
}

// Upload stores a new release file and registers it as the latest
// version. The version must be strictly newer than the current latest.
func (s *apkService) Upload(ctx context.Context, version, releaseNotes string, forceUpdate bool, minimumSupported string, file io.Reader) (*domain.APKVersion, error) {
	if !domain.ValidAPKVersion(version) {
		return nil, ErrInvalidVersion
	}
	if minimumSupported != "" && !domain.ValidAPKVersion(minimumSupported) {
		return nil, ErrInvalidVersion
	}

	latest, err := s.repo.FindLatest(ctx)
	if err != nil && !errors.Is(err, repository.ErrAPKVersionNotFound) {
		return nil, err
	}
	if latest != nil && domain.CompareVersions(version, latest.Version) <= 0 {
		return nil, fmt.Errorf("%w: latest is %s", ErrVersionNotNewer, latest.Version)
	}

	path, size, checksum, err := s.storeFile(version, file)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	release := &domain.APKVersion{
		ID:                      uuid.New(),
		Version:                 version,
		FilePath:                path,
		FileSize:                size,
		Checksum:                checksum,
		ReleaseNotes:            releaseNotes,
		IsActive:                true,
		IsLatest:                false,
		ForceUpdate:             forceUpdate,
		MinimumSupportedVersion: minimumSupported,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	err = repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := repository.NewAPKRepository(tx)
		if err := repo.Create(ctx, release); err != nil {
			return err
		}
		return repo.SetLatest(ctx, release.ID)
	})
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	release.IsLatest = true

	s.logger.Info("apk release uploaded",
		zap.String("version", version),
		zap.Int64("size", size))
	return release, nil
}

// Latest returns the release clients should download.
func (s *apkService) Latest(ctx context.Context) (*domain.APKVersion, error) {
	return s.repo.FindLatest(ctx)
}

// List returns every registered release, newest first.
func (s *apkService) List(ctx context.Context) ([]*domain.APKVersion, error) {
	return s.repo.List(ctx)
}

// CheckUpdate compares a client's version against the latest release.
// The update is forced when the release says so or the client has
// fallen below the minimum supported version.
func (s *apkService) CheckUpdate(ctx context.Context, currentVersion string) (*UpdateCheck, error) {
	if !domain.ValidAPKVersion(currentVersion) {
		return nil, ErrInvalidVersion
	}

	latest, err := s.repo.FindLatest(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrAPKVersionNotFound) {
			return &UpdateCheck{}, nil
		}
		return nil, err
	}

	if domain.CompareVersions(currentVersion, latest.Version) >= 0 {
		return &UpdateCheck{}, nil
	}

	force := latest.ForceUpdate
	if latest.MinimumSupportedVersion != "" &&
		domain.CompareVersions(currentVersion, latest.MinimumSupportedVersion) < 0 {
		force = true
	}

	return &UpdateCheck{
		UpdateAvailable: true,
		ForceUpdate:     force,
		Latest:          latest,
	}, nil
}

// Deactivate withdraws a release so it is no longer served.
func (s *apkService) Deactivate(ctx context.Context, version string) error {
	release, err := s.repo.FindByVersion(ctx, version)
	if err != nil {
		return err
	}
	return s.repo.SetActive(ctx, release.ID, false)
}

// FilePath returns the on-disk location of an active release.
func (s *apkService) FilePath(ctx context.Context, version string) (string, error) {
	release, err := s.repo.FindByVersion(ctx, version)
	if err != nil {
		return "", err
	}
	if !release.IsActive {
		return "", repository.ErrAPKVersionNotFound
	}
	return release.FilePath, nil
}

// storeFile writes the upload under the storage directory and returns
// the path, size and sha256 checksum.
func (s *apkService) storeFile(version string, file io.Reader) (string, int64, string, error) {
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return "", 0, "", fmt.Errorf("failed to create storage dir: %w", err)
	}

	path := filepath.Join(s.storageDir, fmt.Sprintf("freshk-%s.apk", version))
	out, err := os.Create(path)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to create apk file: %w", err)
	}
	defer out.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hash), file)
	if err != nil {
		os.Remove(path)
		return "", 0, "", fmt.Errorf("failed to store apk file: %w", err)
	}

	return path, size, hex.EncodeToString(hash.Sum(nil)), nil
}
