package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wadieregaieg/waadiefr/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrAPKVersionNotFound      = errors.New("apk version not found")
	ErrAPKVersionAlreadyExists = errors.New("apk version already exists")
)

// APKRepository defines the interface for APK version data access
type APKRepository interface {
	Create(ctx context.Context, v *domain.APKVersion) error
	FindByVersion(ctx context.Context, version string) (*domain.APKVersion, error)
	FindLatest(ctx context.Context) (*domain.APKVersion, error)
	List(ctx context.Context) ([]*domain.APKVersion, error)
	SetLatest(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type apkRepository struct {
	db DBTX
}

// NewAPKRepository creates a new instance of APKRepository
func NewAPKRepository(db DBTX) APKRepository {
	return &apkRepository{db: db}
}

const apkColumns = `id, version, file_path, file_size, checksum, release_notes, is_active, is_latest, force_update, minimum_supported_version, created_at, updated_at`

func (r *apkRepository) Create(ctx context.Context, v *domain.APKVersion) error {
	query := `
		INSERT INTO apk_versions (id, version, file_path, file_size, checksum, release_notes, is_active, is_latest, force_update, minimum_supported_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		v.ID,
		v.Version,
		v.FilePath,
		v.FileSize,
		v.Checksum,
		v.ReleaseNotes,
		v.IsActive,
		v.IsLatest,
		v.ForceUpdate,
		v.MinimumSupportedVersion,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "apk_versions_version_key") {
			return ErrAPKVersionAlreadyExists
		}
		return fmt.Errorf("failed to create apk version: %w", err)
	}
	return nil
}

func (r *apkRepository) FindByVersion(ctx context.Context, version string) (*domain.APKVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM apk_versions WHERE version = $1`, apkColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query, version))
}

func (r *apkRepository) FindLatest(ctx context.Context) (*domain.APKVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM apk_versions WHERE is_latest AND is_active`, apkColumns)
	return r.scanOne(r.db.QueryRowContext(ctx, query))
}

func (r *apkRepository) List(ctx context.Context) ([]*domain.APKVersion, error) {
	query := fmt.Sprintf(`SELECT %s FROM apk_versions ORDER BY created_at DESC`, apkColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list apk versions: %w", err)
	}
	defer rows.Close()

	versions := []*domain.APKVersion{}
	for rows.Next() {
		v := &domain.APKVersion{}
		err := rows.Scan(
			&v.ID, &v.Version, &v.FilePath, &v.FileSize, &v.Checksum, &v.ReleaseNotes,
			&v.IsActive, &v.IsLatest, &v.ForceUpdate, &v.MinimumSupportedVersion,
			&v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan apk version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apk versions: %w", err)
	}
	return versions, nil
}

// SetLatest marks the given version as latest and unmarks every other.
// Run inside a transaction so there is never more than one latest.
func (r *apkRepository) SetLatest(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE apk_versions SET is_latest = FALSE, updated_at = $1 WHERE is_latest AND id <> $2`,
		time.Now(), id); err != nil {
		return fmt.Errorf("failed to unmark latest apk versions: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE apk_versions SET is_latest = TRUE, updated_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark latest apk version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAPKVersionNotFound
	}
	return nil
}

func (r *apkRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE apk_versions SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update apk version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAPKVersionNotFound
	}
	return nil
}

func (r *apkRepository) scanOne(row *sql.Row) (*domain.APKVersion, error) {
	v := &domain.APKVersion{}
	err := row.Scan(
		&v.ID, &v.Version, &v.FilePath, &v.FileSize, &v.Checksum, &v.ReleaseNotes,
		&v.IsActive, &v.IsLatest, &v.ForceUpdate, &v.MinimumSupportedVersion,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPKVersionNotFound
		}
		return nil, fmt.Errorf("failed to find apk version: %w", err)
	}
	return v, nil
}
