package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/repository"
)

type mockAPKRepository struct {
	versions map[uuid.UUID]*domain.APKVersion
}

func newMockAPKRepository() *mockAPKRepository {
	return &mockAPKRepository{versions: make(map[uuid.UUID]*domain.APKVersion)}
}

func (m *mockAPKRepository) Create(ctx context.Context, v *domain.APKVersion) error {
	for _, existing := range m.versions {
		if existing.Version == v.Version {
			return repository.ErrAPKVersionAlreadyExists
		}
	}
	m.versions[v.ID] = v
	return nil
}

func (m *mockAPKRepository) FindByVersion(ctx context.Context, version string) (*domain.APKVersion, error) {
	for _, v := range m.versions {
		if v.Version == version {
			return v, nil
		}
	}
	return nil, repository.ErrAPKVersionNotFound
}

func (m *mockAPKRepository) FindLatest(ctx context.Context) (*domain.APKVersion, error) {
	for _, v := range m.versions {
		if v.IsLatest && v.IsActive {
			return v, nil
		}
	}
	return nil, repository.ErrAPKVersionNotFound
}

func (m *mockAPKRepository) List(ctx context.Context) ([]*domain.APKVersion, error) {
	out := make([]*domain.APKVersion, 0, len(m.versions))
	for _, v := range m.versions {
		out = append(out, v)
	}
	return out, nil
}

func (m *mockAPKRepository) SetLatest(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.versions[id]; !ok {
		return repository.ErrAPKVersionNotFound
	}
	for _, v := range m.versions {
		v.IsLatest = v.ID == id
	}
	return nil
}

func (m *mockAPKRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	v, ok := m.versions[id]
	if !ok {
		return repository.ErrAPKVersionNotFound
	}
	v.IsActive = active
	return nil
}

func (m *mockAPKRepository) seed(version string, latest, force bool, minSupported string) *domain.APKVersion {
	v := &domain.APKVersion{
		ID:                      uuid.New(),
		Version:                 version,
		FilePath:                "/tmp/freshk-" + version + ".apk",
		IsActive:                true,
		IsLatest:                latest,
		ForceUpdate:             force,
		MinimumSupportedVersion: minSupported,
		CreatedAt:               time.Now(),
		UpdatedAt:               time.Now(),
	}
	m.versions[v.ID] = v
	return v
}

func newAPKTestService(t *testing.T, repo repository.APKRepository) APKService {
	t.Helper()
	return NewAPKService(nil, repo, t.TempDir(), zap.NewNop())
}

func TestCheckUpdateWhenNoReleaseExists(t *testing.T) {
	svc := newAPKTestService(t, newMockAPKRepository())

	check, err := svc.CheckUpdate(context.Background(), "1.0.0")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if check.UpdateAvailable || check.ForceUpdate {
		t.Errorf("no release registered, got %+v", check)
	}
}

func TestCheckUpdate(t *testing.T) {
	repo := newMockAPKRepository()
	repo.seed("2.0.0", true, false, "1.5.0")
	svc := newAPKTestService(t, repo)

	tests := []struct {
		name          string
		current       string
		wantAvailable bool
		wantForce     bool
	}{
		{"client is up to date", "2.0.0", false, false},
		{"client is ahead", "2.1.0", false, false},
		{"client is behind but supported", "1.5.0", true, false},
		{"client is below minimum supported", "1.4.9", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := svc.CheckUpdate(context.Background(), tt.current)
			if err != nil {
				t.Fatalf("check failed: %v", err)
			}
			if check.UpdateAvailable != tt.wantAvailable || check.ForceUpdate != tt.wantForce {
				t.Errorf("got available=%v force=%v, want available=%v force=%v",
					check.UpdateAvailable, check.ForceUpdate, tt.wantAvailable, tt.wantForce)
			}
		})
	}
}

func TestCheckUpdateForcedRelease(t *testing.T) {
	repo := newMockAPKRepository()
	repo.seed("3.0.0", true, true, "")
	svc := newAPKTestService(t, repo)

	check, err := svc.CheckUpdate(context.Background(), "2.9.0")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !check.UpdateAvailable || !check.ForceUpdate {
		t.Errorf("force-update release should force, got %+v", check)
	}
	if check.Latest == nil || check.Latest.Version != "3.0.0" {
		t.Errorf("latest = %+v", check.Latest)
	}
}

func TestCheckUpdateRejectsMalformedVersion(t *testing.T) {
	svc := newAPKTestService(t, newMockAPKRepository())

	for _, v := range []string{"", "1.0", "v1.0.0", "1.0.0-beta"} {
		if _, err := svc.CheckUpdate(context.Background(), v); !errors.Is(err, ErrInvalidVersion) {
			t.Errorf("version %q: expected ErrInvalidVersion, got %v", v, err)
		}
	}
}

func TestDeactivateHidesRelease(t *testing.T) {
	repo := newMockAPKRepository()
	repo.seed("1.0.0", true, false, "")
	svc := newAPKTestService(t, repo)

	if err := svc.Deactivate(context.Background(), "1.0.0"); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	if _, err := svc.Latest(context.Background()); !errors.Is(err, repository.ErrAPKVersionNotFound) {
		t.Errorf("deactivated release should not be latest, got %v", err)
	}
	if _, err := svc.FilePath(context.Background(), "1.0.0"); !errors.Is(err, repository.ErrAPKVersionNotFound) {
		t.Errorf("deactivated release should not be downloadable, got %v", err)
	}
}

func TestFilePathForActiveRelease(t *testing.T) {
	repo := newMockAPKRepository()
	seeded := repo.seed("1.2.3", true, false, "")
	svc := newAPKTestService(t, repo)

	path, err := svc.FilePath(context.Background(), "1.2.3")
	if err != nil {
		t.Fatalf("file path failed: %v", err)
	}
	if path != seeded.FilePath {
		t.Errorf("path = %q, want %q", path, seeded.FilePath)
	}
}
