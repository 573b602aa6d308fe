package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollsys-api/internal/models"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
)

type catalogLister interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListPrograms(ctx context.Context) ([]models.Program, error)
	ListSchoolYears(ctx context.Context) ([]models.SchoolYear, error)
	ListSemesters(ctx context.Context) ([]models.Semester, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CatalogService serves the reference data behind a read-through cache.
// The catalog changes rarely, so a short TTL keeps it fresh enough
// without a hot path to the database on every enlistment form load.
type CatalogService struct {
	repo   catalogLister
	cache  cacheStore
	ttl    time.Duration
	logger *zap.Logger
}

const (
	cacheKeySubjects    = "catalog:subjects"
	cacheKeyCategories  = "catalog:categories"
	cacheKeyPrograms    = "catalog:programs"
	cacheKeySchoolYears = "catalog:school_years"
	cacheKeySemesters   = "catalog:semesters"
)

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogLister, cache cacheStore, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Subjects returns all subjects.
func (s *CatalogService) Subjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := s.cached(ctx, cacheKeySubjects, &subjects, func() (interface{}, error) {
		loaded, err := s.repo.ListSubjects(ctx)
		subjects = loaded
		return loaded, err
	})
	return subjects, err
}

// Categories returns active categories.
func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.cached(ctx, cacheKeyCategories, &categories, func() (interface{}, error) {
		loaded, err := s.repo.ListCategories(ctx)
		categories = loaded
		return loaded, err
	})
	return categories, err
}

// Programs returns active programs.
func (s *CatalogService) Programs(ctx context.Context) ([]models.Program, error) {
	var programs []models.Program
	err := s.cached(ctx, cacheKeyPrograms, &programs, func() (interface{}, error) {
		loaded, err := s.repo.ListPrograms(ctx)
		programs = loaded
		return loaded, err
	})
	return programs, err
}

// SchoolYears returns active school years.
func (s *CatalogService) SchoolYears(ctx context.Context) ([]models.SchoolYear, error) {
	var years []models.SchoolYear
	err := s.cached(ctx, cacheKeySchoolYears, &years, func() (interface{}, error) {
		loaded, err := s.repo.ListSchoolYears(ctx)
		years = loaded
		return loaded, err
	})
	return years, err
}

// Semesters returns active semesters.
func (s *CatalogService) Semesters(ctx context.Context) ([]models.Semester, error) {
	var semesters []models.Semester
	err := s.cached(ctx, cacheKeySemesters, &semesters, func() (interface{}, error) {
		loaded, err := s.repo.ListSemesters(ctx)
		semesters = loaded
		return loaded, err
	})
	return semesters, err
}

// cached runs the read-through: cache hit fills dest directly; otherwise
// load hits the database and the result is stored best-effort.
func (s *CatalogService) cached(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, dest); err == nil {
			return nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	value, err := load()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog data")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}
