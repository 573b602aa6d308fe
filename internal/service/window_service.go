package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollsys-api/internal/models"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
)

type windowStore interface {
	Get(ctx context.Context, defaultOpen bool) (*models.EnrollmentWindow, error)
	Set(ctx context.Context, isOpen bool, message string) (*models.EnrollmentWindow, error)
}

// UpdateWindowRequest toggles the enrollment window.
type UpdateWindowRequest struct {
	IsOpen  bool   `json:"is_open"`
	Message string `json:"message"`
}

// WindowService manages the singleton enrollment window that gates
// student submissions.
type WindowService struct {
	repo        windowStore
	logger      *zap.Logger
	defaultOpen bool
}

// NewWindowService constructs WindowService.
func NewWindowService(repo windowStore, logger *zap.Logger, defaultOpen bool) *WindowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowService{repo: repo, logger: logger, defaultOpen: defaultOpen}
}

// Get returns the current window state. Any authenticated role may read it.
func (s *WindowService) Get(ctx context.Context) (*models.EnrollmentWindow, error) {
	window, err := s.repo.Get(ctx, s.defaultOpen)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment window")
	}
	return window, nil
}

// Update opens or closes the window. Finance only.
func (s *WindowService) Update(ctx context.Context, actor models.Actor, req UpdateWindowRequest) (*models.EnrollmentWindow, error) {
	if actor.Role != models.RoleFinance {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only finance may change the enrollment window")
	}
	window, err := s.repo.Set(ctx, req.IsOpen, req.Message)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment window")
	}
	s.logger.Info("enrollment window updated",
		zap.Bool("is_open", window.IsOpen),
		zap.String("updated_by", actor.ID))
	return window, nil
}
