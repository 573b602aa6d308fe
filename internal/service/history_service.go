package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollsys-api/internal/models"
	appErrors "github.com/noah-isme/enrollsys-api/pkg/errors"
	"github.com/noah-isme/enrollsys-api/pkg/export"
)

type historyReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	ListByEnlistment(ctx context.Context, enlistmentID string) ([]models.HistoryEntry, error)
}

type enlistmentOwnerReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnlistmentDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// HistoryService exposes the audit trail. Entries are append-only and
// written by the workflow services; this service only reads them.
type HistoryService struct {
	history     historyReader
	enlistments enlistmentOwnerReader
	csv         csvRenderer
	logger      *zap.Logger
	pageLimit   int
}

// NewHistoryService constructs HistoryService.
func NewHistoryService(history historyReader, enlistments enlistmentOwnerReader, csv csvRenderer, logger *zap.Logger, pageLimit int) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageLimit <= 0 {
		pageLimit = 200
	}
	return &HistoryService{history: history, enlistments: enlistments, csv: csv, logger: logger, pageLimit: pageLimit}
}

// ListRecent returns the newest entries across all enlistments. Staff only.
func (s *HistoryService) ListRecent(ctx context.Context, actor models.Actor, limit int) ([]models.HistoryEntry, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own enlistment history")
	}
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}
	entries, err := s.history.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return entries, nil
}

// ListByEnlistment returns one enlistment's trail, newest first.
// Students may only view their own.
func (s *HistoryService) ListByEnlistment(ctx context.Context, actor models.Actor, enlistmentID string) ([]models.HistoryEntry, error) {
	detail, err := s.enlistments.FindDetailByID(ctx, enlistmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enlistment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enlistment")
	}
	if actor.Role == models.RoleStudent && detail.StudentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not your enlistment")
	}
	entries, err := s.history.ListByEnlistment(ctx, enlistmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enlistment history")
	}
	return entries, nil
}

// ExportCSV renders the recent trail as a CSV download. Staff only.
func (s *HistoryService) ExportCSV(ctx context.Context, actor models.Actor, limit int) ([]byte, error) {
	entries, err := s.ListRecent(ctx, actor, limit)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: []string{"created_at", "action", "actor", "student", "message"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, e := range entries {
		actorName := ""
		if e.ActorName != nil {
			actorName = *e.ActorName
		}
		studentName := ""
		if e.StudentName != nil {
			studentName = *e.StudentName
		}
		data.Rows = append(data.Rows, map[string]string{
			"created_at": e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			"action":     e.Action,
			"actor":      actorName,
			"student":    studentName,
			"message":    e.Message,
		})
	}

	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history export")
	}
	return out, nil
}
