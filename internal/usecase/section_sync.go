package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/domain/provider"
	"github.com/wekeepgrowing/todosync/internal/domain/repository"
)

// Section sync row statuses.
const (
	SectionCreated   = "created"
	SectionUpdated   = "updated"
	SectionUnchanged = "unchanged"
)

// SectionSyncRow reports what happened to one upstream section.
type SectionSyncRow struct {
	Status    string `json:"status"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	SectionID string `json:"section_id"`
	ProjectID string `json:"project_id"`
}

// SectionSyncResult summarizes a sync run.
type SectionSyncResult struct {
	DryRun    bool             `json:"dry_run"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Unchanged int              `json:"unchanged"`
	Rows      []SectionSyncRow `json:"rows"`
}

// SectionSyncService mirrors upstream sections into the sections table.
type SectionSyncService struct {
	provider provider.TaskProvider
	sections repository.SectionRepository
	logger   *zap.Logger
}

// NewSectionSyncService creates a new SectionSyncService
func NewSectionSyncService(taskProvider provider.TaskProvider, sections repository.SectionRepository, logger *zap.Logger) *SectionSyncService {
	return &SectionSyncService{
		provider: taskProvider,
		sections: sections,
		logger:   logger,
	}
}

// Sync matches upstream sections by id. Existing rows get their name and
// project updated and keep their key; new sections get a unique slug key.
// With dryRun nothing is written.
func (s *SectionSyncService) Sync(ctx context.Context, projectID string, dryRun bool) (*SectionSyncResult, error) {
	remote, err := s.provider.ListSections(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sections: %w", err)
	}

	sort.SliceStable(remote, func(i, j int) bool {
		if remote[i].ProjectID != remote[j].ProjectID {
			return remote[i].ProjectID < remote[j].ProjectID
		}
		return remote[i].Order < remote[j].Order
	})

	result := &SectionSyncResult{DryRun: dryRun, Rows: make([]SectionSyncRow, 0, len(remote))}
	// Keys handed out during this run, so a dry run does not reuse them.
	reserved := make(map[string]bool)
	taken := func(ctx context.Context, key string) (bool, error) {
		if reserved[key] {
			return true, nil
		}
		return s.sections.KeyExists(ctx, key)
	}

	for _, rs := range remote {
		row := SectionSyncRow{Name: rs.Name, SectionID: rs.ID, ProjectID: rs.ProjectID}

		existing, err := s.sections.GetBySectionID(ctx, rs.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load section %s: %w", rs.ID, err)
		}

		switch {
		case existing == nil:
			key, err := uniqueSlug(ctx, rs.Name, taken)
			if err != nil {
				return nil, fmt.Errorf("failed to pick key for section %s: %w", rs.ID, err)
			}
			reserved[key] = true
			row.Key = key
			row.Status = SectionCreated
			result.Created++

			if !dryRun {
				section := &model.Section{Key: key, SectionID: rs.ID, Name: rs.Name, ProjectID: rs.ProjectID}
				if err := s.sections.Create(ctx, section); err != nil {
					return nil, fmt.Errorf("failed to create section %s: %w", rs.ID, err)
				}
			}
		case existing.Name != rs.Name || existing.ProjectID != rs.ProjectID:
			row.Key = existing.Key
			row.Status = SectionUpdated
			result.Updated++

			if !dryRun {
				existing.Name = rs.Name
				existing.ProjectID = rs.ProjectID
				if err := s.sections.Update(ctx, existing); err != nil {
					return nil, fmt.Errorf("failed to update section %s: %w", rs.ID, err)
				}
			}
		default:
			row.Key = existing.Key
			row.Status = SectionUnchanged
			result.Unchanged++
		}

		result.Rows = append(result.Rows, row)
	}

	s.logger.Info("Sections synchronized",
		zap.String("project_id", projectID),
		zap.Bool("dry_run", dryRun),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged))
	return result, nil
}
