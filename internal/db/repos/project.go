package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openmapping/tasking/internal/db/models"
)

// Counters are the recounted aggregates of a project
type Counters struct {
	TotalTasks      int64
	TasksMapped     int64
	TasksValidated  int64
	TasksBadImagery int64
}

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new instance of ProjectRepository
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{
		db: db,
	}
}

// Create creates a new project in the database
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return classify(r.db.WithContext(ctx).Create(project).Error)
}

// Get retrieves a project and its localized infos
func (r *ProjectRepository) Get(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Preload("Infos").First(&project, id).Error; err != nil {
		return nil, classify(err)
	}
	return &project, nil
}

// Exists reports whether a project exists
func (r *ProjectRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&n).Error
	return n > 0, classify(err)
}

// UpdateCounters overwrites the aggregate counters of a project
func (r *ProjectRepository) UpdateCounters(ctx context.Context, id int64, c Counters) error {
	result := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_tasks":       c.TotalTasks,
		"tasks_mapped":      c.TasksMapped,
		"tasks_validated":   c.TasksValidated,
		"tasks_bad_imagery": c.TasksBadImagery,
	})
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertInfo creates or replaces the localized info of a project
func (r *ProjectRepository) UpsertInfo(ctx context.Context, info *models.ProjectInfo) error {
	return classify(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "locale"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "per_task_instructions"}),
	}).Create(info).Error)
}
