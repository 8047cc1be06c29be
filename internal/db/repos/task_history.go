package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/openmapping/tasking/internal/db/models"
)

// historyNewestFirst orders rows by time with insertion order breaking ties
const historyNewestFirst = "action_date DESC, id DESC"

// TaskHistoryRepository handles database operations for task history rows
type TaskHistoryRepository struct {
	db *gorm.DB
}

// NewTaskHistoryRepository creates a new instance of TaskHistoryRepository
func NewTaskHistoryRepository(db *gorm.DB) *TaskHistoryRepository {
	return &TaskHistoryRepository{db: db}
}

func (r *TaskHistoryRepository) forTask(ctx context.Context, projectID, taskID int64) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.TaskHistory{}).
		Where("project_id = ? AND task_id = ?", projectID, taskID)
}

// Create appends a history row
func (r *TaskHistoryRepository) Create(ctx context.Context, row *models.TaskHistory) error {
	return classify(r.db.WithContext(ctx).Create(row).Error)
}

// CreateBatch appends rows in the given order
func (r *TaskHistoryRepository) CreateBatch(ctx context.Context, rows []*models.TaskHistory) error {
	if len(rows) == 0 {
		return nil
	}
	return classify(r.db.WithContext(ctx).CreateInBatches(rows, 100).Error)
}

// ListByTask returns the history of a task, oldest first unless newestFirst is set
func (r *TaskHistoryRepository) ListByTask(ctx context.Context, projectID, taskID int64, newestFirst bool) ([]models.TaskHistory, error) {
	order := "action_date ASC, id ASC"
	if newestFirst {
		order = historyNewestFirst
	}
	var rows []models.TaskHistory
	err := r.forTask(ctx, projectID, taskID).Order(order).Find(&rows).Error
	return rows, classify(err)
}

// Latest returns the most recent row of a task, restricted to actions when
// any are given. It returns nil when there is no such row.
func (r *TaskHistoryRepository) Latest(ctx context.Context, projectID, taskID int64, actions ...models.TaskAction) (*models.TaskHistory, error) {
	query := r.forTask(ctx, projectID, taskID)
	if len(actions) > 0 {
		query = query.Where("action IN ?", actions)
	}
	return r.first(query)
}

// LatestOpenLock returns the most recent lock row whose duration is not yet recorded
func (r *TaskHistoryRepository) LatestOpenLock(ctx context.Context, projectID, taskID int64) (*models.TaskHistory, error) {
	query := r.forTask(ctx, projectID, taskID).
		Where("action IN ? AND action_text IS NULL", models.LockActions)
	return r.first(query)
}

func (r *TaskHistoryRepository) first(query *gorm.DB) (*models.TaskHistory, error) {
	var rows []models.TaskHistory
	if err := query.Order(historyNewestFirst).Limit(1).Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// SetActionText fills in the text of a row. Only open lock rows may be amended.
func (r *TaskHistoryRepository) SetActionText(ctx context.Context, id int64, text string) error {
	result := r.db.WithContext(ctx).Model(&models.TaskHistory{}).
		Where("id = ? AND action IN ? AND action_text IS NULL", id, models.LockActions).
		Update("action_text", text)
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("open lock row %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes one row
func (r *TaskHistoryRepository) Delete(ctx context.Context, id int64) error {
	return classify(r.db.WithContext(ctx).Delete(&models.TaskHistory{}, id).Error)
}

// DeleteByTasks removes the history of the listed tasks of a project
func (r *TaskHistoryRepository) DeleteByTasks(ctx context.Context, projectID int64, taskIDs []int64) error {
	if len(taskIDs) == 0 {
		return nil
	}
	return classify(r.db.WithContext(ctx).
		Where("project_id = ? AND task_id IN ?", projectID, taskIDs).
		Delete(&models.TaskHistory{}).Error)
}

// Count returns the number of rows of a task
func (r *TaskHistoryRepository) Count(ctx context.Context, projectID, taskID int64) (int64, error) {
	var n int64
	err := r.forTask(ctx, projectID, taskID).Count(&n).Error
	return n, classify(err)
}
