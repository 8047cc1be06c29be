package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openmapping/tasking/internal/db/models"
)

// TaskCondition guards a conditional task update
type TaskCondition struct {
	// Statuses the task must currently be in
	Statuses []models.TaskStatus
	// LockedBy, when set, must equal the current lock holder
	LockedBy *int64
	// Unlocked requires locked_by to be NULL
	Unlocked bool
}

// StatusCount is the number of tasks of a project in one status
type StatusCount struct {
	Status models.TaskStatus
	Count  int64
}

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new instance of TaskRepository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{
		db: db,
	}
}

func (r *TaskRepository) byKey(ctx context.Context, projectID, taskID int64) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Task{}).
		Where(models.TaskProjectIDField+" = ? AND "+models.TaskIDField+" = ?", projectID, taskID)
}

// Create creates a new task in the database
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return classify(r.db.WithContext(ctx).Create(task).Error)
}

// CreateBatch creates a batch of tasks in the database
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return classify(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(tasks, 100).Error
	}))
}

// Get retrieves a task by its composite key
func (r *TaskRepository) Get(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	var task models.Task
	if err := r.byKey(ctx, projectID, taskID).First(&task).Error; err != nil {
		return nil, classify(err)
	}
	return &task, nil
}

// GetForUpdate retrieves a task and row locks it until the transaction ends.
// Dialects without row locks ignore the clause.
func (r *TaskRepository) GetForUpdate(ctx context.Context, projectID, taskID int64) (*models.Task, error) {
	var task models.Task
	err := r.byKey(ctx, projectID, taskID).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&task).Error
	if err != nil {
		return nil, classify(err)
	}
	return &task, nil
}

// List retrieves the tasks of a project ordered by id
func (r *TaskRepository) List(ctx context.Context, projectID int64, opts *models.ListOptions) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.WithContext(ctx).Where(models.TaskProjectIDField+" = ?", projectID)
	if opts != nil {
		if len(opts.Statuses) > 0 {
			query = query.Where(models.TaskStatusField+" IN ?", opts.Statuses)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Offset(opts.Offset)
		}
	}
	err := query.Order(models.TaskIDField).Find(&tasks).Error
	return tasks, classify(err)
}

// MaxID returns the highest task id of a project, or 0 for an empty project
func (r *TaskRepository) MaxID(ctx context.Context, projectID int64) (int64, error) {
	var maxID int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where(models.TaskProjectIDField+" = ?", projectID).
		Select("COALESCE(MAX(" + models.TaskIDField + "), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, classify(err)
	}
	return maxID, nil
}

// UpdateIf applies updates only while the task satisfies cond and reports
// whether a row changed. It is the compare-and-set all status changes go through.
func (r *TaskRepository) UpdateIf(ctx context.Context, projectID, taskID int64, cond TaskCondition, updates map[string]interface{}) (bool, error) {
	query := r.byKey(ctx, projectID, taskID)
	if len(cond.Statuses) > 0 {
		query = query.Where(models.TaskStatusField+" IN ?", cond.Statuses)
	}
	if cond.LockedBy != nil {
		query = query.Where(models.TaskLockedByField+" = ?", *cond.LockedBy)
	}
	if cond.Unlocked {
		query = query.Where(models.TaskLockedByField + " IS NULL")
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return false, classify(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a single task
func (r *TaskRepository) Delete(ctx context.Context, projectID, taskID int64) error {
	result := r.db.WithContext(ctx).
		Where(models.TaskProjectIDField+" = ? AND "+models.TaskIDField+" = ?", projectID, taskID).
		Delete(&models.Task{})
	if result.Error != nil {
		return classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %d of project %d: %w", taskID, projectID, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteMany removes the listed tasks of a project
func (r *TaskRepository) DeleteMany(ctx context.Context, projectID int64, taskIDs []int64) error {
	if len(taskIDs) == 0 {
		return nil
	}
	return classify(r.db.WithContext(ctx).
		Where(models.TaskProjectIDField+" = ? AND "+models.TaskIDField+" IN ?", projectID, taskIDs).
		Delete(&models.Task{}).Error)
}

// CountByStatus returns the number of tasks per status of a project
func (r *TaskRepository) CountByStatus(ctx context.Context, projectID int64) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select(models.TaskStatusField+" AS status, COUNT(*) AS count").
		Where(models.TaskProjectIDField+" = ?", projectID).
		Group(models.TaskStatusField).
		Scan(&counts).Error
	return counts, classify(err)
}

// ProjectIDsWithLockedTasks lists the projects that currently have a locked task
func (r *TaskRepository) ProjectIDsWithLockedTasks(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Distinct(models.TaskProjectIDField).
		Where(models.TaskStatusField+" IN ?", models.LockedStatuses).
		Order(models.TaskProjectIDField).
		Pluck(models.TaskProjectIDField, &ids).Error
	return ids, classify(err)
}
