package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/openmapping/tasking/internal/db/models"
	"github.com/openmapping/tasking/internal/db/repos"
	"github.com/openmapping/tasking/internal/events"
	"github.com/openmapping/tasking/internal/geometry"
	"github.com/openmapping/tasking/internal/grid"
	"github.com/openmapping/tasking/internal/instructions"
	"github.com/openmapping/tasking/internal/logger"
	"github.com/openmapping/tasking/internal/telemetry"
	"github.com/openmapping/tasking/internal/types"
)

// Defaults for the task service options
const (
	DefaultLockTimeout    = 2 * time.Hour
	DefaultMinSplitAreaM2 = 25000.0
	DefaultMaxSplitZoom   = 18
)

// LockRequest asks for a mapping or validation lock
type LockRequest struct {
	UserID          int64
	ProjectID       int64
	TaskID          int64
	PreferredLocale string
}

// UnlockRequest releases a lock into NewStatus
type UnlockRequest struct {
	UserID          int64
	ProjectID       int64
	TaskID          int64
	NewStatus       models.TaskStatus
	Comment         string
	PreferredLocale string
}

// CommentRequest adds a comment to a task
type CommentRequest struct {
	UserID          int64
	ProjectID       int64
	TaskID          int64
	Comment         string
	PreferredLocale string
}

// Task handles the task state machine. Every transition is a compare-and-set
// on the task row inside one transaction together with its history rows.
type Task struct {
	store          *repos.Store
	ops            geometry.Ops
	splitter       *grid.Splitter
	tel            *telemetry.Provider
	now            func() time.Time
	lockTimeout    time.Duration
	minSplitAreaM2 float64
	maxSplitZoom   int
	priorities     PriorityResolver
	events         *events.Bus
}

// Option configures the task service
type Option func(*Task)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Task) { s.now = now }
}

// WithTelemetry records spans and metrics through p
func WithTelemetry(p *telemetry.Provider) Option {
	return func(s *Task) {
		if p != nil {
			s.tel = p
		}
	}
}

// WithLockTimeout sets the age after which an open lock is stale
func WithLockTimeout(d time.Duration) Option {
	return func(s *Task) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithGeometry replaces the spatial operations
func WithGeometry(ops geometry.Ops) Option {
	return func(s *Task) {
		if ops != nil {
			s.ops = ops
		}
	}
}

// WithSplitThresholds sets the minimum area and the zoom from which tasks can no longer be split
func WithSplitThresholds(minAreaM2 float64, maxZoom int) Option {
	return func(s *Task) {
		if minAreaM2 > 0 {
			s.minSplitAreaM2 = minAreaM2
		}
		if maxZoom > 0 {
			s.maxSplitZoom = maxZoom
		}
	}
}

// WithPriorityResolver re-resolves task priorities for split children
func WithPriorityResolver(r PriorityResolver) Option {
	return func(s *Task) { s.priorities = r }
}

// WithEvents publishes every committed transition on bus
func WithEvents(bus *events.Bus) Option {
	return func(s *Task) { s.events = bus }
}

// NewTaskService creates a new instance of TaskService
func NewTaskService(store *repos.Store, opts ...Option) *Task {
	s := &Task{
		store:          store,
		ops:            geometry.New(),
		tel:            telemetry.Noop(),
		now:            time.Now,
		lockTimeout:    DefaultLockTimeout,
		minSplitAreaM2: DefaultMinSplitAreaM2,
		maxSplitZoom:   DefaultMaxSplitZoom,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.splitter = grid.NewSplitter(s.ops)
	return s
}

func (s *Task) clock() time.Time {
	return s.now().UTC()
}

func (s *Task) publish(typ events.EventType, projectID, taskID, userID int64, status models.TaskStatus) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.Event{
		Type:      typ,
		ProjectID: projectID,
		TaskID:    taskID,
		UserID:    userID,
		Status:    status.String(),
		At:        s.clock(),
	})
}

// LockForMapping locks a READY, INVALIDATED or BADIMAGERY task for userID
func (s *Task) LockForMapping(ctx context.Context, req LockRequest) (*types.TaskSummary, error) {
	return s.lock(ctx, req, models.TaskStatusLockedForMapping)
}

// LockForValidation locks any task that is neither locked nor split for userID
func (s *Task) LockForValidation(ctx context.Context, req LockRequest) (*types.TaskSummary, error) {
	return s.lock(ctx, req, models.TaskStatusLockedForValidation)
}

func (s *Task) lock(ctx context.Context, req LockRequest, status models.TaskStatus) (_ *types.TaskSummary, err error) {
	ctx, span := telemetry.StartSpan(ctx, s.tel.Tracer, "task.lock",
		append(telemetry.TaskAttrs(req.ProjectID, req.TaskID, req.UserID), telemetry.AttrStatus.String(status.String()))...)
	defer func() { telemetry.End(span, err) }()

	action, ok := models.LockActionFor(status)
	if !ok {
		return nil, AsError(fmt.Errorf("no lock action for status %s", status))
	}
	eligible := models.MappableStatuses
	if status == models.TaskStatusLockedForValidation {
		eligible = models.ValidatableStatuses
	}

	err = s.store.Transaction(ctx, func(tx *repos.Store) error {
		task, err := s.loadTask(ctx, tx, req.ProjectID, req.TaskID)
		if err != nil {
			return err
		}
		if err := s.requireUser(ctx, tx, req.UserID); err != nil {
			return err
		}

		switch {
		case task.Status.IsLocked():
			return newError(KindIllegalTransition, SubCodeAlreadyLocked,
				"task %d is already locked", task.ID)
		case !containsStatus(eligible, task.Status):
			return newError(KindIllegalTransition, SubCodeNotMappable,
				"task %d cannot be locked from status %s", task.ID, task.Status)
		}

		changed, err := tx.Tasks.UpdateIf(ctx, req.ProjectID, req.TaskID,
			repos.TaskCondition{Statuses: eligible, Unlocked: true},
			map[string]interface{}{
				models.TaskStatusField:   status,
				models.TaskLockedByField: req.UserID,
			})
		if err != nil {
			return err
		}
		if !changed {
			return newError(KindIllegalTransition, SubCodeAlreadyLocked,
				"task %d was locked concurrently", task.ID)
		}

		return tx.History.Create(ctx, &models.TaskHistory{
			ProjectID:  req.ProjectID,
			TaskID:     req.TaskID,
			UserID:     req.UserID,
			Action:     action,
			ActionDate: s.clock(),
		})
	})
	if err != nil {
		return nil, boundary(err)
	}

	s.tel.Metrics.RecordLock(ctx, status.String())
	s.publish(events.EventTaskLocked, req.ProjectID, req.TaskID, req.UserID, status)
	logger.DebugWithFields("Task locked", logger.Fields{
		"project_id": req.ProjectID,
		"task_id":    req.TaskID,
		"user_id":    req.UserID,
		"status":     status,
	})
	return s.GetSummary(ctx, req.ProjectID, req.TaskID, req.PreferredLocale)
}

// Unlock releases the caller's lock and moves the task to req.NewStatus. The
// open lock row gets the time the lock was held.
func (s *Task) Unlock(ctx context.Context, req UnlockRequest) (_ *types.TaskSummary, err error) {
	ctx, span := telemetry.StartSpan(ctx, s.tel.Tracer, "task.unlock",
		append(telemetry.TaskAttrs(req.ProjectID, req.TaskID, req.UserID), telemetry.AttrStatus.String(req.NewStatus.String()))...)
	defer func() { telemetry.End(span, err) }()

	if _, perr := models.ParseTaskStatus(req.NewStatus.String()); perr != nil ||
		req.NewStatus.IsLocked() || req.NewStatus == models.TaskStatusSplit {
		return nil, newError(KindIllegalTransition, SubCodeInvalidUnlockState,
			"cannot unlock a task into status %q", req.NewStatus)
	}

	var held time.Duration
	err = s.store.Transaction(ctx, func(tx *repos.Store) error {
		task, err := s.loadTask(ctx, tx, req.ProjectID, req.TaskID)
		if err != nil {
			return err
		}
		if !task.Status.IsLocked() || task.LockedBy == nil {
			return newError(KindIllegalTransition, SubCodeNotLocked, "task %d is not locked", task.ID)
		}
		if *task.LockedBy != req.UserID {
			return newError(KindIllegalTransition, SubCodeLockedByOtherUser,
				"task %d is locked by another user", task.ID)
		}

		now := s.clock()
		if req.Comment != "" {
			if err := s.appendHistory(ctx, tx, task, req.UserID, models.TaskActionComment, req.Comment, now); err != nil {
				return err
			}
		}
		if err := s.appendHistory(ctx, tx, task, req.UserID, models.TaskActionStateChange, req.NewStatus.String(), now); err != nil {
			return err
		}

		open, err := tx.History.LatestOpenLock(ctx, req.ProjectID, req.TaskID)
		if err != nil {
			return err
		}
		if open != nil {
			held = now.Sub(open.ActionDate)
			if err := tx.History.SetActionText(ctx, open.ID, models.FormatDuration(held)); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			models.TaskStatusField:   req.NewStatus,
			models.TaskLockedByField: nil,
		}
		switch req.NewStatus {
		case models.TaskStatusMapped:
			// Reverting a validation back to MAPPED keeps the original mapper
			if task.Status != models.TaskStatusLockedForValidation {
				updates[models.TaskMappedByField] = req.UserID
			}
		case models.TaskStatusValidated:
			updates[models.TaskValidatedByField] = req.UserID
		}

		changed, err := tx.Tasks.UpdateIf(ctx, req.ProjectID, req.TaskID,
			repos.TaskCondition{Statuses: []models.TaskStatus{task.Status}, LockedBy: &req.UserID},
			updates)
		if err != nil {
			return err
		}
		if !changed {
			return newError(KindIllegalTransition, SubCodeNotLocked,
				"task %d was unlocked concurrently", task.ID)
		}
		return RecomputeCounters(ctx, tx, req.ProjectID)
	})
	if err != nil {
		return nil, boundary(err)
	}

	s.tel.Metrics.RecordUnlock(ctx, req.NewStatus.String(), held)
	s.publish(events.EventTaskUnlocked, req.ProjectID, req.TaskID, req.UserID, req.NewStatus)
	logger.DebugWithFields("Task unlocked", logger.Fields{
		"project_id": req.ProjectID,
		"task_id":    req.TaskID,
		"user_id":    req.UserID,
		"status":     req.NewStatus,
		"held":       models.FormatDuration(held),
	})
	return s.GetSummary(ctx, req.ProjectID, req.TaskID, req.PreferredLocale)
}

// ClearTaskLock silently releases a lock: the task returns to its last
// recorded status and the lock row is removed instead of annotated.
func (s *Task) ClearTaskLock(ctx context.Context, projectID, taskID int64) error {
	err := s.store.Transaction(ctx, func(tx *repos.Store) error {
		task, err := s.loadTask(ctx, tx, projectID, taskID)
		if err != nil {
			return err
		}
		_, err = s.clearTaskLock(ctx, tx, task)
		return err
	})
	return boundary(err)
}

// clearTaskLock restores the last STATE_CHANGE status and deletes the open lock
// row, or the latest row when no lock is open. The update is conditional on
// the status read; when a racing release already moved the task nothing is
// deleted and changed is false.
func (s *Task) clearTaskLock(ctx context.Context, tx *repos.Store, task *models.Task) (bool, error) {
	last, err := lastStatus(ctx, tx, task.ProjectID, task.ID)
	if err != nil {
		return false, err
	}

	changed, err := tx.Tasks.UpdateIf(ctx, task.ProjectID, task.ID,
		repos.TaskCondition{Statuses: []models.TaskStatus{task.Status}},
		map[string]interface{}{
			models.TaskStatusField:   last,
			models.TaskLockedByField: nil,
		})
	if err != nil || !changed {
		return false, err
	}
	task.Status, task.LockedBy = last, nil

	target, err := tx.History.LatestOpenLock(ctx, task.ProjectID, task.ID)
	if err != nil {
		return false, err
	}
	if target == nil {
		if target, err = tx.History.Latest(ctx, task.ProjectID, task.ID); err != nil {
			return false, err
		}
	}
	if target != nil {
		if err := tx.History.Delete(ctx, target.ID); err != nil {
			return false, err
		}
	}
	return true, nil
}

// GetLastStatus returns the status of the latest STATE_CHANGE row, READY when there is none
func (s *Task) GetLastStatus(ctx context.Context, projectID, taskID int64) (models.TaskStatus, error) {
	status, err := lastStatus(ctx, s.store, projectID, taskID)
	return status, boundary(err)
}

func lastStatus(ctx context.Context, store *repos.Store, projectID, taskID int64) (models.TaskStatus, error) {
	row, err := store.History.Latest(ctx, projectID, taskID, models.TaskActionStateChange)
	if err != nil {
		return "", err
	}
	if row == nil {
		return models.TaskStatusReady, nil
	}
	status, err := models.ParseTaskStatus(row.Text())
	if err != nil || status.IsLocked() || status == models.TaskStatusSplit {
		return models.TaskStatusReady, nil
	}
	return status, nil
}

// GetLastAction returns the most recent history row of a task of any kind, nil if there is none
func (s *Task) GetLastAction(ctx context.Context, projectID, taskID int64) (*models.TaskHistory, error) {
	row, err := s.store.History.Latest(ctx, projectID, taskID)
	return row, boundary(err)
}

// AutoUnlockTasks clears every lock in the project whose open lock row is
// older than the lock timeout and records an AUTO_UNLOCKED row for the former
// holder. Each task is handled in its own transaction; failures are logged and
// do not stop the sweep. It returns the number of locks cleared.
func (s *Task) AutoUnlockTasks(ctx context.Context, projectID int64) (_ int, err error) {
	ctx, span := telemetry.StartSpan(ctx, s.tel.Tracer, "task.auto_unlock", telemetry.AttrProjectID.Int64(projectID))
	defer func() { telemetry.End(span, err) }()

	locked, err := s.store.Tasks.List(ctx, projectID, &models.ListOptions{Statuses: models.LockedStatuses})
	if err != nil {
		return 0, boundary(err)
	}

	cleared := 0
	for i := range locked {
		task := locked[i]
		ok, err := s.autoUnlock(ctx, task.ProjectID, task.ID)
		if err != nil {
			logger.ErrorWithFields("Failed to auto unlock task", logger.Fields{
				"project_id": task.ProjectID,
				"task_id":    task.ID,
				"error":      err.Error(),
			})
			continue
		}
		if ok {
			cleared++
		}
	}

	if cleared > 0 {
		s.tel.Metrics.AutoUnlocked.Add(ctx, int64(cleared))
		logger.InfoWithFields("Auto unlocked stale tasks", logger.Fields{
			"project_id": projectID,
			"count":      cleared,
		})
	}
	return cleared, nil
}

func (s *Task) autoUnlock(ctx context.Context, projectID, taskID int64) (bool, error) {
	var (
		cleared bool
		holder  int64
		status  models.TaskStatus
	)
	err := s.store.Transaction(ctx, func(tx *repos.Store) error {
		task, err := tx.Tasks.GetForUpdate(ctx, projectID, taskID)
		if err != nil {
			if repos.IsNotFound(err) {
				return nil
			}
			return err
		}
		if !task.Status.IsLocked() || task.LockedBy == nil {
			return nil
		}

		lock, err := tx.History.Latest(ctx, projectID, taskID, models.LockActions...)
		if err != nil {
			return err
		}
		now := s.clock()
		if lock == nil || !lock.IsOpenLock() || now.Sub(lock.ActionDate) <= s.lockTimeout {
			return nil
		}

		holder = *task.LockedBy
		changed, err := s.clearTaskLock(ctx, tx, task)
		if err != nil || !changed {
			return err
		}
		status = task.Status
		if err := s.appendHistory(ctx, tx, task, holder, models.TaskActionAutoUnlocked,
			models.FormatDuration(now.Sub(lock.ActionDate)), now); err != nil {
			return err
		}
		cleared = true
		return nil
	})
	if err == nil && cleared {
		s.publish(events.EventTaskAutoUnlocked, projectID, taskID, holder, status)
	}
	return cleared, err
}

// AddComment appends a COMMENT row without changing the task status
func (s *Task) AddComment(ctx context.Context, req CommentRequest) (*types.TaskSummary, error) {
	if req.Comment == "" {
		return nil, InvalidData("comment must not be empty")
	}
	var status models.TaskStatus
	err := s.store.Transaction(ctx, func(tx *repos.Store) error {
		task, err := s.loadTask(ctx, tx, req.ProjectID, req.TaskID)
		if err != nil {
			return err
		}
		if err := s.requireUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		status = task.Status
		return s.appendHistory(ctx, tx, task, req.UserID, models.TaskActionComment, req.Comment, s.clock())
	})
	if err != nil {
		return nil, boundary(err)
	}
	s.publish(events.EventTaskCommented, req.ProjectID, req.TaskID, req.UserID, status)
	return s.GetSummary(ctx, req.ProjectID, req.TaskID, req.PreferredLocale)
}

// GetSummary renders a task with its history, lock holder and instructions
func (s *Task) GetSummary(ctx context.Context, projectID, taskID int64, preferredLocale string) (*types.TaskSummary, error) {
	project, err := s.store.Projects.Get(ctx, projectID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, ProjectNotFound(projectID)
		}
		return nil, AsError(err)
	}
	task, err := s.store.Tasks.Get(ctx, projectID, taskID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, TaskNotFound(projectID, taskID)
		}
		return nil, AsError(err)
	}
	summary, err := s.summarize(ctx, s.store, project, task, preferredLocale)
	return summary, boundary(err)
}

// ListTasks returns the tasks of a project ordered by id
func (s *Task) ListTasks(ctx context.Context, projectID int64, opts *models.ListOptions) ([]models.Task, error) {
	ok, err := s.store.Projects.Exists(ctx, projectID)
	if err != nil {
		return nil, AsError(err)
	}
	if !ok {
		return nil, ProjectNotFound(projectID)
	}
	tasks, err := s.store.Tasks.List(ctx, projectID, opts)
	if err != nil {
		return nil, AsError(err)
	}
	return tasks, nil
}

func (s *Task) summarize(ctx context.Context, store *repos.Store, project *models.Project, task *models.Task, locale string) (*types.TaskSummary, error) {
	rows, err := store.History.ListByTask(ctx, task.ProjectID, task.ID, true)
	if err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0, len(rows)+1)
	for _, r := range rows {
		userIDs = append(userIDs, r.UserID)
	}
	if task.LockedBy != nil {
		userIDs = append(userIDs, *task.LockedBy)
	}
	names, err := store.Users.Usernames(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	geom, err := s.ops.AsGeoJSON(task.Geometry.Orb())
	if err != nil {
		return nil, err
	}

	summary := &types.TaskSummary{
		TaskID:              task.ID,
		ProjectID:           task.ProjectID,
		Status:              task.Status,
		X:                   task.X,
		Y:                   task.Y,
		Zoom:                task.Zoom,
		IsSquare:            task.IsSquare,
		History:             make([]types.TaskHistoryEntry, 0, len(rows)),
		PerTaskInstructions: instructions.For(project, task, locale),
		Geometry:            geom,
	}
	if task.Status.IsLocked() && task.LockedBy != nil {
		summary.LockHolderUsername = names[*task.LockedBy]
	}
	for _, r := range rows {
		summary.History = append(summary.History, types.TaskHistoryEntry{
			HistoryID:  r.ID,
			Action:     r.Action,
			ActionText: r.ActionText,
			ActionDate: r.ActionDate.UTC(),
			ActionBy:   names[r.UserID],
		})
	}
	return summary, nil
}

// CreateFromFeatureCollection adds one READY task per feature to a project.
// Ids continue after the highest existing task id.
func (s *Task) CreateFromFeatureCollection(ctx context.Context, projectID int64, data []byte) ([]*models.Task, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, InvalidGeoJSON(err)
	}
	if len(fc.Features) == 0 {
		return nil, InvalidData("feature collection has no features")
	}

	var tasks []*models.Task
	err = s.store.Transaction(ctx, func(tx *repos.Store) error {
		ok, err := tx.Projects.Exists(ctx, projectID)
		if err != nil {
			return err
		}
		if !ok {
			return ProjectNotFound(projectID)
		}
		maxID, err := tx.Tasks.MaxID(ctx, projectID)
		if err != nil {
			return err
		}

		tasks = make([]*models.Task, 0, len(fc.Features))
		for i, f := range fc.Features {
			task, err := TaskFromFeature(s.ops, maxID+int64(i)+1, f)
			if err != nil {
				return err
			}
			task.ProjectID = projectID
			tasks = append(tasks, task)
		}
		if err := tx.Tasks.CreateBatch(ctx, tasks); err != nil {
			return err
		}
		return RecomputeCounters(ctx, tx, projectID)
	})
	if err != nil {
		return nil, boundary(err)
	}

	logger.InfoWithFields("Created tasks from feature collection", logger.Fields{
		"project_id": projectID,
		"count":      len(tasks),
	})
	return tasks, nil
}

// loadTask checks the project and reads the task row, locking it where the
// store supports row locks.
func (s *Task) loadTask(ctx context.Context, tx *repos.Store, projectID, taskID int64) (*models.Task, error) {
	ok, err := tx.Projects.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ProjectNotFound(projectID)
	}
	task, err := tx.Tasks.GetForUpdate(ctx, projectID, taskID)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, TaskNotFound(projectID, taskID)
		}
		return nil, err
	}
	return task, nil
}

func (s *Task) requireUser(ctx context.Context, tx *repos.Store, userID int64) error {
	if _, err := tx.Users.GetUserByID(ctx, userID); err != nil {
		if repos.IsNotFound(err) {
			return UserNotFound(userID)
		}
		return err
	}
	return nil
}

func (s *Task) appendHistory(ctx context.Context, tx *repos.Store, task *models.Task, userID int64, action models.TaskAction, text string, at time.Time) error {
	return tx.History.Create(ctx, &models.TaskHistory{
		ProjectID:  task.ProjectID,
		TaskID:     task.ID,
		UserID:     userID,
		Action:     action,
		ActionText: &text,
		ActionDate: at,
	})
}

func containsStatus(list []models.TaskStatus, s models.TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IsIllegalTransition reports whether err is a business rule violation
func IsIllegalTransition(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindIllegalTransition
}
