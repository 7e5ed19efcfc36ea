package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Strano/internal/config"
	"github.com/shaiso/Strano/internal/domain"
	"github.com/shaiso/Strano/internal/orchestrator"
)

// Имена стандартных задач.
const (
	TaskSetup      = "setup"
	TaskDeploy     = "deploy"
	TaskUpdate     = "update"
	TaskUpdateCode = "update_code"
	TaskRestart    = "restart"
	TaskCleanup    = "cleanup"
	TaskRollback   = "rollback"

	// DefaultTask выполняется, если имя задачи не указано.
	DefaultTask = TaskDeploy
)

// Func — тело задачи. Возвращает релиз, который задача создала
// или активировала (пустой, если релизы не затрагивались).
type Func func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error)

// Task — именованная задача.
type Task struct {
	Name        string
	Description string

	// ShipsCode — задача клонирует код (для неё имеет смысл ревизия ветки).
	ShipsCode bool

	Run Func
}

// Registry — реестр задач.
//
// Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]Task),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными задачами.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Task{
		Name:        TaskSetup,
		Description: "Prepares one or more servers for deployment",
		Run: func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error) {
			return domain.Release{}, o.Setup(ctx, cfg)
		},
	})
	r.Register(Task{
		Name:        TaskDeploy,
		Description: "Deploys your project: update and restart",
		ShipsCode:   true,
		Run: func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error) {
			return o.Deploy(ctx, cfg)
		},
	})
	r.Register(Task{
		Name:        TaskUpdate,
		Description: "Copies your project and updates environment and symlink",
		ShipsCode:   true,
		Run: func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error) {
			return o.Update(ctx, cfg)
		},
	})
	r.Register(Task{
		Name:        TaskUpdateCode,
		Description: "Copies your project to the remote servers",
		ShipsCode:   true,
		Run: func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error) {
			return o.UpdateCode(ctx, cfg)
		},
	})
	r.Register(Task{
		Name:        TaskRestart,
		Description: "Restarts your application",
		Run: func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error) {
			return domain.Release{}, o.Restart(ctx, cfg, domain.Release{})
		},
	})
	r.Register(Task{
		Name:        TaskCleanup,
		Description: "Cleans up old releases",
		Run: func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error) {
			releases, err := o.ListReleases(ctx, cfg)
			if err != nil {
				return domain.Release{}, err
			}
			_, err = o.Cleanup(ctx, cfg, releases)
			return domain.Release{}, err
		},
	})
	r.Register(Task{
		Name:        TaskRollback,
		Description: "Rolls back to a previous version and restarts",
		Run: func(ctx context.Context, o *orchestrator.Orchestrator, cfg config.Deploy) (domain.Release, error) {
			return o.RollbackAndRestart(ctx, cfg)
		},
	})

	return r
}

// Register регистрирует задачу в реестре.
// Если задача с таким именем уже существует, она будет перезаписана.
func (r *Registry) Register(task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.Name] = task
}

// Get возвращает задачу по имени.
// Возвращает ErrTaskNotFound, если задача не найдена.
func (r *Registry) Get(name string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[name]
	if !exists {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}

	return task, nil
}

// Has проверяет, зарегистрирована ли задача.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tasks[name]
	return exists
}

// Names возвращает отсортированный список имён задач.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных задач.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
