package recovery

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/AO-Miko/Discord-Bot/internal/faults"
)

// Action is one recovery step. It applies when the triggering error's
// kind is in Kinds; an empty Kinds list matches every error. Actions run
// in ascending Priority order.
type Action struct {
	Name     string
	Priority int
	Kinds    []faults.Kind
	Run      func(ctx context.Context, cause error) error
}

func (a Action) matches(kind faults.Kind) bool {
	if len(a.Kinds) == 0 {
		return true
	}
	for _, k := range a.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Manager runs registered recovery actions against errors that reach it.
// Only one recovery pass runs at a time; a trigger arriving while a pass
// is in progress is dropped and logged, not queued.
type Manager struct {
	mutex   sync.Mutex
	actions []Action
	busy    atomic.Bool
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds an action, keeping the list sorted by ascending priority.
func (m *Manager) Register(action Action) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.actions = append(m.actions, action)
	sort.SliceStable(m.actions, func(i, j int) bool {
		return m.actions[i].Priority < m.actions[j].Priority
	})
}

// HandleError runs every applicable action for err in priority order.
// Returns false if a pass was already in progress and this trigger was
// dropped.
func (m *Manager) HandleError(ctx context.Context, err error) bool {
	if err == nil {
		return true
	}

	if !m.busy.CompareAndSwap(false, true) {
		m.logger.Warn("Recovery pass already in progress, dropping trigger",
			slog.String("error", err.Error()))
		return false
	}
	defer m.busy.Store(false)

	kind := faults.KindOf(err)

	m.mutex.Lock()
	actions := make([]Action, len(m.actions))
	copy(actions, m.actions)
	m.mutex.Unlock()

	for _, action := range actions {
		if !action.matches(kind) {
			continue
		}

		m.logger.Info("Running recovery action",
			slog.String("action", action.Name),
			slog.String("kind", kind.String()))

		if runErr := action.Run(ctx, err); runErr != nil {
			m.logger.Error("Recovery action failed",
				slog.String("action", action.Name),
				slog.String("error", runErr.Error()))
		}
	}

	return true
}
