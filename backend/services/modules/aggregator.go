package modules

import (
	"context"
	"fmt"
	"strings"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
)

// Aggregator answers checklist questions for one fixed module list.
type Aggregator struct {
	store   Store
	modules []Module
}

func NewAggregator(store Store, mods []Module) *Aggregator {
	return &Aggregator{store: store, modules: mods}
}

func (a *Aggregator) Modules() []Module {
	out := make([]Module, len(a.modules))
	copy(out, a.modules)
	return out
}

func (a *Aggregator) known(moduleID string) bool {
	for _, m := range a.modules {
		if m.ID == moduleID {
			return true
		}
	}
	return false
}

// Complete marks moduleID done for the session. Completing it again is a no-op.
func (a *Aggregator) Complete(ctx context.Context, session, moduleID string) (bool, error) {
	if strings.TrimSpace(session) == "" {
		return false, apperr.InvalidInput("session is required")
	}
	if !a.known(moduleID) {
		return false, fmt.Errorf("complete module %q: %w", moduleID, apperr.NotFound("module"))
	}
	return a.store.Add(ctx, session, moduleID)
}

func (a *Aggregator) IsComplete(ctx context.Context, session, moduleID string) (bool, error) {
	return a.store.Has(ctx, session, moduleID)
}

// PercentComplete is |completed ∩ all| / |all| * 100, or 0 for an empty list.
func (a *Aggregator) PercentComplete(ctx context.Context, session string, allModuleIDs []string) (float64, error) {
	if len(allModuleIDs) == 0 {
		return 0, nil
	}
	completed, err := a.completedSet(ctx, session)
	if err != nil {
		return 0, err
	}

	n := 0
	seen := make(map[string]struct{}, len(allModuleIDs))
	for _, id := range allModuleIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := completed[id]; ok {
			n++
		}
	}
	return float64(n) / float64(len(seen)) * 100, nil
}

// Next returns the first module in order that is not complete, or nil when
// the checklist is done.
func (a *Aggregator) Next(ctx context.Context, session string) (*Module, error) {
	completed, err := a.completedSet(ctx, session)
	if err != nil {
		return nil, err
	}
	for _, m := range a.modules {
		if _, ok := completed[m.ID]; !ok {
			next := m
			return &next, nil
		}
	}
	return nil, nil
}

// ModuleState is a module with its completion flag.
type ModuleState struct {
	Module
	Completed bool `json:"completed"`
}

// Overview is the full checklist for a session.
type Overview struct {
	Modules []ModuleState `json:"modules"`
	Percent float64       `json:"percent"`
	Next    *Module       `json:"next"`
}

func (a *Aggregator) Overview(ctx context.Context, session string) (*Overview, error) {
	completed, err := a.completedSet(ctx, session)
	if err != nil {
		return nil, err
	}

	ov := &Overview{Modules: make([]ModuleState, 0, len(a.modules))}
	done := 0
	for _, m := range a.modules {
		_, ok := completed[m.ID]
		if ok {
			done++
		} else if ov.Next == nil {
			next := m
			ov.Next = &next
		}
		ov.Modules = append(ov.Modules, ModuleState{Module: m, Completed: ok})
	}
	if len(a.modules) > 0 {
		ov.Percent = float64(done) / float64(len(a.modules)) * 100
	}
	return ov, nil
}

func (a *Aggregator) completedSet(ctx context.Context, session string) (map[string]struct{}, error) {
	members, err := a.store.Members(ctx, session)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	return set, nil
}
