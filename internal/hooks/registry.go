package hooks

import (
	"errors"
	"fmt"

	"github.com/radixpump/pumpengine/internal/types"
)

// Error definitions for registry management
var (
	ErrHookNotRegistered = errors.New("hook is not registered")
	ErrBadRound          = errors.New("hook reports an invalid execution round")
)

// registryEntry binds a hook component to the operations it may be invoked
// for. Round and recursion flag are captured once at registration.
type registryEntry struct {
	hook           Hook
	round          int
	allowRecursion bool
	operations     map[types.Operation]bool
}

// Registry maps hook names to registered components. Enable lists reference
// hook names, never entries, so removal is always safe while referenced.
type Registry struct {
	entries map[string]*registryEntry
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Register adds or replaces a hook for the given operations. The hook's
// round and recursion flag are queried here, once.
func (r *Registry) Register(hook Hook, operations []types.Operation) error {
	info := hook.Info()
	if info.Round < 0 || info.Round >= NumRounds {
		return fmt.Errorf("%w: %d", ErrBadRound, info.Round)
	}
	if len(operations) == 0 {
		return errors.New("hook must be registered for at least one operation")
	}
	ops := make(map[types.Operation]bool, len(operations))
	for _, op := range operations {
		ops[op] = true
	}
	r.entries[hook.Name()] = &registryEntry{
		hook:           hook,
		round:          info.Round,
		allowRecursion: info.AllowRecursion,
		operations:     ops,
	}
	return nil
}

// Unregister removes a hook completely.
func (r *Registry) Unregister(name string) error {
	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("%w: %s", ErrHookNotRegistered, name)
	}
	delete(r.entries, name)
	return nil
}

// UnregisterOperations removes a hook from specific operations only. The
// hook disappears entirely once no operation remains.
func (r *Registry) UnregisterOperations(name string, operations []types.Operation) error {
	entry, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHookNotRegistered, name)
	}
	for _, op := range operations {
		delete(entry.operations, op)
	}
	if len(entry.operations) == 0 {
		delete(r.entries, name)
	}
	return nil
}

// Round returns the execution round a hook registered for.
func (r *Registry) Round(name string) (int, error) {
	entry, ok := r.entries[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrHookNotRegistered, name)
	}
	return entry.round, nil
}

// lookup returns the entry only if the hook is still registered for the
// operation. Used at dispatch time to tolerate unregister races.
func (r *Registry) lookup(name string, op types.Operation) (*registryEntry, bool) {
	entry, ok := r.entries[name]
	if !ok || !entry.operations[op] {
		return nil, false
	}
	return entry, true
}

// HooksPerOperation keeps, per execution round, the ordered list of hook
// names enabled for each operation. Insertion order is priority order;
// duplicates are suppressed. One instance exists globally and one per pool.
type HooksPerOperation struct {
	rounds [NumRounds]map[types.Operation][]string
}

// NewHooksPerOperation creates an empty per-operation enablement table.
func NewHooksPerOperation() *HooksPerOperation {
	h := &HooksPerOperation{}
	for i := range h.rounds {
		h.rounds[i] = make(map[types.Operation][]string)
	}
	return h
}

// Add enables a hook name for the given operations in a round.
func (h *HooksPerOperation) Add(round int, name string, operations []types.Operation) {
	for _, op := range operations {
		list := h.rounds[round][op]
		found := false
		for _, existing := range list {
			if existing == name {
				found = true
				break
			}
		}
		if !found {
			h.rounds[round][op] = append(list, name)
		}
	}
}

// Remove disables a hook name for the given operations across all rounds.
func (h *HooksPerOperation) Remove(name string, operations []types.Operation) {
	for round := range h.rounds {
		for _, op := range operations {
			list := h.rounds[round][op]
			for i, existing := range list {
				if existing == name {
					h.rounds[round][op] = append(list[:i], list[i+1:]...)
					break
				}
			}
		}
	}
}

// RemoveAll disables a hook name everywhere.
func (h *HooksPerOperation) RemoveAll(name string) {
	h.Remove(name, types.AllOperations())
}

// List returns the enabled names for an operation in a round, in priority
// order. The returned slice is shared; callers must not mutate it.
func (h *HooksPerOperation) List(round int, op types.Operation) []string {
	return h.rounds[round][op]
}

// Merged combines the global list with a pool list for one round and
// operation: global names first, pool-only names appended, de-duplicated.
func Merged(global, pool *HooksPerOperation, round int, op types.Operation) []string {
	globalList := global.List(round, op)
	merged := make([]string, 0, len(globalList))
	seen := make(map[string]bool, len(globalList))
	for _, name := range globalList {
		if !seen[name] {
			merged = append(merged, name)
			seen[name] = true
		}
	}
	if pool != nil {
		for _, name := range pool.List(round, op) {
			if !seen[name] {
				merged = append(merged, name)
				seen[name] = true
			}
		}
	}
	return merged
}
