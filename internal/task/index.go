package task

import "github.com/regtest/rfmrun/pkg/rfm"

// Index maps a CaseKey to its Task. A case becomes indexed the moment it is
// submitted; cases never submitted (e.g. dependencies restored from a
// previous session) are absent and must be treated as already-succeeded by
// callers.
type Index struct {
	tasks map[rfm.CaseKey]*Task
}

// NewIndex creates an empty task index.
func NewIndex() *Index {
	return &Index{tasks: make(map[rfm.CaseKey]*Task)}
}

// Put registers t under its case's key and bumps the ref-count of every
// already-indexed dependency. Submission order is assumed to place a
// dependency before its dependents, so by the time the last dependent is
// submitted each dependency's ref-count equals its full in-degree of
// not-yet-finished dependents.
func (idx *Index) Put(t *Task) {
	idx.tasks[t.Case.Key()] = t
	for _, dep := range t.Case.Deps {
		if depTask, ok := idx.tasks[dep]; ok {
			depTask.AddDependent()
		}
	}
}

// Get looks up a task by key.
func (idx *Index) Get(key rfm.CaseKey) (*Task, bool) {
	t, ok := idx.tasks[key]
	return t, ok
}

// Len reports how many cases have been submitted.
func (idx *Index) Len() int { return len(idx.tasks) }

// All returns every indexed task, in no particular order. Used by the
// abort path, which must reach every submitted task regardless of whether
// it is still actively being driven.
func (idx *Index) All() []*Task {
	out := make([]*Task, 0, len(idx.tasks))
	for _, t := range idx.tasks {
		out = append(out, t)
	}
	return out
}

// ReleaseDependencies decrements the ref-count of every indexed dependency
// of t's case, exactly once each. Call this once per successful task.
func (idx *Index) ReleaseDependencies(t *Task) {
	for _, dep := range t.Case.Deps {
		if depTask, ok := idx.tasks[dep]; ok {
			depTask.ReleaseDependent()
		}
	}
}
