// ============================================================================
// rfm Dependency Oracle
// ============================================================================
//
// Package: internal/depgraph
// Purpose: Classify a task's dependencies as failed / skipped / succeeded.
//          Stateless: it only inspects the task index, never mutates it —
//          the driver acts on its verdict.
//
// ============================================================================

package depgraph

import (
	"github.com/regtest/rfmrun/internal/task"
	"github.com/regtest/rfmrun/pkg/rfm"
)

// Oracle classifies a task's dependencies against a task index.
type Oracle struct {
	Index *task.Index
}

// New creates an Oracle backed by idx.
func New(idx *task.Index) *Oracle {
	return &Oracle{Index: idx}
}

// Failed reports whether any indexed dependency of t has failed.
func (o *Oracle) Failed(t *task.Task) bool {
	for _, dep := range t.Case.Deps {
		if depTask, ok := o.Index.Get(dep); ok && depTask.Stage() == rfm.StageFailed {
			return true
		}
	}
	return false
}

// Skipped reports whether any indexed dependency of t has been skipped.
func (o *Oracle) Skipped(t *task.Task) bool {
	for _, dep := range t.Case.Deps {
		if depTask, ok := o.Index.Get(dep); ok && depTask.Stage() == rfm.StageSkipped {
			return true
		}
	}
	return false
}

// Succeeded reports whether every indexed dependency of t has retired
// successfully. Dependencies absent from the index (never submitted, e.g.
// restored from a previous session) are treated as already succeeded.
func (o *Oracle) Succeeded(t *task.Task) bool {
	for _, dep := range t.Case.Deps {
		depTask, ok := o.Index.Get(dep)
		if !ok {
			continue
		}
		if depTask.Stage() != rfm.StageRetired {
			return false
		}
	}
	return true
}
