// Package annotation accumulates the per-node verdicts an agent issues
// while validating a plan. Verdicts for one node may arrive more than
// once and out of severity order; the reconciler resolves them to the
// most severe status seen while keeping every reason.
package annotation

import (
	"sync"

	"github.com/planward/planward/pkg/models"
)

// Reconciler owns the node-to-annotation map for one check cycle at a
// time. All methods are safe for concurrent use; each Flag call is
// applied atomically against the accumulated state, so the resolved
// severity is the true maximum regardless of arrival interleaving.
type Reconciler struct {
	mu    sync.Mutex
	nodes map[string]*models.Annotation
}

func NewReconciler() *Reconciler {
	return &Reconciler{nodes: make(map[string]*models.Annotation)}
}

// Flag records one verdict for a node and returns the node's resolved
// status after applying it. The status only replaces the stored one
// when it is more severe; the reason is appended unconditionally, in
// arrival order. Node IDs are not checked against any node list, so a
// verdict for an unknown node is accepted silently.
func (r *Reconciler) Flag(nodeID string, status models.NodeStatus, reason string) models.NodeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.nodes[nodeID]
	if !ok {
		current = &models.Annotation{Status: status}
		r.nodes[nodeID] = current
	} else if status.Severity() > current.Status.Severity() {
		current.Status = status
	}

	current.Reasons = append(current.Reasons, reason)

	return current.Status
}

// Resolved returns the node's resolved status. The second return is
// false when the node has not been flagged this cycle.
func (r *Reconciler) Resolved(nodeID string) (models.NodeStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.nodes[nodeID]
	if !ok {
		return "", false
	}

	return current.Status, true
}

// Reset discards all accumulated annotations. Called at the start of
// every check cycle so stale verdicts never leak into a new one.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = make(map[string]*models.Annotation)
}

// Load replaces the accumulated state with a copy of the given map.
// Used when rehydrating a session from storage.
func (r *Reconciler) Load(annotations map[string]*models.Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = make(map[string]*models.Annotation, len(annotations))
	for id, annotation := range annotations {
		r.nodes[id] = cloneAnnotation(annotation)
	}
}

// Snapshot returns an independent copy of the accumulated state, safe
// to hand to renderers and storage while flags keep arriving.
func (r *Reconciler) Snapshot() map[string]*models.Annotation {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]*models.Annotation, len(r.nodes))
	for id, annotation := range r.nodes {
		snapshot[id] = cloneAnnotation(annotation)
	}

	return snapshot
}

func cloneAnnotation(annotation *models.Annotation) *models.Annotation {
	clone := &models.Annotation{Status: annotation.Status}

	if len(annotation.Reasons) > 0 {
		clone.Reasons = make([]string, len(annotation.Reasons))
		copy(clone.Reasons, annotation.Reasons)
	}

	return clone
}
