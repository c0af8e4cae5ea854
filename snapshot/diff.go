// Package snapshot keeps the last observed scene tree and computes structured
// deltas against the next capture.
package snapshot

import (
	"reflect"
	"sort"
	"sync"
)

// Change holds the old and new value of one changed property.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff describes what changed between two consecutive snapshots. Node
// identity is the node path.
type Diff struct {
	NodesAdded   []string                     `json:"nodes_added"`
	NodesRemoved []string                     `json:"nodes_removed"`
	NodesChanged map[string]map[string]Change `json:"nodes_changed"`
	SceneChanged bool                         `json:"scene_changed,omitempty"`
}

// Differ holds a single baseline slot: the most recently captured snapshot.
// Diffs are always against the immediately prior observation, never a fixed
// origin.
type Differ struct {
	mu       sync.Mutex
	baseline *Snapshot
}

func NewDiffer() *Differ {
	return &Differ{}
}

// Diff compares next against the stored baseline and then replaces the
// baseline with next unconditionally. The first call establishes the baseline
// and reports no changes.
func (d *Differ) Diff(next Snapshot) Diff {
	d.mu.Lock()
	defer d.mu.Unlock()

	diff := Diff{
		NodesAdded:   []string{},
		NodesRemoved: []string{},
		NodesChanged: map[string]map[string]Change{},
	}

	prev := d.baseline
	d.baseline = &next
	if prev == nil {
		return diff
	}

	oldNodes := flatten(prev.Nodes)
	newNodes := flatten(next.Nodes)

	for path, node := range newNodes {
		old, existed := oldNodes[path]
		if !existed {
			diff.NodesAdded = append(diff.NodesAdded, path)
			continue
		}
		changes := diffProperties(old.Properties, node.Properties)
		if len(changes) > 0 {
			diff.NodesChanged[path] = changes
		}
	}
	for path := range oldNodes {
		if _, exists := newNodes[path]; !exists {
			diff.NodesRemoved = append(diff.NodesRemoved, path)
		}
	}
	sort.Strings(diff.NodesAdded)
	sort.Strings(diff.NodesRemoved)

	diff.SceneChanged = prev.SceneName != next.SceneName
	return diff
}

// Reset drops the baseline. The next Diff call establishes a fresh one.
// Called when the runtime is confirmed down: the target process ended, so the
// old tree is no longer a meaningful comparison point.
func (d *Differ) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseline = nil
}

// HasBaseline reports whether a baseline snapshot is stored.
func (d *Differ) HasBaseline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseline != nil
}

func flatten(nodes []Node) map[string]Node {
	flat := make(map[string]Node)
	var walk func([]Node)
	walk = func(nodes []Node) {
		for _, node := range nodes {
			flat[node.Path] = node
			walk(node.Children)
		}
	}
	walk(nodes)
	return flat
}

func diffProperties(old, next map[string]any) map[string]Change {
	changes := make(map[string]Change)
	for key, newValue := range next {
		oldValue, existed := old[key]
		if !existed || !reflect.DeepEqual(oldValue, newValue) {
			changes[key] = Change{Old: oldValue, New: newValue}
		}
	}
	for key, oldValue := range old {
		if _, exists := next[key]; !exists {
			changes[key] = Change{Old: oldValue, New: nil}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}
