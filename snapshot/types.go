package snapshot

// Node is one node record in a scene tree snapshot.
type Node struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Path       string         `json:"path"`
	Properties map[string]any `json:"properties,omitempty"`
	Children   []Node         `json:"children,omitempty"`
}

// Snapshot is a captured scene tree from the running game. The screenshot
// field the runtime attaches is dropped before the snapshot reaches the
// differ.
type Snapshot struct {
	SceneName string `json:"scene_name"`
	Frame     int64  `json:"frame"`
	Nodes     []Node `json:"nodes"`
}

// CountNodes returns the total node count of a nested tree.
func CountNodes(nodes []Node) int {
	count := len(nodes)
	for _, node := range nodes {
		count += CountNodes(node.Children)
	}
	return count
}
