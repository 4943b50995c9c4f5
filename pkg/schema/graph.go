package schema

// GraphWorkflow is the node-graph workflow format: a flat node list plus a
// connection map keyed by source node name.
type GraphWorkflow struct {
	Name        string                   `json:"name,omitempty"`
	Nodes       []GraphNode              `json:"nodes"`
	Connections map[string]NodeConnGroup `json:"connections,omitempty"`
	Settings    map[string]any           `json:"settings,omitempty"`
	Meta        map[string]any           `json:"meta,omitempty"`
}

// GraphNode is a single node in a graph workflow.
type GraphNode struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion,omitempty"`
	Position    []float64      `json:"position,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Credentials map[string]any `json:"credentials,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// NodeConnGroup holds the outgoing connections of one node, grouped by output
// kind. "main" carries data; each outer slice index is an output port, each
// inner slice a fan-out from that port.
type NodeConnGroup struct {
	Main [][]NodeLink `json:"main,omitempty"`
}

// NodeLink is a single edge from a node output to a node input.
type NodeLink struct {
	Node  string `json:"node"`
	Type  string `json:"type,omitempty"`
	Index int    `json:"index"`
}

// NodeByName returns the node with the given name, or nil.
func (w *GraphWorkflow) NodeByName(name string) *GraphNode {
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			return &w.Nodes[i]
		}
	}
	return nil
}
