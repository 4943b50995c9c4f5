package diagram

// NodeKind classifies a diagram node by its workflow role.
type NodeKind string

const (
	NodeKindTrigger NodeKind = "trigger"
	NodeKindRouter  NodeKind = "router"
	NodeKindAction  NodeKind = "action"
)

// Model is the intermediate representation used by all renderers.
type Model struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a single workflow step in the diagram.
type Node struct {
	ID       string
	Label    string
	Type     string
	Kind     NodeKind
	Overlay  *ConversionOverlay
	Children []*SubGraph // router branches
}

// SubGraph holds the nested modules of one router branch.
type SubGraph struct {
	Label string
	Nodes []*Node
	Edges []Edge
}

// ConversionOverlay carries per-node conversion outcome when a report is
// rendered on top of the workflow.
type ConversionOverlay struct {
	Status     string // from schema.NodeStatus
	TargetType string
	FlagCount  int
}

// Edge represents a connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}
