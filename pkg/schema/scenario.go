package schema

// Scenario is the module/route workflow format ("blueprint"): a linear flow of
// modules where branching is expressed through router modules carrying routes.
type Scenario struct {
	Name     string         `json:"name,omitempty"`
	Flow     []Module       `json:"flow"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Module is a single module in a scenario flow. ID is the numeric reference
// other modules use in expressions ({{1.name}}).
type Module struct {
	ID       int            `json:"id"`
	Module   string         `json:"module"`
	Version  int            `json:"version,omitempty"`
	Mapper   map[string]any `json:"mapper,omitempty"`
	Routes   []Route        `json:"routes,omitempty"`
	Metadata ModuleMetadata `json:"metadata,omitempty"`
}

// Route is one branch under a router module.
type Route struct {
	Flow   []Module       `json:"flow"`
	Filter map[string]any `json:"filter,omitempty"`
	Label  string         `json:"label,omitempty"`
}

// ModuleMetadata carries designer hints (canvas position) and the original
// node name when the module came from a graph conversion.
type ModuleMetadata struct {
	Designer *DesignerMeta `json:"designer,omitempty"`
	Restore  map[string]any `json:"restore,omitempty"`
	Label    string         `json:"label,omitempty"`
}

// DesignerMeta is the canvas position of a module.
type DesignerMeta struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ModuleByID returns the module with the given id, searching routes
// recursively, or nil.
func (s *Scenario) ModuleByID(id int) *Module {
	return findModule(s.Flow, id)
}

func findModule(flow []Module, id int) *Module {
	for i := range flow {
		if flow[i].ID == id {
			return &flow[i]
		}
		for r := range flow[i].Routes {
			if m := findModule(flow[i].Routes[r].Flow, id); m != nil {
				return m
			}
		}
	}
	return nil
}

// MaxModuleID returns the highest module id in the scenario, including routes.
func (s *Scenario) MaxModuleID() int {
	return maxID(s.Flow)
}

func maxID(flow []Module) int {
	max := 0
	for i := range flow {
		if flow[i].ID > max {
			max = flow[i].ID
		}
		for r := range flow[i].Routes {
			if n := maxID(flow[i].Routes[r].Flow); n > max {
				max = n
			}
		}
	}
	return max
}
