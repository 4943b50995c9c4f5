package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a Model as a Mermaid flowchart string.
func RenderMermaid(model *Model) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	// Title as comment.
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	// Render nodes with shapes based on kind.
	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))

		// Subgraphs for router branches.
		for _, sg := range node.Children {
			b.WriteString(fmt.Sprintf("    subgraph %s[\"%s: %s\"]\n",
				mermaidSafeID(node.ID+"_"+sg.Label), node.Label, sg.Label))
			for _, subNode := range sg.Nodes {
				b.WriteString(fmt.Sprintf("        %s\n", mermaidNodeDef(subNode)))
			}
			for _, edge := range sg.Edges {
				b.WriteString(fmt.Sprintf("        %s\n", mermaidEdge(edge)))
			}
			b.WriteString("    end\n")
		}
	}

	// Render edges.
	for _, edge := range model.Edges {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidEdge(edge)))
	}

	// Conversion status class definitions.
	b.WriteString("\n")
	b.WriteString("    classDef full fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef partial fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef unsupported fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")

	// Apply status classes.
	for _, node := range model.Nodes {
		writeStatusClass(&b, node)
		for _, sg := range node.Children {
			for _, subNode := range sg.Nodes {
				writeStatusClass(&b, subNode)
			}
		}
	}

	return b.String()
}

func writeStatusClass(b *strings.Builder, node *Node) {
	if node.Overlay == nil {
		return
	}
	cls := mermaidStatusClass(node.Overlay.Status)
	if cls != "" {
		b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), cls))
	}
}

func mermaidEdge(edge Edge) string {
	label := ""
	if edge.Label != "" {
		label = fmt.Sprintf("|%s|", edge.Label)
	}
	return fmt.Sprintf("%s -->%s %s", mermaidSafeID(edge.From), label, mermaidSafeID(edge.To))
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidLabel(node)

	switch node.Kind {
	case NodeKindTrigger:
		return fmt.Sprintf("%s((%q))", id, label)
	case NodeKindRouter:
		return fmt.Sprintf("%s{%q}", id, label)
	default: // action
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidLabel shows the node label plus the flag count when the node carries
// review flags.
func mermaidLabel(node *Node) string {
	if node.Overlay != nil && node.Overlay.FlagCount > 0 {
		return fmt.Sprintf("%s (%d flags)", node.Label, node.Overlay.FlagCount)
	}
	return node.Label
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots, dashes and spaces with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidStatusClass maps a conversion status to a Mermaid class name.
func mermaidStatusClass(status string) string {
	switch status {
	case "full":
		return "full"
	case "partial":
		return "partial"
	case "unsupported":
		return "unsupported"
	default:
		return ""
	}
}
