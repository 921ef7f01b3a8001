package models

// NodeStatus is the validation verdict a check assigns to a node.
type NodeStatus string

const (
	NodeStatusOK      NodeStatus = "ok"
	NodeStatusWarning NodeStatus = "warning"
	NodeStatusError   NodeStatus = "error"
)

// severityRank orders statuses for conflict resolution. When a check
// flags the same node more than once, the higher rank wins.
var severityRank = map[NodeStatus]int{
	NodeStatusOK:      0,
	NodeStatusWarning: 1,
	NodeStatusError:   2,
}

// Severity returns the conflict-resolution rank of the status.
func (s NodeStatus) Severity() int {
	return severityRank[s]
}

// Annotation is the accumulated verdict for a single node within one
// check. Status holds the most severe status seen; Reasons keeps every
// explanation in arrival order, including those from outranked flags.
type Annotation struct {
	Status  NodeStatus `json:"status"`
	Reasons []string   `json:"reasons,omitempty"`
}

// NodeStyle names the visual treatment for a node.
type NodeStyle string

const (
	NodeStyleDefault NodeStyle = "default"
	NodeStyleOK      NodeStyle = "ok"
	NodeStyleWarning NodeStyle = "warning"
	NodeStyleError   NodeStyle = "error"
)

// StyleFor maps a validation status to its visual style. The style is
// always derived on demand; it is never stored on the node. Anything
// other than the three known statuses gets the default style.
func StyleFor(status NodeStatus) NodeStyle {
	switch status {
	case NodeStatusOK:
		return NodeStyleOK
	case NodeStatusWarning:
		return NodeStyleWarning
	case NodeStatusError:
		return NodeStyleError
	default:
		return NodeStyleDefault
	}
}
