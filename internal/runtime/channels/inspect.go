package channels

import "fmt"

// Node kinds reported by the built-in channels.
const (
	KindAdapter        = "adapter"
	KindUntypedAdapter = "untyped_adapter"
	KindShunt          = "shunt"
	KindConsumer       = "consumer"
	KindBroadcast      = "broadcast"
	KindFilter         = "filter"
	KindTyped          = "typed"
	KindForward        = "forward"
	KindHooked         = "hooked"
	KindMailbox        = "mailbox"
	KindTraced         = "traced"
	KindOpaque         = "opaque"
)

// NodeInfo identifies one channel in a topology description.
type NodeInfo struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Name        string `json:"name,omitempty"`
	MessageType string `json:"message_type,omitempty"`
}

// Inspectable is implemented by channels that can describe themselves and the
// channels directly downstream of them.
type Inspectable interface {
	NodeInfo() NodeInfo
	Children() []any
}

// Node is a read-only snapshot of a channel and everything downstream of it.
type Node struct {
	NodeInfo
	Children []Node `json:"children,omitempty"`
	// Cycle is set when the node was already visited higher up the walk.
	Cycle bool `json:"cycle,omitempty"`
}

// Describe walks the channel graph below ch. It only reads adapter outputs,
// so it can run while the network is live; concurrent swaps may or may not be
// reflected.
func Describe(ch any) Node {
	return describe(ch, map[string]bool{})
}

func describe(ch any, visiting map[string]bool) Node {
	inspectable, ok := ch.(Inspectable)
	if !ok {
		return Node{NodeInfo: NodeInfo{Kind: KindOpaque, MessageType: fmt.Sprintf("%T", ch)}}
	}

	node := Node{NodeInfo: inspectable.NodeInfo()}
	if node.ID != "" {
		if visiting[node.ID] {
			node.Cycle = true
			return node
		}
		visiting[node.ID] = true
		defer delete(visiting, node.ID)
	}

	for _, child := range inspectable.Children() {
		node.Children = append(node.Children, describe(child, visiting))
	}
	return node
}
