package model

// NodeType discriminates journey nodes.
type NodeType string

const (
	NodeSegmentEntry NodeType = "SegmentEntryNode"
	NodeEventEntry   NodeType = "EventEntryNode"
	NodeMessage      NodeType = "MessageNode"
	NodeSegmentSplit NodeType = "SegmentSplitNode"
	NodeDelay        NodeType = "DelayNode"
	NodeWaitFor      NodeType = "WaitForNode"
	NodeExit         NodeType = "ExitNode"
)

// IsEntry reports whether t is one of the entry node types.
func (t NodeType) IsEntry() bool {
	return t == NodeSegmentEntry || t == NodeEventEntry
}

// Reserved node ids. The entry and exit nodes are addressed by these ids
// instead of their own, so other nodes cannot use them.
const (
	EntryNodeID = "EntryNode"
	ExitNodeID  = "ExitNode"
)

// ChannelType is the delivery channel of a message node.
type ChannelType string

const (
	ChannelEmail      ChannelType = "Email"
	ChannelSms        ChannelType = "Sms"
	ChannelMobilePush ChannelType = "MobilePush"
	ChannelWebhook    ChannelType = "Webhook"
)

// IsValid checks whether the channel is a known value.
func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSms, ChannelMobilePush, ChannelWebhook:
		return true
	}
	return false
}

// Variant types that are not channels.
const (
	VariantBoolean = "Boolean"
	VariantSecond  = "Second"
)

// NodeVariant carries the type-specific settings of a node. For message
// nodes Type is the channel; for segment splits it is "Boolean"; for delays
// it is "Second".
type NodeVariant struct {
	Type       string `json:"type"`
	TemplateID string `json:"template_id,omitempty"`
	Segment    string `json:"segment,omitempty"`
	TrueChild  string `json:"true_child,omitempty"`
	FalseChild string `json:"false_child,omitempty"`
	Seconds    int    `json:"seconds,omitempty"`
}

// SegmentChild is one branch of a wait-for node.
type SegmentChild struct {
	SegmentID string `json:"segment_id"`
	ID        string `json:"id"`
}

// JourneyNode is a single step in a journey definition.
type JourneyNode struct {
	ID              string         `json:"id,omitempty"`
	Type            NodeType       `json:"type"`
	Name            string         `json:"name,omitempty"`
	Child           string         `json:"child,omitempty"`
	Segment         string         `json:"segment,omitempty"`
	Event           string         `json:"event,omitempty"`
	Variant         *NodeVariant   `json:"variant,omitempty"`
	TimeoutSeconds  int            `json:"timeout_seconds,omitempty"`
	TimeoutChild    string         `json:"timeout_child,omitempty"`
	SegmentChildren []SegmentChild `json:"segment_children,omitempty"`
}

// Children returns the ids this node can hand users to, in a stable order.
func (n *JourneyNode) Children() []string {
	var out []string
	switch n.Type {
	case NodeSegmentSplit:
		if n.Variant != nil {
			out = append(out, n.Variant.TrueChild, n.Variant.FalseChild)
		}
	case NodeWaitFor:
		for _, sc := range n.SegmentChildren {
			out = append(out, sc.ID)
		}
		out = append(out, n.TimeoutChild)
	case NodeExit:
	default:
		out = append(out, n.Child)
	}
	return out
}

// Channel returns the message channel of a message node, or "" for other
// node types.
func (n *JourneyNode) Channel() ChannelType {
	if n.Type != NodeMessage || n.Variant == nil {
		return ""
	}
	return ChannelType(n.Variant.Type)
}

// JourneyDefinition is the node graph of a journey.
type JourneyDefinition struct {
	EntryNode JourneyNode   `json:"entry_node"`
	ExitNode  JourneyNode   `json:"exit_node"`
	Nodes     []JourneyNode `json:"nodes"`
}

// NodeByID returns the body node with the given id, or nil. The entry and
// exit nodes are not body nodes.
func (d *JourneyDefinition) NodeByID(id string) *JourneyNode {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// MessageNodes returns the message nodes in definition order.
func (d *JourneyDefinition) MessageNodes() []*JourneyNode {
	var out []*JourneyNode
	for i := range d.Nodes {
		if d.Nodes[i].Type == NodeMessage {
			out = append(out, &d.Nodes[i])
		}
	}
	return out
}
