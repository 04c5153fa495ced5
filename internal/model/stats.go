package model

import "encoding/json"

// ChannelStats holds delivery rates for one channel. Which rates are
// meaningful depends on Type; the JSON form only carries those.
type ChannelStats struct {
	Type         ChannelType
	DeliveryRate float64
	OpenRate     float64
	ClickRate    float64
	SpamRate     float64
	FailRate     float64
}

type emailStatsJSON struct {
	Type         ChannelType `json:"type"`
	DeliveryRate float64     `json:"delivery_rate"`
	OpenRate     float64     `json:"open_rate"`
	ClickRate    float64     `json:"click_rate"`
	SpamRate     float64     `json:"spam_rate"`
}

type smsStatsJSON struct {
	Type         ChannelType `json:"type"`
	DeliveryRate float64     `json:"delivery_rate"`
	FailRate     float64     `json:"fail_rate"`
}

type channelStatsJSON struct {
	Type         ChannelType `json:"type"`
	DeliveryRate float64     `json:"delivery_rate"`
	OpenRate     float64     `json:"open_rate"`
	ClickRate    float64     `json:"click_rate"`
	SpamRate     float64     `json:"spam_rate"`
	FailRate     float64     `json:"fail_rate"`
}

// MarshalJSON emits the channel-specific shape.
func (c ChannelStats) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case ChannelEmail:
		return json.Marshal(emailStatsJSON{c.Type, c.DeliveryRate, c.OpenRate, c.ClickRate, c.SpamRate})
	case ChannelSms:
		return json.Marshal(smsStatsJSON{c.Type, c.DeliveryRate, c.FailRate})
	default:
		return json.Marshal(struct {
			Type ChannelType `json:"type"`
		}{c.Type})
	}
}

// UnmarshalJSON accepts any of the channel-specific shapes.
func (c *ChannelStats) UnmarshalJSON(data []byte) error {
	var v channelStatsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = ChannelStats(v)
	return nil
}

// MessageStats summarises the messages sent from one node.
type MessageStats struct {
	SendRate     float64      `json:"send_rate"`
	ChannelStats ChannelStats `json:"channel_stats"`
}

// JourneyMessageStats is MessageStats for a single journey node.
type JourneyMessageStats struct {
	JourneyID string       `json:"journey_id"`
	NodeID    string       `json:"node_id"`
	Stats     MessageStats `json:"stats"`
}

// NodeStatsType discriminates NodeStats.
type NodeStatsType string

const (
	MessageNodeStats      NodeStatsType = "MessageNodeStats"
	SegmentSplitNodeStats NodeStatsType = "SegmentSplitNodeStats"
	DelayNodeStats        NodeStatsType = "DelayNodeStats"
	WaitForNodeStats      NodeStatsType = "WaitForNodeStats"
)

// Edge keys used in NodeStats.Proportions. Values are percentages in
// [0, 100].
const (
	EdgeChild        = "child_edge"
	EdgeTrueChild    = "true_child_edge"
	EdgeFalseChild   = "false_child_edge"
	EdgeSegmentChild = "segment_child_edge"
	EdgeTimeoutChild = "timeout_child_edge"
)

// NodeStats is the per-node entry of JourneyStats.
type NodeStats struct {
	Type         NodeStatsType      `json:"type"`
	Proportions  map[string]float64 `json:"proportions"`
	SendRate     *float64           `json:"send_rate,omitempty"`
	ChannelStats *ChannelStats      `json:"channel_stats,omitempty"`
}

// JourneyStats maps node ids to their stats for one journey.
type JourneyStats struct {
	WorkspaceID string                `json:"workspace_id"`
	JourneyID   string                `json:"journey_id"`
	NodeStats   map[string]*NodeStats `json:"node_stats"`
}
