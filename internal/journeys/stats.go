package journeys

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// MessageStatsNode selects one message node and the channel its stats are
// reported for.
type MessageStatsNode struct {
	ID      string            `json:"id"`
	Channel model.ChannelType `json:"channel"`
}

// MessageStatsJourney selects message nodes of one journey.
type MessageStatsJourney struct {
	ID    string             `json:"id"`
	Nodes []MessageStatsNode `json:"nodes"`
}

// messageFlags records which lifecycle events a single message has seen.
type messageFlags uint16

const (
	flagSent messageFlags = 1 << iota
	flagFailed
	flagEmailDelivered
	flagEmailOpened
	flagEmailClicked
	flagEmailSpam
	flagSmsDelivered
	flagSmsFailed
)

var eventFlags = map[string]messageFlags{
	model.EventMessageSent:     flagSent,
	model.EventMessageFailure:  flagFailed,
	model.EventEmailDelivered:  flagEmailDelivered,
	model.EventEmailOpened:     flagEmailOpened,
	model.EventEmailClicked:    flagEmailClicked,
	model.EventEmailMarkedSpam: flagEmailSpam,
	model.EventSmsDelivered:    flagSmsDelivered,
	model.EventSmsFailed:       flagSmsFailed,
}

type nodeKey struct {
	journeyID, nodeID string
}

// nodeMessages maps a node to the flags of every message it sent.
type nodeMessages map[nodeKey]map[string]messageFlags

// tallyMessages groups events by node. An event without a node_id is
// attributed to the node of the message it references.
func tallyMessages(rows []*model.MessageEvent) nodeMessages {
	type messageKey struct{ journeyID, messageID string }
	nodeOf := make(map[messageKey]string)
	for _, r := range rows {
		if r.NodeID == "" {
			continue
		}
		mk := messageKey{r.JourneyID, r.MessageID}
		if _, ok := nodeOf[mk]; !ok || eventFlags[r.Event]&(flagSent|flagFailed) != 0 {
			nodeOf[mk] = r.NodeID
		}
	}

	out := make(nodeMessages)
	for _, r := range rows {
		nodeID := r.NodeID
		if nodeID == "" {
			if nodeID = nodeOf[messageKey{r.JourneyID, r.MessageID}]; nodeID == "" {
				continue
			}
		}
		k := nodeKey{r.JourneyID, nodeID}
		msgs := out[k]
		if msgs == nil {
			msgs = make(map[string]messageFlags)
			out[k] = msgs
		}
		msgs[r.MessageID] |= eventFlags[r.Event]
	}
	return out
}

// messageStats computes rates over the messages that were attempted, that
// is, sent or failed. Bounces and drops count towards the total through
// their send event but never as delivered.
func messageStats(msgs map[string]messageFlags, channel model.ChannelType) model.MessageStats {
	var total, sent, delivered, opened, clicked, spam, smsDelivered, smsFailed int
	for _, f := range msgs {
		if f&(flagSent|flagFailed) == 0 {
			continue
		}
		total++
		if f&flagSent != 0 {
			sent++
		}
		if f&(flagEmailDelivered|flagEmailOpened|flagEmailClicked|flagEmailSpam) != 0 {
			delivered++
		}
		if f&(flagEmailOpened|flagEmailClicked|flagEmailSpam) != 0 {
			opened++
		}
		if f&flagEmailClicked != 0 {
			clicked++
		}
		if f&flagEmailSpam != 0 {
			spam++
		}
		if f&flagSmsDelivered != 0 {
			smsDelivered++
		}
		if f&flagSmsFailed != 0 {
			smsFailed++
		}
	}
	rate := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total)
	}

	stats := model.MessageStats{SendRate: rate(sent), ChannelStats: model.ChannelStats{Type: channel}}
	switch channel {
	case model.ChannelEmail:
		stats.ChannelStats.DeliveryRate = rate(delivered)
		stats.ChannelStats.OpenRate = rate(opened)
		stats.ChannelStats.ClickRate = rate(clicked)
		stats.ChannelStats.SpamRate = rate(spam)
	case model.ChannelSms:
		stats.ChannelStats.DeliveryRate = rate(smsDelivered)
		stats.ChannelStats.FailRate = rate(smsFailed)
	}
	return stats
}

// GetJourneyMessageStats returns one entry per requested node, in request
// order. Nodes without any messages get zero rates.
func GetJourneyMessageStats(ctx context.Context, s store.Store, workspaceID string, journeys []MessageStatsJourney) ([]*model.JourneyMessageStats, error) {
	ids := make([]string, 0, len(journeys))
	for _, j := range journeys {
		ids = append(ids, j.ID)
	}
	if len(ids) == 0 {
		return []*model.JourneyMessageStats{}, nil
	}
	rows, err := s.ListMessageEvents(ctx, workspaceID, ids)
	if err != nil {
		return nil, fmt.Errorf("listing message events: %w", err)
	}
	tally := tallyMessages(rows)

	out := make([]*model.JourneyMessageStats, 0)
	for _, j := range journeys {
		for _, n := range j.Nodes {
			out = append(out, &model.JourneyMessageStats{
				JourneyID: j.ID,
				NodeID:    n.ID,
				Stats:     messageStats(tally[nodeKey{j.ID, n.ID}], n.Channel),
			})
		}
	}
	return out, nil
}

// GetJourneysStats returns per-node stats for each found journey, in request
// order. Unknown ids are skipped.
func GetJourneysStats(ctx context.Context, s store.Store, workspaceID string, journeyIDs []string) ([]*model.JourneyStats, error) {
	if len(journeyIDs) == 0 {
		return []*model.JourneyStats{}, nil
	}
	journeys, err := s.ListJourneys(ctx, workspaceID, journeyIDs)
	if err != nil {
		return nil, fmt.Errorf("listing journeys: %w", err)
	}
	byID := make(map[string]*model.Journey, len(journeys))
	for _, j := range journeys {
		byID[j.ID] = j
	}

	counts, err := s.CountNodeProcessed(ctx, workspaceID, journeyIDs)
	if err != nil {
		return nil, fmt.Errorf("counting processed nodes: %w", err)
	}
	users := make(map[nodeKey]int, len(counts))
	for _, c := range counts {
		users[nodeKey{c.JourneyID, c.NodeID}] = c.Users
	}

	rows, err := s.ListMessageEvents(ctx, workspaceID, journeyIDs)
	if err != nil {
		return nil, fmt.Errorf("listing message events: %w", err)
	}
	tally := tallyMessages(rows)

	out := make([]*model.JourneyStats, 0, len(journeyIDs))
	seen := make(map[string]bool, len(journeyIDs))
	for _, id := range journeyIDs {
		j, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		js := &model.JourneyStats{WorkspaceID: workspaceID, JourneyID: id, NodeStats: map[string]*model.NodeStats{}}
		if j.Definition != nil {
			c := edgeCounter{def: j.Definition, journeyID: id, users: users}
			for i := range j.Definition.Nodes {
				n := &j.Definition.Nodes[i]
				if ns := nodeStats(n, c, tally); ns != nil {
					js.NodeStats[n.ID] = ns
				}
			}
		}
		out = append(out, js)
	}
	return out, nil
}

func nodeStats(n *model.JourneyNode, c edgeCounter, tally nodeMessages) *model.NodeStats {
	switch n.Type {
	case model.NodeMessage:
		ms := messageStats(tally[nodeKey{c.journeyID, n.ID}], n.Channel())
		return &model.NodeStats{
			Type:         model.MessageNodeStats,
			Proportions:  map[string]float64{model.EdgeChild: 100},
			SendRate:     &ms.SendRate,
			ChannelStats: &ms.ChannelStats,
		}
	case model.NodeDelay:
		return &model.NodeStats{
			Type:        model.DelayNodeStats,
			Proportions: map[string]float64{model.EdgeChild: 100},
		}
	case model.NodeSegmentSplit:
		var trueChild, falseChild string
		if n.Variant != nil {
			trueChild, falseChild = n.Variant.TrueChild, n.Variant.FalseChild
		}
		t, f := c.split(n.ID, trueChild, falseChild)
		return &model.NodeStats{
			Type:        model.SegmentSplitNodeStats,
			Proportions: map[string]float64{model.EdgeTrueChild: t, model.EdgeFalseChild: f},
		}
	case model.NodeWaitFor:
		var segmentChild string
		if len(n.SegmentChildren) > 0 {
			segmentChild = n.SegmentChildren[0].ID
		}
		seg, timeout := c.split(n.ID, segmentChild, n.TimeoutChild)
		return &model.NodeStats{
			Type:        model.WaitForNodeStats,
			Proportions: map[string]float64{model.EdgeSegmentChild: seg, model.EdgeTimeoutChild: timeout},
		}
	}
	return nil
}

// edgeCounter derives edge percentages from distinct-user counts.
type edgeCounter struct {
	def       *model.JourneyDefinition
	journeyID string
	users     map[nodeKey]int
}

// edge returns the share of the parent's users seen at child. It reports
// false when child is not a body node, since the exit node is not counted
// per parent.
func (c edgeCounter) edge(parentUsers int, child string) (float64, bool) {
	if child == "" || c.def.NodeByID(child) == nil {
		return 0, false
	}
	n := min(c.users[nodeKey{c.journeyID, child}], parentUsers)
	return float64(n) / float64(parentUsers) * 100, true
}

// split returns the percentages of a two-way node. One side is measured and
// the other is its complement.
func (c edgeCounter) split(parentID, first, second string) (float64, float64) {
	n := c.users[nodeKey{c.journeyID, parentID}]
	if n == 0 {
		return 0, 0
	}
	if p, ok := c.edge(n, first); ok {
		return p, 100 - p
	}
	if p, ok := c.edge(n, second); ok {
		return 100 - p, p
	}
	return 0, 0
}
