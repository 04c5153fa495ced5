package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// statusText colors a status when stdout is a color terminal.
func statusText(s string) string {
	if !ui.ShouldUseColor() {
		return s
	}
	return ui.RenderStatus(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func printWorkspaces(w io.Writer, ws []*model.Workspace) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, x := range ws {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", x.ID, x.Name, formatTime(x.CreatedAt))
	}
	tw.Flush()
}

func printJourneys(w io.Writer, js []*model.Journey) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tNODES\tMULTI\tNAME\tUPDATED")
	for _, j := range js {
		nodes := 0
		if j.Definition != nil {
			nodes = len(j.Definition.Nodes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\t%s\n",
			j.ID,
			statusText(j.Status.String()),
			nodes,
			j.CanRunMultiple,
			truncate(j.Name, 40),
			formatTime(j.UpdatedAt),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d journeys\n", len(js))
}

func printJourney(w io.Writer, j *model.Journey) {
	fmt.Fprintf(w, "ID:           %s\n", j.ID)
	fmt.Fprintf(w, "Workspace:    %s\n", j.WorkspaceID)
	fmt.Fprintf(w, "Name:         %s\n", j.Name)
	fmt.Fprintf(w, "Status:       %s\n", statusText(j.Status.String()))
	fmt.Fprintf(w, "Multiple:     %t\n", j.CanRunMultiple)
	if j.StatusUpdatedAt != nil {
		fmt.Fprintf(w, "Status At:    %s\n", formatTime(*j.StatusUpdatedAt))
	}
	fmt.Fprintf(w, "Created At:   %s\n", formatTime(j.CreatedAt))
	fmt.Fprintf(w, "Updated At:   %s\n", formatTime(j.UpdatedAt))
	if j.Definition == nil {
		return
	}

	d := j.Definition
	fmt.Fprintln(w, "Definition:")
	fmt.Fprintf(w, "  %s -> %s\n", d.EntryNode.Type, d.EntryNode.Child)
	for i := range d.Nodes {
		n := &d.Nodes[i]
		label := string(n.Type)
		if ch := n.Channel(); ch != "" {
			label += " (" + string(ch) + ")"
		}
		if n.Name != "" {
			label += " " + n.Name
		}
		fmt.Fprintf(w, "  %s: %s -> %s\n", n.ID, label, strings.Join(n.Children(), ", "))
	}
}

func printBroadcasts(w io.Writer, bs []*model.Broadcast) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tVERSION\tCHANNEL\tNAME\tUPDATED")
	for _, b := range bs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID,
			statusText(b.Status.String()),
			b.Version,
			b.Channel,
			truncate(b.Name, 40),
			formatTime(b.UpdatedAt),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d broadcasts\n", len(bs))
}

func channelSummary(c *model.ChannelStats) string {
	switch c.Type {
	case model.ChannelEmail:
		return fmt.Sprintf("delivered %s, opened %s, clicked %s, spam %s",
			percent(c.DeliveryRate), percent(c.OpenRate), percent(c.ClickRate), percent(c.SpamRate))
	case model.ChannelSms:
		return fmt.Sprintf("delivered %s, failed %s", percent(c.DeliveryRate), percent(c.FailRate))
	default:
		return string(c.Type)
	}
}

func printJourneyStats(w io.Writer, stats []*model.JourneyStats) {
	for i, js := range stats {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Journey %s\n", js.JourneyID)
		ids := make([]string, 0, len(js.NodeStats))
		for id := range js.NodeStats {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  NODE\tTYPE\tEDGES\tSEND RATE\tCHANNEL")
		for _, id := range ids {
			ns := js.NodeStats[id]
			edges := make([]string, 0, len(ns.Proportions))
			for k, v := range ns.Proportions {
				edges = append(edges, fmt.Sprintf("%s=%.1f", strings.TrimSuffix(k, "_edge"), v))
			}
			sort.Strings(edges)
			sendRate, channel := "-", "-"
			if ns.SendRate != nil {
				sendRate = percent(*ns.SendRate)
			}
			if ns.ChannelStats != nil {
				channel = channelSummary(ns.ChannelStats)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", id, ns.Type, strings.Join(edges, " "), sendRate, channel)
		}
		tw.Flush()
	}
}

func printMessageStats(w io.Writer, stats []*model.JourneyMessageStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOURNEY\tNODE\tSEND RATE\tCHANNEL")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.JourneyID, s.NodeID, percent(s.Stats.SendRate), channelSummary(&s.Stats.ChannelStats))
	}
	tw.Flush()
}

func eventUser(e *model.Event) string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.AnonymousID
}

func printEvents(w io.Writer, evs []*model.Event) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tTYPE\tEVENT\tUSER\tMESSAGE ID")
	for _, e := range evs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.Timestamp),
			e.EventType,
			truncate(e.Event, 40),
			eventUser(e),
			e.MessageID,
		)
	}
	tw.Flush()
}
