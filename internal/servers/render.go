package servers

import (
	"fmt"
	"strings"

	"q3scout/internal/protocol"
)

// style emits BB codes when enabled and nothing otherwise.
type style bool

func (st style) color(name string) string {
	if !st {
		return ""
	}
	return "[COLOR=" + name + "]"
}

func (st style) colorOff() string {
	if !st {
		return ""
	}
	return "[/COLOR]"
}

func (st style) bold(s string) string {
	if !st {
		return s
	}
	return "[B]" + s + "[/B]"
}

func (q *Querier) serverLine(i int) string {
	if i < 0 || i >= len(q.responsive) {
		return ""
	}
	s := &q.responsive[i]
	st := style(q.useColor)

	var b strings.Builder
	switch playing := s.ActivePlayers; {
	case playing == 1:
		b.WriteString(st.color("YELLOW") + "1 person")
	case playing > 1:
		fmt.Fprintf(&b, "%s%d people", st.color("GREEN"), playing)
	default:
		b.WriteString(st.color("RED") + "No one")
	}
	b.WriteString(st.colorOff() + " (")

	writeTeam(&b, s.NumPlayers[protocol.TeamA], s.NumBots[protocol.TeamA])
	b.WriteString(" " + st.color("RED") + "A" + st.colorOff() + ", ")
	writeTeam(&b, s.NumPlayers[protocol.TeamB], s.NumBots[protocol.TeamB])
	b.WriteString(" " + st.color("BLUE") + "H" + st.colorOff() + ", ")
	fmt.Fprintf(&b, "%d %sS%s", s.NumPlayers[protocol.TeamSpectator], st.color("YELLOW"), st.colorOff())

	fmt.Fprintf(&b, ") playing %s on %s - %s://%s",
		st.bold(s.Map), st.bold(protocol.StripColors(s.Hostname)), q.uriScheme, s.Address)
	return b.String()
}

func writeTeam(b *strings.Builder, players, bots int) {
	fmt.Fprintf(b, "%d", players)
	if bots > 0 {
		fmt.Fprintf(b, "+%d", bots)
	}
}

func (q *Querier) activeServers() string {
	if !q.refresh(ListPeriod, StatusPeriod) {
		return failedStatusMessage
	}

	var lines []string
	for i, s := range q.responsive {
		if s.ActivePlayers == 0 {
			continue
		}
		lines = append(lines, q.serverLine(i))
	}
	return strings.Join(lines, "\n")
}
