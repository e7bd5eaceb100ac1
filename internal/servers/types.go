package servers

import (
	"time"

	"q3scout/internal/protocol"
)

const (
	// DefaultTimeout bounds every receive on either channel.
	DefaultTimeout = 2 * time.Second

	// Minimum query periods used by ActiveServers and CheckPeekActivity.
	ListPeriod   = 120 * time.Second
	StatusPeriod = 10 * time.Second

	failedStatusMessage = "Failed to retrieve server status info."
)

// StatusSnapshot is the parsed and aggregated state of one responsive
// server for the current refresh cycle.
type StatusSnapshot struct {
	Address  string `json:"address"`
	Hostname string `json:"hostname"`
	Map      string `json:"map"`

	NumClientSlots int             `json:"num_client_slots"`
	Teams          []protocol.Team `json:"teams"`
	Bots           []bool          `json:"bots"`

	// Indexed by protocol.Team.
	NumClients [protocol.NumTeams]int `json:"num_clients"`
	NumPlayers [protocol.NumTeams]int `json:"num_players"`
	NumBots    [protocol.NumTeams]int `json:"num_bots"`

	// Humans on team A or B.
	ActivePlayers int `json:"active_players"`

	Players []protocol.PlayerInfo `json:"players"`
	Rules   map[string]string     `json:"rules,omitempty"`
}

func (s StatusSnapshot) clone() StatusSnapshot {
	c := s
	c.Teams = append([]protocol.Team(nil), s.Teams...)
	c.Bots = append([]bool(nil), s.Bots...)
	c.Players = append([]protocol.PlayerInfo(nil), s.Players...)
	if s.Rules != nil {
		c.Rules = make(map[string]string, len(s.Rules))
		for k, v := range s.Rules {
			c.Rules[k] = v
		}
	}
	return c
}

// Config describes the master to query and how results are rendered.
type Config struct {
	MasterHost string
	MasterPort uint16
	Protocol   int

	// UseColor enables BB style codes in rendered lines.
	UseColor bool

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// URIScheme prefixes server addresses in rendered lines, "unv" by default.
	URIScheme string
}
