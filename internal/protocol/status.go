package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxFieldLen bounds a single key or value of a status reply.
	MaxFieldLen = 1024
	// MaxDisplayLen bounds the host and map names kept from a status reply.
	MaxDisplayLen = 127
)

// Team is the slot assignment carried by the "P" status key.
type Team int

const (
	TeamFree Team = iota
	TeamSpectator
	TeamA
	TeamB

	NumTeams
)

func (t Team) String() string {
	switch t {
	case TeamFree:
		return "free"
	case TeamSpectator:
		return "spectator"
	case TeamA:
		return "a"
	case TeamB:
		return "b"
	}
	return "unknown"
}

func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(text []byte) error {
	for team := TeamFree; team < NumTeams; team++ {
		if team.String() == string(text) {
			*t = team
			return nil
		}
	}
	return fmt.Errorf("unknown team %q", text)
}

func teamFromByte(c byte) Team {
	switch c {
	case '0':
		return TeamSpectator
	case '1':
		return TeamA
	case '2':
		return TeamB
	}
	return TeamFree
}

// PlayerInfo is one player line following the info string.
type PlayerInfo struct {
	Score int    `json:"score"`
	Ping  int    `json:"ping"`
	Name  string `json:"name"`
}

// StatusInfo holds the fields of a status reply the engine cares about.
type StatusInfo struct {
	Hostname string
	MapName  string

	// Teams and Bots are positional per slot, from "P" and "B".
	Teams []Team
	Bots  []bool

	HasTeams bool
	HasBots  bool

	Rules   map[string]string
	Players []PlayerInfo
}

// FieldError reports a key/value pair that could not be read. Fields
// preceding it in the same packet remain valid.
type FieldError struct {
	Offset int
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("status field %q at offset %d: %s", e.Key, e.Offset, e.Reason)
	}
	return fmt.Sprintf("status field at offset %d: %s", e.Offset, e.Reason)
}

// cursor walks a read-only packet buffer.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) done() bool { return c.pos >= len(c.buf) }

func (c *cursor) peek() byte { return c.buf[c.pos] }

func (c *cursor) rest() []byte { return c.buf[c.pos:] }

// pair reads one "\key\value" item. The value ends before the next
// backslash, a newline or the end of the buffer.
func (c *cursor) pair() (string, string, error) {
	start := c.pos
	if c.done() || c.peek() != '\\' {
		return "", "", &FieldError{Offset: start, Reason: "field does not start with a backslash"}
	}
	c.pos++

	keyStart := c.pos
	for {
		if c.pos-keyStart > MaxFieldLen {
			return "", "", &FieldError{Offset: start, Reason: "key too long"}
		}
		if c.done() {
			return "", "", &FieldError{Offset: start, Reason: "end of packet while reading key"}
		}
		if c.peek() == '\\' {
			break
		}
		c.pos++
	}
	key := string(c.buf[keyStart:c.pos])
	c.pos++
	if key == "" {
		return "", "", &FieldError{Offset: start, Reason: "empty key"}
	}

	valueStart := c.pos
	for !c.done() && c.peek() != '\\' && c.peek() != '\n' {
		if c.pos-valueStart >= MaxFieldLen {
			return "", "", &FieldError{Offset: start, Key: key, Reason: "value too long"}
		}
		c.pos++
	}
	value := string(c.buf[valueStart:c.pos])
	if value == "" {
		return "", "", &FieldError{Offset: start, Key: key, Reason: "empty value"}
	}
	return key, value, nil
}

// ParseStatusResponse reads a getstatus reply.
//
// A packet without the statusResponse header yields ErrBadPrefix and no
// result. A broken key/value pair stops the scan: the result then carries
// every field read so far and the error is a *FieldError.
func ParseStatusResponse(pkt []byte) (*StatusInfo, error) {
	if !IsStatusResponse(pkt) {
		return nil, ErrBadPrefix
	}

	info := &StatusInfo{Rules: make(map[string]string)}
	c := &cursor{buf: pkt, pos: len(statusResponseHeader)}

	for !c.done() && c.peek() == '\\' {
		key, value, err := c.pair()
		if err != nil {
			return info, err
		}
		info.set(key, value)
	}

	if !c.done() && c.peek() == '\n' {
		c.pos++
		info.Players = parsePlayers(c.rest())
	}
	return info, nil
}

func (s *StatusInfo) set(key, value string) {
	switch key {
	case "P":
		n := min(len(value), MaxPlayers)
		s.Teams = make([]Team, n)
		for i := 0; i < n; i++ {
			s.Teams[i] = teamFromByte(value[i])
		}
		s.HasTeams = true
	case "B":
		n := min(len(value), MaxPlayers)
		s.Bots = make([]bool, n)
		for i := 0; i < n; i++ {
			s.Bots[i] = value[i] == 'b'
		}
		s.HasBots = true
	case "sv_hostname":
		s.Hostname = truncate(value, MaxDisplayLen)
	case "mapname":
		s.MapName = truncate(value, MaxDisplayLen)
	default:
		s.Rules[key] = value
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// parsePlayers reads `score ping "name"` lines, skipping anything else.
func parsePlayers(data []byte) []PlayerInfo {
	players := []PlayerInfo{}
	for _, line := range strings.Split(string(bytes.TrimRight(data, "\x00")), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\"", 3)
		fields := strings.Fields(parts[0])
		if len(fields) < 2 {
			continue
		}
		score, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		ping, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		p := PlayerInfo{Score: score, Ping: ping}
		if len(parts) >= 2 {
			p.Name = parts[1]
		}
		players = append(players, p)
	}
	return players
}

// KeyValue is one ordered info-string entry for StatusResponse.
type KeyValue struct {
	Key   string
	Value string
}

// StatusResponse builds a getstatus reply, as a game server would send it.
func StatusResponse(fields []KeyValue, players []PlayerInfo) []byte {
	var b bytes.Buffer
	b.WriteString(statusResponseHeader)
	for _, f := range fields {
		b.WriteByte('\\')
		b.WriteString(f.Key)
		b.WriteByte('\\')
		b.WriteString(f.Value)
	}
	b.WriteByte('\n')
	for _, p := range players {
		fmt.Fprintf(&b, "%d %d \"%s\"\n", p.Score, p.Ping, p.Name)
	}
	return b.Bytes()
}
