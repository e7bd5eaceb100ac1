package servers

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"q3scout/internal/protocol"
)

// queryServerList asks the master for servers and, on success, replaces
// the known set wholesale.
func (q *Querier) queryServerList() bool {
	q.list.lastAttempt = q.now()
	start := time.Now()

	addrs, err := q.fetchServerList()
	q.metrics.Duration("query.list.duration", time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("failed to refresh server list")
		q.metrics.Increment("query.list.failed")
		q.list.ok = false
		return false
	}

	q.known = addrs
	q.list.ok = true
	q.metrics.Increment("query.list.ok")
	q.metrics.Gauge("servers.known", len(addrs))
	log.Debug().Msgf("master listed %d servers", len(addrs))
	return true
}

// queryServerStatus polls every known server. It succeeds if at least one
// answered, or trivially if no server is known.
func (q *Querier) queryServerStatus() bool {
	q.status.lastAttempt = q.now()
	q.responsive = q.responsive[:0]

	if len(q.known) == 0 {
		q.status.ok = true
		return true
	}

	start := time.Now()
	q.responsive = q.collectStatus()
	q.metrics.Duration("query.status.duration", time.Since(start))
	q.metrics.Gauge("servers.responsive", len(q.responsive))

	now := q.now()
	for _, s := range q.responsive {
		q.markSeen(s.ActivePlayers, now)
	}

	q.status.ok = len(q.responsive) > 0
	if q.status.ok {
		q.metrics.Increment("query.status.ok")
	} else {
		log.Warn().Msgf("none of %d known servers answered the status query", len(q.known))
		q.metrics.Increment("query.status.failed")
	}
	return q.status.ok
}

// parseSnapshot turns one status datagram into a snapshot. Packets with a
// foreign prefix are dropped; a broken field keeps what was parsed before it.
func parseSnapshot(addr string, pkt []byte) (StatusSnapshot, bool) {
	info, err := protocol.ParseStatusResponse(pkt)
	if errors.Is(err, protocol.ErrBadPrefix) {
		log.Debug().Msgf("bad getstatus response received from %s", addr)
		return StatusSnapshot{}, false
	}
	if err != nil {
		log.Debug().Err(err).Msgf("parsing status report from %s", addr)
	}
	if info.HasTeams && info.HasBots && len(info.Teams) != len(info.Bots) {
		log.Debug().Msgf("status report from %s has %d team slots but %d bot flags", addr, len(info.Teams), len(info.Bots))
	}

	return aggregate(addr, info), true
}

// aggregate derives per-team counts from the slot layout. The slot count
// follows "P"; "B" only sets the count when "P" is missing, and bot flags
// beyond its length default to human.
func aggregate(addr string, info *protocol.StatusInfo) StatusSnapshot {
	s := StatusSnapshot{
		Address:  addr,
		Hostname: info.Hostname,
		Map:      info.MapName,
		Players:  info.Players,
		Rules:    info.Rules,
	}

	slots := len(info.Teams)
	if !info.HasTeams {
		slots = len(info.Bots)
	}
	s.NumClientSlots = slots
	s.Teams = make([]protocol.Team, slots)
	s.Bots = make([]bool, slots)
	copy(s.Teams, info.Teams)
	copy(s.Bots, info.Bots)

	for slot := 0; slot < slots; slot++ {
		team := s.Teams[slot]
		s.NumClients[team]++

		if team == protocol.TeamFree {
			continue
		}

		if s.Bots[slot] {
			s.NumBots[team]++
			continue
		}
		s.NumPlayers[team]++
		if team != protocol.TeamSpectator {
			s.ActivePlayers++
		}
	}
	return s
}
