package servers

import (
	"time"

	"github.com/rs/zerolog/log"

	"q3scout/internal/protocol"
)

// peekSample is indexed by an active player count.
type peekSample struct {
	// Last status refresh in which some server had exactly this count.
	lastSeen time.Time
	// Last time this count was announced.
	lastInformed time.Time
}

func (q *Querier) markSeen(activePlayers int, now time.Time) {
	if activePlayers < 0 || activePlayers > protocol.MaxPlayers {
		return
	}
	q.peek[activePlayers].lastSeen = now
}

// periodMax is the highest count seen within period before now, 0 if none.
func (q *Querier) periodMax(period time.Duration, now time.Time) int {
	for n := protocol.MaxPlayers; n > 0; n-- {
		if q.peek[n].lastSeen.Add(period).After(now) {
			return n
		}
	}
	return 0
}

// currentMax finds the busiest responsive server; ties keep the first one.
func (q *Querier) currentMax() (players, server int) {
	for i, s := range q.responsive {
		if s.ActivePlayers > players {
			players, server = s.ActivePlayers, i
		}
	}
	return players, server
}

func (q *Querier) checkPeekActivity(period time.Duration, minPlayers int) string {
	if !q.refresh(ListPeriod, StatusPeriod) {
		if period == 0 {
			return failedStatusMessage
		}
		return ""
	}

	now := q.now()
	periodMax := q.periodMax(period, now)
	currentMax, server := q.currentMax()
	sample := &q.peek[currentMax]

	if currentMax < minPlayers || currentMax < periodMax || !sample.lastInformed.Add(period).Before(now) {
		return ""
	}
	sample.lastInformed = now

	if currentMax == 0 {
		return ""
	}

	log.Info().Msgf("announcing activity peak of %d players on %s", currentMax, q.responsive[server].Address)
	q.metrics.Increment("peek.announced")
	return q.serverLine(server)
}
