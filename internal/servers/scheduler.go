package servers

import "time"

// refreshState is the rate limiting record of one query kind.
type refreshState struct {
	lastAttempt time.Time
	ok          bool
}

// due reports whether a fresh query is needed. A query is never repeated
// faster than one timeout plus a second, except that a failed one may be
// retried as soon as its timeout window has passed.
func (s *refreshState) due(now time.Time, minPeriod, timeout time.Duration) bool {
	effective := max(minPeriod, timeout+time.Second)
	if !now.Before(s.lastAttempt.Add(effective)) {
		return true
	}
	return !s.ok && s.lastAttempt.Add(timeout).Before(now)
}

func (q *Querier) refresh(listMinPeriod, statusMinPeriod time.Duration) bool {
	return q.refreshServerList(listMinPeriod) && q.refreshServerStatus(statusMinPeriod)
}

func (q *Querier) refreshServerList(minPeriod time.Duration) bool {
	if q.list.due(q.now(), minPeriod, q.timeout) {
		return q.queryServerList()
	}
	return q.list.ok
}

func (q *Querier) refreshServerStatus(minPeriod time.Duration) bool {
	if q.status.due(q.now(), minPeriod, q.timeout) {
		return q.queryServerStatus()
	}
	return q.status.ok
}
