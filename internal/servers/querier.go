package servers

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"q3scout/internal/metrics"
	"q3scout/internal/protocol"
)

// Querier discovers game servers through a master and aggregates their
// status. All methods are safe for concurrent use; each one holds the
// querier's lock for its whole duration, network waits included.
type Querier struct {
	mu sync.Mutex

	useColor  bool
	uriScheme string
	timeout   time.Duration
	now       func() time.Time
	metrics   metrics.Metrics

	master     *net.UDPAddr
	masterConn *net.UDPConn
	serverConn *net.UDPConn
	getServers []byte

	list   refreshState
	status refreshState

	known      []protocol.ServerAddress
	responsive []StatusSnapshot
	peek       [protocol.MaxPlayers + 1]peekSample
}

type Option func(*Querier)

// WithClock replaces time.Now for the scheduling and peek bookkeeping.
// Socket deadlines always use the wall clock.
func WithClock(now func() time.Time) Option {
	return func(q *Querier) {
		q.now = now
	}
}

func WithMetrics(m metrics.Metrics) Option {
	return func(q *Querier) {
		q.metrics = m
	}
}

// New resolves the master and opens both query channels. Any failure here
// is fatal for the caller.
func New(cfg Config, opts ...Option) (*Querier, error) {
	q := &Querier{
		useColor:   cfg.UseColor,
		uriScheme:  cfg.URIScheme,
		timeout:    cfg.Timeout,
		now:        time.Now,
		metrics:    metrics.Noop{},
		getServers: protocol.GetServersQuery(cfg.Protocol),
	}
	if q.timeout <= 0 {
		q.timeout = DefaultTimeout
	}
	if q.uriScheme == "" {
		q.uriScheme = "unv"
	}
	for _, opt := range opts {
		opt(q)
	}

	master, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.MasterHost, strconv.Itoa(int(cfg.MasterPort))))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve master %s: %w", cfg.MasterHost, err)
	}
	q.master = master

	if q.masterConn, err = openChannel(); err != nil {
		return nil, fmt.Errorf("master channel: %w", err)
	}
	if q.serverConn, err = openChannel(); err != nil {
		_ = q.masterConn.Close()
		return nil, fmt.Errorf("server channel: %w", err)
	}
	return q, nil
}

func (q *Querier) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return errors.Join(q.masterConn.Close(), q.serverConn.Close())
}

func (q *Querier) SetUseColor(useColor bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.useColor = useColor
}

func (q *Querier) UsesColor() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.useColor
}

// Refresh updates the server list and then the status of every known
// server, each no more often than its minimum period allows. It reports
// whether both steps succeeded.
func (q *Querier) Refresh(listMinPeriod, statusMinPeriod time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.refresh(listMinPeriod, statusMinPeriod)
}

// RefreshNow is Refresh without any caching.
func (q *Querier) RefreshNow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queryServerList() && q.queryServerStatus()
}

func (q *Querier) RefreshServerList(minPeriod time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.refreshServerList(minPeriod)
}

func (q *Querier) RefreshServerListNow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queryServerList()
}

func (q *Querier) RefreshServerStatus(minPeriod time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.refreshServerStatus(minPeriod)
}

func (q *Querier) RefreshServerStatusNow() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queryServerStatus()
}

// NumberResponsiveServers is the number of servers that answered the last
// status refresh.
func (q *Querier) NumberResponsiveServers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.responsive)
}

// ServerLine renders the i-th responsive server, or "" if there is none.
func (q *Querier) ServerLine(i int) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.serverLine(i)
}

// ActiveServers lists every responsive server with at least one active
// player, one line each.
func (q *Querier) ActiveServers() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.activeServers()
}

// CheckPeekActivity returns the line of the busiest server if its player
// count is a new peak worth announcing, and "" otherwise. A zero period
// always reports refresh failures.
func (q *Querier) CheckPeekActivity(period time.Duration, minPlayers int) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.checkPeekActivity(period, minPlayers)
}

// Snapshots returns copies of the current status snapshots.
func (q *Querier) Snapshots() []StatusSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := make([]StatusSnapshot, 0, len(q.responsive))
	for _, s := range q.responsive {
		list = append(list, s.clone())
	}
	return list
}

// KnownServers returns the addresses of the last successful list refresh.
func (q *Querier) KnownServers() []protocol.ServerAddress {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]protocol.ServerAddress(nil), q.known...)
}
