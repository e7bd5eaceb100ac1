package servers

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"q3scout/internal/protocol"
)

const testTimeout = 150 * time.Millisecond

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakePeer answers every datagram it receives with a fixed set of packets.
// With no replies configured it only counts requests.
type fakePeer struct {
	conn     *net.UDPConn
	requests atomic.Int32

	mu      sync.Mutex
	replies [][]byte
}

func newFakePeer(t *testing.T, replies ...[]byte) *fakePeer {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	p := &fakePeer{conn: conn, replies: replies}
	t.Cleanup(func() { _ = conn.Close() })
	go p.serve()
	return p
}

func (p *fakePeer) serve() {
	buf := make([]byte, maxPacketLen)
	for {
		_, from, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		p.requests.Add(1)

		p.mu.Lock()
		replies := p.replies
		p.mu.Unlock()
		for _, r := range replies {
			_, _ = p.conn.WriteToUDP(r, from)
		}
	}
}

func (p *fakePeer) setReplies(replies ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = replies
}

func (p *fakePeer) count() int {
	return int(p.requests.Load())
}

func (p *fakePeer) address() protocol.ServerAddress {
	a, _ := protocol.AddressFromUDP(p.conn.LocalAddr().(*net.UDPAddr))
	return a
}

func masterReply(peers ...*fakePeer) []byte {
	addrs := make([]protocol.ServerAddress, 0, len(peers))
	for _, p := range peers {
		addrs = append(addrs, p.address())
	}
	return protocol.AppendServersResponse(nil, addrs)
}

// statusReply builds a status packet for the given P and B strings.
func statusReply(name, mapName, teams, bots string) []byte {
	return protocol.StatusResponse([]protocol.KeyValue{
		{Key: "sv_hostname", Value: name},
		{Key: "mapname", Value: mapName},
		{Key: "P", Value: teams},
		{Key: "B", Value: bots},
	}, nil)
}

// activeReply builds a status packet with n humans on team A.
func activeReply(name string, n int) []byte {
	return statusReply(name, "atcs", strings.Repeat("1", n)+"--", strings.Repeat("-", n+2))
}

func newTestQuerier(t *testing.T, master *fakePeer, clock *fakeClock) *Querier {
	t.Helper()
	addr := master.address()
	q, err := New(Config{
		MasterHost: "127.0.0.1",
		MasterPort: addr.Port,
		Protocol:   86,
		Timeout:    testTimeout,
	}, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func findSnapshot(t *testing.T, list []StatusSnapshot, addr string) StatusSnapshot {
	t.Helper()
	for _, s := range list {
		if s.Address == addr {
			return s
		}
	}
	t.Fatalf("no snapshot for %s", addr)
	return StatusSnapshot{}
}
