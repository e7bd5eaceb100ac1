package servers

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"q3scout/internal/protocol"
)

const maxPacketLen = 4096

// openChannel binds a UDP socket to an ephemeral local port.
func openChannel() (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp socket: %w", err)
	}
	return conn, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// fetchServerList sends one getservers request and waits for the first
// datagram carrying a list response. Other datagrams are dropped.
func (q *Querier) fetchServerList() ([]protocol.ServerAddress, error) {
	if _, err := q.masterConn.WriteToUDP(q.getServers, q.master); err != nil {
		return nil, fmt.Errorf("failed to send getservers to %s: %w", q.master, err)
	}

	if err := q.masterConn.SetReadDeadline(time.Now().Add(q.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set master read deadline: %w", err)
	}

	buf := make([]byte, maxPacketLen)
	for {
		n, from, err := q.masterConn.ReadFromUDP(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to query master %s for servers: %w", q.master, err)
		}

		pkt := buf[:n]
		if !protocol.IsServersResponse(pkt) {
			log.Debug().Msgf("dropping unexpected %d byte packet from %s on master channel", n, from)
			continue
		}

		addrs, err := protocol.ParseServersResponse(pkt)
		if err != nil {
			log.Debug().Err(err).Msgf("server list from %s cut short after %d entries", from, len(addrs))
		}
		return addrs, nil
	}
}

// collectStatus sends getstatus to every known server, then reads replies
// until MaxServers datagrams were seen or a receive times out. Replies are
// kept in arrival order.
func (q *Querier) collectStatus() []StatusSnapshot {
	query := protocol.GetStatusQuery()
	for _, addr := range q.known {
		if _, err := q.serverConn.WriteToUDP(query, addr.UDPAddr()); err != nil {
			log.Debug().Err(err).Msgf("failed to send getstatus to %s", addr)
		}
	}

	buf := make([]byte, maxPacketLen)
	snapshots := make([]StatusSnapshot, 0, len(q.known))
	for i := 0; i < protocol.MaxServers; i++ {
		if err := q.serverConn.SetReadDeadline(time.Now().Add(q.timeout)); err != nil {
			log.Error().Err(err).Msg("failed to set status read deadline")
			break
		}

		n, from, err := q.serverConn.ReadFromUDP(buf)
		if err != nil {
			if !isTimeout(err) {
				log.Warn().Err(err).Msg("status receive failed")
			}
			break
		}

		snap, ok := parseSnapshot(from.String(), buf[:n])
		if ok {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}
