package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// OOBPrefix marks every connectionless packet of the protocol.
const OOBPrefix = "\xff\xff\xff\xff"

const (
	// MaxServers caps the number of addresses taken from one master reply.
	MaxServers = 128
	// MaxPlayers caps the number of client slots taken from one status reply.
	MaxPlayers = 64

	serversResponseHeader = OOBPrefix + "getserversResponse"
	statusResponseHeader  = OOBPrefix + "statusResponse\n"

	// '\' + 4 address bytes + 2 port bytes
	recordLen = 7
)

var (
	ErrBadPrefix       = errors.New("unexpected packet prefix")
	ErrTruncatedRecord = errors.New("malformed server record")
)

// ServerAddress is an IPv4 game server endpoint as carried in master replies.
type ServerAddress struct {
	IP   [4]byte
	Port uint16
}

func (a ServerAddress) String() string {
	return net.JoinHostPort(net.IP(a.IP[:]).String(), strconv.Itoa(int(a.Port)))
}

func (a ServerAddress) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(a.IP[0], a.IP[1], a.IP[2], a.IP[3]), Port: int(a.Port)}
}

// AddressFromUDP converts a UDP endpoint, reporting false for non-IPv4 ones.
func AddressFromUDP(addr *net.UDPAddr) (ServerAddress, bool) {
	if addr == nil {
		return ServerAddress{}, false
	}
	v4 := addr.IP.To4()
	if v4 == nil || addr.Port <= 0 || addr.Port > 0xffff {
		return ServerAddress{}, false
	}
	var a ServerAddress
	copy(a.IP[:], v4)
	a.Port = uint16(addr.Port)
	return a, true
}

// GetServersQuery builds the master request for servers of the given protocol.
func GetServersQuery(protocol int) []byte {
	return []byte(fmt.Sprintf(OOBPrefix+"getservers %d full empty", protocol))
}

// GetStatusQuery builds the per-server status request.
func GetStatusQuery() []byte {
	return []byte(OOBPrefix + "getstatus")
}

func IsServersResponse(pkt []byte) bool {
	return bytes.HasPrefix(pkt, []byte(serversResponseHeader))
}

func IsStatusResponse(pkt []byte) bool {
	return bytes.HasPrefix(pkt, []byte(statusResponseHeader))
}

// ParseServersResponse extracts the address records of a master reply.
//
// Records are read in order until the buffer ends, MaxServers records have
// been taken or the \EOT terminator shows up. A malformed record stops the
// scan too; the addresses read before it are returned together with
// ErrTruncatedRecord.
func ParseServersResponse(pkt []byte) ([]ServerAddress, error) {
	if !IsServersResponse(pkt) {
		return nil, ErrBadPrefix
	}
	data := pkt[len(serversResponseHeader):]

	addrs := make([]ServerAddress, 0, 32)
	for len(addrs) < MaxServers && len(data) > 0 {
		if isEOT(data) {
			break
		}
		if len(data) < recordLen || data[0] != '\\' {
			return addrs, fmt.Errorf("%w at record %d", ErrTruncatedRecord, len(addrs))
		}

		var a ServerAddress
		copy(a.IP[:], data[1:5])
		a.Port = uint16(data[5])<<8 | uint16(data[6])
		addrs = append(addrs, a)

		data = data[recordLen:]
	}
	return addrs, nil
}

// Real masters end the list with "\EOT" followed by NUL padding.
func isEOT(data []byte) bool {
	if !bytes.HasPrefix(data, []byte("\\EOT")) {
		return false
	}
	if len(data) < recordLen {
		return true
	}
	return data[4] == 0 && data[5] == 0 && data[6] == 0
}

// AppendServersResponse appends a complete master reply listing addrs.
func AppendServersResponse(dst []byte, addrs []ServerAddress) []byte {
	dst = append(dst, serversResponseHeader...)
	for _, a := range addrs {
		dst = append(dst, '\\')
		dst = append(dst, a.IP[:]...)
		dst = append(dst, byte(a.Port>>8), byte(a.Port&0xff))
	}
	dst = append(dst, "\\EOT\x00\x00\x00"...)
	return dst
}
