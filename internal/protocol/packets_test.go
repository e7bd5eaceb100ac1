package protocol

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries(t *testing.T) {
	assert.Equal(t, []byte("\xff\xff\xff\xffgetservers 86 full empty"), GetServersQuery(86))
	assert.Equal(t, []byte("\xff\xff\xff\xffgetstatus"), GetStatusQuery())
}

func TestParseServersResponseSingleRecord(t *testing.T) {
	pkt := []byte("\xff\xff\xff\xffgetserversResponse\\\x01\x02\x03\x04\x1a\x85")

	addrs, err := ParseServersResponse(pkt)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "1.2.3.4:6789", addrs[0].String())
}

func TestParseServersResponseKeepsOrder(t *testing.T) {
	var want []ServerAddress
	for i := 0; i < 40; i++ {
		want = append(want, ServerAddress{IP: [4]byte{10, 0, byte(i), 1}, Port: uint16(27960 + i)})
	}

	addrs, err := ParseServersResponse(AppendServersResponse(nil, want))
	require.NoError(t, err)
	assert.Equal(t, want, addrs)
}

func TestParseServersResponseCapsRecords(t *testing.T) {
	var all []ServerAddress
	for i := 0; i < MaxServers+10; i++ {
		all = append(all, ServerAddress{IP: [4]byte{192, 168, byte(i / 256), byte(i)}, Port: 27960})
	}

	addrs, err := ParseServersResponse(AppendServersResponse(nil, all))
	require.NoError(t, err)
	assert.Len(t, addrs, MaxServers)
	assert.Equal(t, all[:MaxServers], addrs)
}

func TestParseServersResponseStopsAtMalformedRecord(t *testing.T) {
	pkt := []byte("\xff\xff\xff\xffgetserversResponse" +
		"\\\x01\x02\x03\x04\x1a\x85" +
		"\\\x05\x06\x07\x08\x00\x50" +
		"X\x09\x09\x09\x09\x00\x01" +
		"\\\x0a\x0a\x0a\x0a\x00\x02")

	addrs, err := ParseServersResponse(pkt)
	assert.True(t, errors.Is(err, ErrTruncatedRecord))
	require.Len(t, addrs, 2)
	assert.Equal(t, "5.6.7.8:80", addrs[1].String())
}

func TestParseServersResponseShortTail(t *testing.T) {
	pkt := []byte("\xff\xff\xff\xffgetserversResponse\\\x01\x02\x03\x04\x1a\x85\\\x01\x02")

	addrs, err := ParseServersResponse(pkt)
	assert.ErrorIs(t, err, ErrTruncatedRecord)
	assert.Len(t, addrs, 1)
}

func TestParseServersResponseEOT(t *testing.T) {
	// short terminator as some masters send it
	pkt := []byte("\xff\xff\xff\xffgetserversResponse\\\x01\x02\x03\x04\x1a\x85\\EOT\x00")

	addrs, err := ParseServersResponse(pkt)
	require.NoError(t, err)
	assert.Len(t, addrs, 1)

	// 69.79.84.x is a valid address when it is not followed by NUL padding
	pkt = []byte("\xff\xff\xff\xffgetserversResponse\\EOT\x07\x6d\x38")
	addrs, err = ParseServersResponse(pkt)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, "69.79.84.7:27960", addrs[0].String())
}

func TestParseServersResponseEmpty(t *testing.T) {
	addrs, err := ParseServersResponse([]byte("\xff\xff\xff\xffgetserversResponse"))
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestParseServersResponseBadPrefix(t *testing.T) {
	for _, pkt := range [][]byte{
		nil,
		[]byte("getserversResponse\\\x01\x02\x03\x04\x1a\x85"),
		[]byte("\xff\xff\xff\xffstatusResponse\n"),
		[]byte("\xff\xff\xff\xffgetservers"),
	} {
		_, err := ParseServersResponse(pkt)
		assert.ErrorIs(t, err, ErrBadPrefix)
	}
}

func TestAddressFromUDP(t *testing.T) {
	a, ok := AddressFromUDP(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 27960})
	require.True(t, ok)
	assert.Equal(t, ServerAddress{IP: [4]byte{127, 0, 0, 1}, Port: 27960}, a)
	assert.Equal(t, "127.0.0.1:27960", a.UDPAddr().String())

	_, ok = AddressFromUDP(&net.UDPAddr{IP: net.ParseIP("::1"), Port: 27960})
	assert.False(t, ok)
	_, ok = AddressFromUDP(nil)
	assert.False(t, ok)
}
