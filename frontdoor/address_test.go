package frontdoor

import (
	"net"
	"testing"

	"ezshare-gateway/frontdoor/domain"

	"github.com/stretchr/testify/require"
)

type rawAddr string

func (a rawAddr) Network() string { return "tcp" }
func (a rawAddr) String() string  { return string(a) }

func TestSourceAddress(t *testing.T) {
	tests := map[string]struct {
		addr net.Addr
		want domain.Address
	}{
		"IPv4 with port":  {addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 51234}, want: "10.0.0.7"},
		"IPv6 with port":  {addr: &net.TCPAddr{IP: net.ParseIP("::1"), Port: 3780}, want: "::1"},
		"No port":         {addr: rawAddr("peer.example"), want: "peer.example"},
		"Empty":           {addr: rawAddr(""), want: "unknown"},
		"Nil":             {addr: nil, want: "unknown"},
		"Surrounding ws":  {addr: rawAddr(" 192.168.1.2:80 "), want: "192.168.1.2"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, SourceAddress(tc.addr))
		})
	}
}
