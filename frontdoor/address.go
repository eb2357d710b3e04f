package frontdoor

import (
	"net"
	"strings"

	"ezshare-gateway/frontdoor/domain"
)

// SourceAddress extrai a origem de uma conexão: o host de RemoteAddr, sem porta.
// Quando o endereço não tem porta, usa a string inteira.
func SourceAddress(addr net.Addr) domain.Address {
	if addr == nil {
		return "unknown"
	}
	raw := strings.TrimSpace(addr.String())
	host, _, err := net.SplitHostPort(raw)
	if err == nil && host != "" {
		return domain.Address(host)
	}
	if raw != "" {
		return domain.Address(raw)
	}
	return "unknown"
}
