package requestid

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// TrustPolicy decides whether an inbound request ID header may be adopted.
type TrustPolicy string

const (
	// TrustAlways adopts any valid inbound value.
	TrustAlways TrustPolicy = "always"
	// TrustNever ignores inbound values and always generates.
	TrustNever TrustPolicy = "never"
	// TrustNetworks adopts inbound values only from peers inside the trusted networks.
	TrustNetworks TrustPolicy = "trusted_networks"
)

// ParseTrustPolicy converts a string to a TrustPolicy. Empty selects TrustAlways.
func ParseTrustPolicy(value string) (TrustPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(TrustAlways):
		return TrustAlways, nil
	case string(TrustNever):
		return TrustNever, nil
	case string(TrustNetworks), "networks":
		return TrustNetworks, nil
	default:
		return "", fmt.Errorf("invalid trust policy %q (supported: always, never, trusted_networks)", value)
	}
}

// parseNetworks accepts CIDR prefixes and bare addresses.
func parseNetworks(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if strings.Contains(value, "/") {
			prefix, err := netip.ParsePrefix(value)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted network %q: %w", value, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted network %q: %w", value, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// peerAddr returns the address of the directly connected peer.
func peerAddr(r *http.Request) (netip.Addr, bool) {
	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(r.RemoteAddr); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
