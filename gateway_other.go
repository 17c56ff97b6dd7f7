//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package mapport

import "net"

// routingTableGateway is a stub for platforms without a routing-table
// reader (Android with restricted /proc, iOS, Plan 9, js/wasm).
// Returning nil, nil sends the caller to the subnet heuristic.
func routingTableGateway() (net.IP, error) {
	return nil, nil
}
