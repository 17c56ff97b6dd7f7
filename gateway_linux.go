//go:build linux

package mapport

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

// routingTableGateway reads the default gateway from /proc/net/route.
// Returns nil, nil when no default route is found or the file is absent
// (containers, restricted /proc), letting the caller fall back to the
// subnet heuristic.
func routingTableGateway() (net.IP, error) {
	file, err := os.Open("/proc/net/route")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open routing table: %w", err)
	}
	defer file.Close()

	return scanRouteTable(file)
}

// scanRouteTable parses the /proc/net/route format: whitespace-separated
// columns, first line a header, gateway column little-endian hex.
func scanRouteTable(r io.Reader) (net.IP, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, fmt.Errorf("empty routing table")
	}

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}

		// default route has destination 00000000
		if fields[1] != "00000000" {
			continue
		}

		gateway, err := parseRouteHexIP(fields[2])
		if err != nil {
			return nil, fmt.Errorf("failed to parse gateway: %w", err)
		}
		// a zero gateway marks an on-link route, keep looking
		if !gateway.Equal(net.IPv4zero) {
			return gateway, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading routing table: %w", err)
	}
	return nil, nil
}

// parseRouteHexIP converts the little-endian hex IP notation used by
// /proc/net/route (e.g. "0101A8C0" = 192.168.1.1) to a net.IP.
func parseRouteHexIP(hexIP string) (net.IP, error) {
	if len(hexIP) != 8 {
		return nil, fmt.Errorf("invalid hex IP length: %d", len(hexIP))
	}

	b, err := hex.DecodeString(hexIP)
	if err != nil {
		return nil, fmt.Errorf("invalid hex IP: %w", err)
	}

	return net.IPv4(b[3], b[2], b[1], b[0]), nil
}
