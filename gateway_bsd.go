//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package mapport

import (
	"bufio"
	"net"
	"os/exec"
	"strings"
)

// routingTableGateway reads the default gateway from `netstat -rn` on
// BSD-like systems, macOS included. Returns nil, nil when the gateway
// cannot be determined, letting the caller fall back to the subnet
// heuristic.
func routingTableGateway() (net.IP, error) {
	out, err := exec.Command("netstat", "-rn").Output()
	if err != nil {
		return nil, nil
	}
	return parseNetstatRoutes(string(out))
}

// parseNetstatRoutes finds the default route in `netstat -rn` output. The
// exact layout varies between BSD variants but the default route always
// starts with "default" or "0.0.0.0" followed by the gateway column.
func parseNetstatRoutes(output string) (net.IP, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "default", "0.0.0.0", "0.0.0.0/0":
		default:
			continue
		}

		gw := fields[1]
		// skip link routes and bare interface names ("link#5", "en0")
		if strings.Contains(gw, "#") || !strings.Contains(gw, ".") {
			continue
		}
		// strip a scoped-interface suffix ("192.168.1.1%en0")
		if idx := strings.Index(gw, "%"); idx != -1 {
			gw = gw[:idx]
		}

		if ip := net.ParseIP(gw); ip != nil && ip.To4() != nil {
			return ip.To4(), nil
		}
	}
	return nil, nil
}
