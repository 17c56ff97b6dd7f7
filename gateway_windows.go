//go:build windows

package mapport

import (
	"bufio"
	"net"
	"os/exec"
	"strings"
)

// routingTableGateway reads the default gateway from `route print 0.0.0.0`
// on Windows. Returns nil, nil when the gateway cannot be determined,
// letting the caller fall back to the subnet heuristic.
func routingTableGateway() (net.IP, error) {
	out, err := exec.Command("route", "print", "0.0.0.0").Output()
	if err != nil {
		return nil, nil
	}
	return parseWindowsRoutes(string(out))
}

// parseWindowsRoutes finds the default route inside the "Active Routes:"
// section: a row with destination 0.0.0.0, netmask 0.0.0.0 and the
// gateway in the third column.
func parseWindowsRoutes(output string) (net.IP, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	inActiveRoutes := false

	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, "Active Routes:") {
			inActiveRoutes = true
			continue
		}
		if inActiveRoutes && strings.HasPrefix(line, "====") {
			break
		}
		if !inActiveRoutes {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 || fields[0] == "Network" {
			continue
		}
		if fields[0] != "0.0.0.0" || fields[1] != "0.0.0.0" {
			continue
		}
		if fields[2] == "On-link" {
			continue
		}

		if ip := net.ParseIP(fields[2]); ip != nil && ip.To4() != nil {
			return ip.To4(), nil
		}
	}
	return nil, nil
}
