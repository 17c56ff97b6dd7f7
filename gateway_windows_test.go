//go:build windows

package mapport

import "testing"

func TestParseWindowsRoutes(t *testing.T) {
	t.Run("default route", func(t *testing.T) {
		out := `===========================================================================
IPv4 Route Table
===========================================================================
Active Routes:
Network Destination        Netmask          Gateway       Interface  Metric
          0.0.0.0          0.0.0.0      192.168.1.1    192.168.1.100     25
===========================================================================
`
		ip, err := parseWindowsRoutes(out)
		if err != nil {
			t.Fatalf("parseWindowsRoutes failed: %v", err)
		}
		if ip == nil || ip.String() != "192.168.1.1" {
			t.Errorf("gateway = %v, want 192.168.1.1", ip)
		}
	})

	t.Run("on-link skipped", func(t *testing.T) {
		out := `Active Routes:
Network Destination        Netmask          Gateway       Interface  Metric
          0.0.0.0          0.0.0.0          On-link     192.168.1.100    281
          0.0.0.0          0.0.0.0       10.0.0.138    192.168.1.100     25
===========================================================================
`
		ip, err := parseWindowsRoutes(out)
		if err != nil {
			t.Fatalf("parseWindowsRoutes failed: %v", err)
		}
		if ip == nil || ip.String() != "10.0.0.138" {
			t.Errorf("gateway = %v, want 10.0.0.138", ip)
		}
	})

	t.Run("no active routes section", func(t *testing.T) {
		ip, err := parseWindowsRoutes("IPv4 Route Table\n")
		if err != nil {
			t.Fatalf("parseWindowsRoutes failed: %v", err)
		}
		if ip != nil {
			t.Errorf("expected no gateway, got %v", ip)
		}
	})
}
