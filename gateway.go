package mapport

import (
	"fmt"
	"net"
)

// discoverDefaultGateway finds the LAN's default gateway address for
// NAT-PMP. It first consults the system routing table using a
// platform-specific reader, then falls back to guessing that the router
// sits at .1 of the local subnet.
func discoverDefaultGateway() (net.IP, error) {
	if gw, err := routingTableGateway(); err == nil && gw != nil {
		return gw, nil
	}
	return subnetGatewayGuess()
}

// subnetGatewayGuess assumes the gateway is at .1 in the subnet of the
// preferred outbound address. No packets are sent; the UDP dial only
// selects a source address. The guess holds for most home and office
// networks.
func subnetGatewayGuess() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, fmt.Errorf("failed to determine local IP: %w", err)
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address type: %T", conn.LocalAddr())
	}
	ip := localAddr.IP.To4()
	if ip == nil {
		return nil, fmt.Errorf("local address %v is not IPv4", localAddr.IP)
	}

	return net.IPv4(ip[0], ip[1], ip[2], 1), nil
}
