package mapport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/huin/goupnp/dcps/internetgateway2"
)

// upnpConn is the slice of the goupnp IGD client the mapper needs. It is
// satisfied by WANIPConnection1, WANIPConnection2 and WANPPPConnection1.
type upnpConn interface {
	AddPortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
		NewInternalPort uint16,
		NewInternalClient string,
		NewEnabled bool,
		NewPortMappingDescription string,
		NewLeaseDuration uint32,
	) error
	DeletePortMapping(
		NewRemoteHost string,
		NewExternalPort uint16,
		NewProtocol string,
	) error
	GetExternalIPAddress() (string, error)
}

// UPnPGateway implements Gateway over the UPnP IGD protocol.
type UPnPGateway struct{}

// Proto implements Gateway.
func (UPnPGateway) Proto() ProtoFlag { return ProtoUPnP }

// Discover searches for an IGD on the local network, preferring
// WANIPConnection2, then WANIPConnection1, then WANPPPConnection1 (PPPoE
// routers such as DSL). The context bounds the whole search.
func (UPnPGateway) Discover(ctx context.Context) (GatewayClient, error) {
	conn, err := discoverIGD(ctx)
	if err != nil {
		return nil, err
	}

	// The gateway needs our LAN address as the mapping's internal client.
	localIP, err := preferredLocalIP()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IP: %w", err)
	}

	return &upnpClient{conn: conn, localIP: localIP}, nil
}

// discoverIGD tries each WAN connection service in order of preference and
// returns the first client that answers.
func discoverIGD(ctx context.Context) (upnpConn, error) {
	if clients, _, err := internetgateway2.NewWANIPConnection2ClientsCtx(ctx); err == nil && len(clients) > 0 {
		return clients[0], nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("UPnP discovery cancelled: %w", err)
	}

	if clients, _, err := internetgateway2.NewWANIPConnection1ClientsCtx(ctx); err == nil && len(clients) > 0 {
		return clients[0], nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("UPnP discovery cancelled: %w", err)
	}

	if clients, _, err := internetgateway2.NewWANPPPConnection1ClientsCtx(ctx); err == nil && len(clients) > 0 {
		return clients[0], nil
	}
	return nil, fmt.Errorf("no UPnP IGD devices found (tried WANIPConnection2, WANIPConnection1, WANPPPConnection1)")
}

// upnpClient is a discovered IGD bound to the local address mappings
// should point at.
type upnpClient struct {
	conn    upnpConn
	localIP string
}

// AddMapping implements GatewayClient.
func (c *upnpClient) AddMapping(protocol string, extPort, intPort uint16, desc string, lease time.Duration) error {
	err := c.conn.AddPortMapping(
		"",       // remote host (any)
		extPort,  // external port
		protocol, // TCP or UDP
		intPort,  // internal port
		c.localIP,
		true, // enabled
		desc,
		uint32(lease.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("UPnP port mapping failed: %w", err)
	}
	return nil
}

// DeleteMapping implements GatewayClient.
func (c *upnpClient) DeleteMapping(protocol string, extPort uint16) error {
	if err := c.conn.DeletePortMapping("", extPort, protocol); err != nil {
		return fmt.Errorf("UPnP port unmapping failed: %w", err)
	}
	return nil
}

// ExternalIP implements GatewayClient.
func (c *upnpClient) ExternalIP() (net.IP, error) {
	s, err := c.conn.GetExternalIPAddress()
	if err != nil {
		return nil, fmt.Errorf("UPnP external IP lookup failed: %w", err)
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("UPnP returned invalid external IP %q", s)
	}
	return ip, nil
}

// preferredLocalIP finds the local address the OS would route outbound
// traffic through. No packets are sent; UDP dial only selects a source
// address.
func preferredLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type: %T", conn.LocalAddr())
	}
	return localAddr.IP.String(), nil
}
