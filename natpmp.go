package mapport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	natpmp "github.com/jackpal/go-nat-pmp"
)

// NATPMPGateway implements Gateway over the NAT-PMP protocol.
type NATPMPGateway struct{}

// Proto implements Gateway.
func (NATPMPGateway) Proto() ProtoFlag { return ProtoNATPMP }

// Discover locates the default gateway via the system routing table and
// verifies it speaks NAT-PMP by requesting its external address. NAT-PMP
// has no discovery phase of its own, so the connectivity test is what
// bounds a dead gateway to the context deadline.
func (NATPMPGateway) Discover(ctx context.Context) (GatewayClient, error) {
	gateway, err := discoverDefaultGateway()
	if err != nil {
		return nil, fmt.Errorf("NAT-PMP gateway discovery failed: %w", err)
	}

	client, err := newNATPMPClient(ctx, gateway)
	if err != nil {
		return nil, err
	}

	if _, err := client.GetExternalAddress(); err != nil {
		return nil, fmt.Errorf("NAT-PMP connectivity test failed: %w", err)
	}

	return &natpmpClient{client: client}, nil
}

// newNATPMPClient builds a client whose request timeout honors the
// context deadline, if any.
func newNATPMPClient(ctx context.Context, gateway net.IP) (*natpmp.Client, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return natpmp.NewClient(gateway), nil
	}
	timeout := time.Until(deadline)
	if timeout <= 0 {
		return nil, fmt.Errorf("NAT-PMP discovery cancelled: %w", ctx.Err())
	}
	return natpmp.NewClientWithTimeout(gateway, timeout), nil
}

// natpmpClient is a gateway confirmed to answer NAT-PMP requests.
type natpmpClient struct {
	client *natpmp.Client
}

// AddMapping implements GatewayClient. NAT-PMP carries no description.
func (c *natpmpClient) AddMapping(protocol string, extPort, intPort uint16, _ string, lease time.Duration) error {
	proto, err := natpmpProto(protocol)
	if err != nil {
		return err
	}

	_, err = c.client.AddPortMapping(proto, int(intPort), int(extPort), int(lease.Seconds()))
	if err != nil {
		return fmt.Errorf("NAT-PMP port mapping failed: %w", err)
	}
	return nil
}

// DeleteMapping implements GatewayClient. NAT-PMP removes a mapping by
// re-requesting it with a zero lifetime and zero external port.
func (c *natpmpClient) DeleteMapping(protocol string, extPort uint16) error {
	proto, err := natpmpProto(protocol)
	if err != nil {
		return err
	}

	_, err = c.client.AddPortMapping(proto, int(extPort), 0, 0)
	if err != nil {
		return fmt.Errorf("NAT-PMP port unmapping failed: %w", err)
	}
	return nil
}

// ExternalIP implements GatewayClient.
func (c *natpmpClient) ExternalIP() (net.IP, error) {
	result, err := c.client.GetExternalAddress()
	if err != nil {
		return nil, fmt.Errorf("NAT-PMP external IP lookup failed: %w", err)
	}
	a := result.ExternalIPAddress
	return net.IPv4(a[0], a[1], a[2], a[3]), nil
}

// natpmpProto translates a protocol name into the lowercase form the
// NAT-PMP client expects.
func natpmpProto(protocol string) (string, error) {
	switch p := strings.ToLower(protocol); p {
	case "tcp", "udp":
		return p, nil
	default:
		return "", fmt.Errorf("unsupported protocol: %s", protocol)
	}
}
