// Package mapport advertises a node's listening TCP port to the local
// network gateway using UPnP or NAT-PMP, whichever is enabled and answers
// first in priority order, with automatic retry, periodic reannouncement
// and safe runtime reconfiguration.
package mapport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// ProtoFlag identifies a port-mapping protocol. Values combine as a bitset
// when describing the enabled-protocol set.
type ProtoFlag uint32

const (
	// ProtoNone is the empty set; as a current-protocol value it means no
	// worker is driving a gateway.
	ProtoNone ProtoFlag = 0
	// ProtoUPnP is the high-priority protocol.
	ProtoUPnP ProtoFlag = 1 << 0
	// ProtoNATPMP is tried only after every enabled UPnP attempt failed.
	ProtoNATPMP ProtoFlag = 1 << 1
)

// String returns a human-readable name for a flag or a flag set.
func (p ProtoFlag) String() string {
	switch p {
	case ProtoNone:
		return "none"
	case ProtoUPnP:
		return "UPnP"
	case ProtoNATPMP:
		return "NAT-PMP"
	}

	var parts []string
	if p&ProtoUPnP != 0 {
		parts = append(parts, "UPnP")
	}
	if p&ProtoNATPMP != 0 {
		parts = append(parts, "NAT-PMP")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("ProtoFlag(%d)", uint32(p))
	}
	return strings.Join(parts, "+")
}

// Gateway is one port-mapping protocol available to the dispatcher.
// Implementations are stateless; all per-device state lives in the
// GatewayClient returned by Discover.
type Gateway interface {
	// Proto identifies the protocol for priority selection and logging.
	Proto() ProtoFlag

	// Discover locates a gateway device on the local network. The context
	// bounds the search; implementations must return promptly once it
	// expires.
	Discover(ctx context.Context) (GatewayClient, error)
}

// GatewayClient is a gateway device found by Discover.
type GatewayClient interface {
	// AddMapping asks the gateway to forward extPort to intPort on this
	// host for the lease duration. Reissuing the same mapping refreshes
	// its lease.
	AddMapping(protocol string, extPort, intPort uint16, desc string, lease time.Duration) error

	// DeleteMapping removes a mapping previously created by AddMapping.
	DeleteMapping(protocol string, extPort uint16) error

	// ExternalIP reports the gateway's externally visible address.
	ExternalIP() (net.IP, error)
}
