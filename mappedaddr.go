package mapport

// MappedAddr is a net.Addr carrying both sides of a NAT mapping: the
// address the socket is bound to and the address peers reach it at.
type MappedAddr struct {
	network  string
	internal string
	external string
}

// NewMappedAddr creates a MappedAddr for the given network ("tcp"/"udp").
func NewMappedAddr(network, internal, external string) *MappedAddr {
	return &MappedAddr{
		network:  network,
		internal: internal,
		external: external,
	}
}

// Network returns the network type.
func (a *MappedAddr) Network() string {
	return a.network
}

// String returns the external address, the one peers should dial.
func (a *MappedAddr) String() string {
	return a.external
}

// InternalAddr returns the locally bound address.
func (a *MappedAddr) InternalAddr() string {
	return a.internal
}

// ExternalAddr returns the externally reachable address.
func (a *MappedAddr) ExternalAddr() string {
	return a.external
}
