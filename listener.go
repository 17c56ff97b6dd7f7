package mapport

import (
	"fmt"
	"net"
	"strconv"
)

// Listener is a TCP listener whose port a background Dispatcher keeps
// advertised on the local gateway for as long as the listener is open.
type Listener struct {
	net.Listener
	dispatcher *Dispatcher
	port       uint16
}

// Listen announces on the local TCP port and starts advertising it to the
// gateway via every available protocol. The mapping is established
// asynchronously; use ExternalAddr to observe it. Port 0 picks an
// ephemeral port.
func Listen(port uint16) (*Listener, error) {
	return ListenConfig(Config{Port: port})
}

// ListenConfig is Listen with full dispatcher configuration. cfg.Port 0
// picks an ephemeral port.
func ListenConfig(cfg Config) (*Listener, error) {
	return listenWith(cfg, UPnPGateway{}, NATPMPGateway{})
}

// listenWith binds the socket first so the advertised port is known even
// when it was picked by the OS, then starts the dispatcher over it.
func listenWith(cfg Config, gateways ...Gateway) (*Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("unexpected listener address type: %T", ln.Addr())
	}
	cfg.Port = uint16(tcpAddr.Port)

	dispatcher, err := New(cfg, gateways...)
	if err != nil {
		ln.Close()
		return nil, err
	}
	dispatcher.Configure(true, true)

	return &Listener{
		Listener:   ln,
		dispatcher: dispatcher,
		port:       cfg.Port,
	}, nil
}

// Close stops the port-mapping worker, removing the gateway mapping best
// effort, then closes the underlying listener. Safe to call repeatedly.
func (l *Listener) Close() error {
	l.dispatcher.Stop()
	return l.Listener.Close()
}

// ExternalAddr reports the externally reachable address once a gateway
// has confirmed the mapping, or nil before then.
func (l *Listener) ExternalAddr() net.Addr {
	ip := l.dispatcher.ExternalIP()
	if ip == nil {
		return nil
	}
	external := net.JoinHostPort(ip.String(), strconv.Itoa(int(l.port)))
	return NewMappedAddr("tcp", l.Listener.Addr().String(), external)
}

// Dispatcher exposes the mapping worker, for reconfiguring protocols at
// runtime or inspecting its state.
func (l *Listener) Dispatcher() *Dispatcher {
	return l.dispatcher
}
