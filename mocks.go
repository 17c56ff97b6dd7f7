package mapport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// MockGateway implements Gateway and GatewayClient for testing. It records
// every capability call and can be told to fail at each stage. All methods
// are safe for concurrent use.
type MockGateway struct {
	proto ProtoFlag

	mu           sync.Mutex
	failDiscover bool
	failAdd      bool
	failNextAdds int
	failDelete   bool
	failExternal bool
	externalIP   net.IP

	discoverCalls int
	addCalls      int
	deleteCalls   int
	externalCalls int

	lastAdd MockMappingRequest

	added   chan struct{}
	deleted chan struct{}
}

// MockMappingRequest captures the arguments of the latest AddMapping call.
type MockMappingRequest struct {
	Protocol string
	ExtPort  uint16
	IntPort  uint16
	Desc     string
	Lease    time.Duration
}

// NewMockGateway creates a mock that succeeds at everything and reports
// an RFC 5737 test address as its external IP.
func NewMockGateway(proto ProtoFlag) *MockGateway {
	return &MockGateway{
		proto:      proto,
		externalIP: net.IPv4(203, 0, 113, 100),
		added:      make(chan struct{}, 128),
		deleted:    make(chan struct{}, 128),
	}
}

// SetFailDiscover makes Discover fail.
func (m *MockGateway) SetFailDiscover(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDiscover = fail
}

// SetFailAdd makes AddMapping fail.
func (m *MockGateway) SetFailAdd(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAdd = fail
}

// FailNextAdds makes exactly the next n AddMapping calls fail, after
// which the steady-state SetFailAdd setting applies again.
func (m *MockGateway) FailNextAdds(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextAdds = n
}

// SetFailDelete makes DeleteMapping fail.
func (m *MockGateway) SetFailDelete(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDelete = fail
}

// SetFailExternalIP makes ExternalIP fail.
func (m *MockGateway) SetFailExternalIP(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failExternal = fail
}

// SetExternalIP sets the address ExternalIP reports.
func (m *MockGateway) SetExternalIP(ip net.IP) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.externalIP = ip
}

// DiscoverCalls returns how many times Discover was invoked.
func (m *MockGateway) DiscoverCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discoverCalls
}

// AddCalls returns how many times AddMapping was invoked.
func (m *MockGateway) AddCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addCalls
}

// DeleteCalls returns how many times DeleteMapping was invoked.
func (m *MockGateway) DeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls
}

// ExternalIPCalls returns how many times ExternalIP was invoked.
func (m *MockGateway) ExternalIPCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.externalCalls
}

// LastAdd returns the arguments of the most recent AddMapping call.
func (m *MockGateway) LastAdd() MockMappingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAdd
}

// AddNotify receives one value per AddMapping call.
func (m *MockGateway) AddNotify() <-chan struct{} {
	return m.added
}

// DeleteNotify receives one value per DeleteMapping call.
func (m *MockGateway) DeleteNotify() <-chan struct{} {
	return m.deleted
}

// Proto implements Gateway.
func (m *MockGateway) Proto() ProtoFlag {
	return m.proto
}

// Discover implements Gateway; the mock acts as its own client.
func (m *MockGateway) Discover(_ context.Context) (GatewayClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discoverCalls++
	if m.failDiscover {
		return nil, fmt.Errorf("mock %s: no gateway responded", m.proto)
	}
	return m, nil
}

// AddMapping implements GatewayClient.
func (m *MockGateway) AddMapping(protocol string, extPort, intPort uint16, desc string, lease time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	m.lastAdd = MockMappingRequest{
		Protocol: protocol,
		ExtPort:  extPort,
		IntPort:  intPort,
		Desc:     desc,
		Lease:    lease,
	}
	select {
	case m.added <- struct{}{}:
	default:
	}
	if m.failNextAdds > 0 {
		m.failNextAdds--
		return fmt.Errorf("mock %s: gateway rejected mapping", m.proto)
	}
	if m.failAdd {
		return fmt.Errorf("mock %s: gateway rejected mapping", m.proto)
	}
	return nil
}

// DeleteMapping implements GatewayClient.
func (m *MockGateway) DeleteMapping(protocol string, extPort uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	select {
	case m.deleted <- struct{}{}:
	default:
	}
	if m.failDelete {
		return fmt.Errorf("mock %s: gateway rejected unmapping", m.proto)
	}
	return nil
}

// ExternalIP implements GatewayClient.
func (m *MockGateway) ExternalIP() (net.IP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.externalCalls++
	if m.failExternal {
		return nil, fmt.Errorf("mock %s: external address unavailable", m.proto)
	}
	return m.externalIP, nil
}
