package mapport

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// mockClockConfig returns a test Config driven by the returned mock clock;
// waits only progress when the test advances it. Periods are set
// explicitly so tests can advance by cfg.ReannouncePeriod and
// cfg.RetryPeriod directly.
func mockClockConfig() (Config, *clock.Mock) {
	clk := clock.NewMock()
	cfg := testConfig()
	cfg.Clock = clk
	cfg.ReannouncePeriod = DefaultReannouncePeriod
	cfg.RetryPeriod = DefaultRetryPeriod
	return cfg, clk
}

// TestReannounceCadence drives a held mapping through N simulated
// reannounce periods and expects exactly N+1 mapping calls: the initial
// one plus one per period.
func TestReannounceCadence(t *testing.T) {
	cfg, clk := mockClockConfig()
	upnp := NewMockGateway(ProtoUPnP)

	d, err := New(cfg, upnp)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	d.Configure(true, false)
	waitUntil(t, 2*time.Second, func() bool { return upnp.AddCalls() == 1 }, "initial mapping")

	const periods = 3
	for n := 1; n <= periods; n++ {
		settle() // let the worker block in its reannounce wait
		clk.Add(cfg.ReannouncePeriod)
		want := n + 1
		waitUntil(t, 2*time.Second, func() bool { return upnp.AddCalls() == want }, "reannounce")
	}

	settle()
	if got := upnp.AddCalls(); got != periods+1 {
		t.Errorf("expected exactly %d mapping calls, got %d", periods+1, got)
	}

	d.Stop()

	if got := upnp.AddCalls(); got != periods+1 {
		t.Errorf("Stop must not add mappings; got %d calls", got)
	}
	if got := upnp.DeleteCalls(); got != 1 {
		t.Errorf("expected one unmapping on Stop, got %d", got)
	}
}

// TestRetryBackoff covers a permanently failing gateway: discovery is
// retried once per retry period, and disabling mid-backoff terminates the
// worker without waiting the period out.
func TestRetryBackoff(t *testing.T) {
	cfg, clk := mockClockConfig()
	upnp := NewMockGateway(ProtoUPnP)
	upnp.SetFailDiscover(true)

	d, err := New(cfg, upnp)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	d.Configure(true, false)
	waitUntil(t, 2*time.Second, func() bool { return upnp.DiscoverCalls() == 1 }, "first discovery attempt")

	settle() // worker is now in its retry backoff
	clk.Add(cfg.RetryPeriod)
	waitUntil(t, 2*time.Second, func() bool { return upnp.DiscoverCalls() == 2 }, "retry after backoff")

	if got := d.Current(); got != ProtoNone {
		t.Errorf("expected current protocol none while backing off, got %s", got)
	}

	// disable mid-backoff; Configure joins the worker before returning
	settle()
	d.Configure(false, false)

	if d.Running() {
		t.Error("expected worker terminated after disabling during backoff")
	}
	if got := upnp.AddCalls(); got != 0 {
		t.Errorf("expected no mapping calls from a failing gateway, got %d", got)
	}
}

// TestProtocolSwitch disables the held protocol while another stays
// enabled: the worker must tear down its mapping and move to the other
// protocol without a restart.
func TestProtocolSwitch(t *testing.T) {
	cfg, _ := mockClockConfig()
	upnp := NewMockGateway(ProtoUPnP)
	pmp := NewMockGateway(ProtoNATPMP)

	d, err := New(cfg, upnp, pmp)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Stop()

	d.Configure(true, true)
	waitUntil(t, 2*time.Second, func() bool { return upnp.AddCalls() == 1 }, "UPnP mapping")

	settle() // worker is holding in the reannounce wait
	d.Configure(false, true)

	waitUntil(t, 2*time.Second, func() bool { return pmp.AddCalls() >= 1 }, "NAT-PMP mapping after switch")

	if got := d.Current(); got != ProtoNATPMP {
		t.Errorf("expected current protocol NAT-PMP after switch, got %s", got)
	}
	if got := upnp.DeleteCalls(); got != 1 {
		t.Errorf("expected the UPnP mapping removed on switch, got %d unmappings", got)
	}
	if !d.Running() {
		t.Error("expected the worker to survive the switch")
	}
}

// TestReannounceFailureRestartsRound verifies a mapping lost at reannounce
// time restarts the priority scan instead of ending the worker: the next
// round re-discovers and re-establishes.
func TestReannounceFailureRestartsRound(t *testing.T) {
	cfg, clk := mockClockConfig()
	upnp := NewMockGateway(ProtoUPnP)

	d, err := New(cfg, upnp)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Stop()

	d.Configure(true, false)
	waitUntil(t, 2*time.Second, func() bool { return upnp.AddCalls() == 1 }, "initial mapping")

	// the gateway rejects exactly one refresh
	upnp.FailNextAdds(1)
	settle()
	clk.Add(cfg.ReannouncePeriod)
	waitUntil(t, 2*time.Second, func() bool { return upnp.AddCalls() >= 2 }, "failed reannounce")

	// the hold still counted as success, so the worker re-discovers
	// immediately rather than entering retry backoff
	waitUntil(t, 2*time.Second, func() bool { return upnp.AddCalls() == 3 }, "re-established mapping")
	waitUntil(t, 2*time.Second, func() bool { return upnp.DiscoverCalls() == 2 }, "second discovery")

	if got := d.Current(); got != ProtoUPnP {
		t.Errorf("expected current protocol UPnP, got %s", got)
	}
}

// TestDeleteFailureIgnored verifies a failed best-effort unmapping during
// teardown does not disturb shutdown.
func TestDeleteFailureIgnored(t *testing.T) {
	cfg, _ := mockClockConfig()
	upnp := NewMockGateway(ProtoUPnP)
	upnp.SetFailDelete(true)

	d, err := New(cfg, upnp)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	d.Configure(true, false)
	waitUntil(t, 2*time.Second, func() bool { return upnp.AddCalls() == 1 }, "mapping")

	d.Stop()

	if d.Running() {
		t.Error("expected clean stop despite unmapping failure")
	}
	if got := upnp.DeleteCalls(); got != 1 {
		t.Errorf("expected one unmapping attempt, got %d", got)
	}
}
