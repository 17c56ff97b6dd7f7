package mapport

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

// Dispatcher keeps a gateway port mapping for one TCP port alive in the
// background. It tries each enabled protocol in priority order, holds a
// successful mapping open with periodic reannouncement, and backs off
// between fully failed rounds. At most one worker goroutine runs at a
// time; every lifecycle transition goes through Configure, Interrupt or
// Stop, all of which are safe for concurrent use and never fail — protocol
// errors are absorbed by the worker and surface only in logs.
type Dispatcher struct {
	cfg       Config
	gateways  []Gateway // priority order
	available ProtoFlag
	interrupt *Interrupt
	log       *slog.Logger

	// enabled is written only under mu; current is written only by the
	// worker. Both are read lock-free by the other side.
	enabled atomic.Uint32
	current atomic.Uint32

	mu      sync.Mutex // guards the worker lifecycle
	running bool
	done    chan struct{} // closed when the worker exits

	externalIP atomic.Value // net.IP
}

// New builds a Dispatcher over the given gateways. Gateway order fixes
// protocol priority; pass the UPnP gateway before the NAT-PMP one. An
// empty gateway list is valid: no worker will ever start.
func New(cfg Config, gateways ...Gateway) (*Dispatcher, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		cfg:       cfg,
		gateways:  gateways,
		interrupt: NewInterrupt(cfg.Clock),
		log:       cfg.Logger,
	}
	for _, gw := range gateways {
		d.available |= gw.Proto()
	}
	return d, nil
}

// Configure sets the enabled-protocol flags and reconciles the worker:
// starting it when protocols become enabled, tearing it down (blocking)
// when none remain, and nudging it to re-pick when its current protocol
// was disabled. Requested protocols without a registered gateway are
// ignored. Repeating the previous configuration is a no-op.
func (d *Dispatcher) Configure(useUPnP, useNATPMP bool) {
	var want ProtoFlag
	if useUPnP {
		want |= ProtoUPnP
	}
	if useNATPMP {
		want |= ProtoNATPMP
	}
	want &= d.available

	d.mu.Lock()
	defer d.mu.Unlock()

	if want == d.enabledProtos() && (d.running || want == ProtoNone) {
		return
	}
	d.enabled.Store(uint32(want))

	switch {
	case !d.running && want == ProtoNone:
		// nothing enabled, nothing running
	case !d.running:
		d.startLocked()
	case want == ProtoNone:
		d.stopLocked()
	case want&d.currentProto() != 0:
		// the protocol in use is still permitted; let the worker finish
		// its hold or backoff cycle undisturbed
	default:
		// the worker is on a now-disabled protocol: wake its wait so it
		// re-picks by priority on the next loop pass. In-flight gateway
		// calls are not aborted; the switch takes effect at the worker's
		// next checkpoint.
		d.log.Debug("requesting protocol switch",
			"enabled", want.String(),
			"current", d.currentProto().String())
		d.interrupt.Signal()
	}
}

// Interrupt disables every protocol and tears the worker down, blocking
// until it has exited. Equivalent to Configure(false, false).
func (d *Dispatcher) Interrupt() {
	d.Configure(false, false)
}

// Stop disables every protocol and joins the worker if one is running.
// After Stop returns no worker remains. Idempotent.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.enabled.Store(uint32(ProtoNone))
	if d.running {
		d.stopLocked()
	}
}

// startLocked spawns the worker. Caller holds mu and has verified no
// worker is running.
func (d *Dispatcher) startLocked() {
	d.running = true
	d.done = make(chan struct{})
	go d.run(d.done)
	d.log.Info("port mapping worker started",
		"enabled", d.enabledProtos().String(),
		"port", d.cfg.Port)
}

// stopLocked signals the worker and blocks until it exits, then clears the
// latch for the next start. Caller holds mu, has already emptied the
// enabled set, and has verified a worker is running.
func (d *Dispatcher) stopLocked() {
	d.interrupt.Signal()
	<-d.done
	d.interrupt.Reset()
	d.running = false
	d.log.Info("port mapping worker stopped")
}

// run is the worker loop. It is the only writer of current. Termination is
// voluntary: the loop exits when the enabled set is empty at a decision
// point, and the controller join in stopLocked observes that exit.
func (d *Dispatcher) run(done chan struct{}) {
	defer close(done)

	for {
		ok := false
		for _, gw := range d.gateways {
			proto := gw.Proto()
			if d.enabledProtos()&proto == 0 {
				continue
			}
			d.current.Store(uint32(proto))
			if d.process(gw) {
				ok = true
				break
			}
		}
		if ok {
			// a mapping was held for some duration; re-read the enabled
			// set and start over from the highest priority
			continue
		}

		d.current.Store(uint32(ProtoNone))
		if d.enabledProtos() == ProtoNone {
			return
		}

		// every enabled protocol failed this round
		d.interrupt.Sleep(d.cfg.RetryPeriod)
		d.interrupt.Reset()
	}
}

// process runs one attempt-and-hold cycle against a single protocol. It
// reports whether a mapping was established at any point: a hold that
// later ends, whether by signal or by a failed reannounce, still counts as
// success, so the next round restarts from the highest priority instead of
// falling through to lower ones.
func (d *Dispatcher) process(gw Gateway) bool {
	name := gw.Proto().String()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DiscoverTimeout)
	client, err := gw.Discover(ctx)
	cancel()
	if err != nil {
		d.log.Info("gateway discovery failed", "protocol", name, "error", err)
		return false
	}

	if ip, err := client.ExternalIP(); err != nil {
		d.log.Debug("external address lookup failed", "protocol", name, "error", err)
	} else {
		d.setExternalIP(name, ip)
	}

	mapped := false
	for {
		err := client.AddMapping("TCP", d.cfg.Port, d.cfg.Port, d.cfg.Description, d.cfg.leaseDuration())
		if err != nil {
			d.log.Info("port mapping failed",
				"protocol", name,
				"port", d.cfg.Port,
				"error", err)
			break
		}
		if !mapped {
			d.log.Info("port mapping established", "protocol", name, "port", d.cfg.Port)
			mapped = true
		}
		if !d.interrupt.Sleep(d.cfg.ReannouncePeriod) {
			break
		}
	}
	d.interrupt.Reset()

	if mapped {
		// best effort; the lease lapses on its own either way
		if err := client.DeleteMapping("TCP", d.cfg.Port); err != nil {
			d.log.Warn("failed to remove port mapping",
				"protocol", name,
				"port", d.cfg.Port,
				"error", err)
		}
	}
	return mapped
}

func (d *Dispatcher) setExternalIP(proto string, ip net.IP) {
	d.externalIP.Store(ip)
	d.log.Info("gateway external address", "protocol", proto, "ip", ip.String())
	if d.cfg.OnExternalIP != nil {
		d.cfg.OnExternalIP(ip)
	}
}

func (d *Dispatcher) enabledProtos() ProtoFlag {
	return ProtoFlag(d.enabled.Load())
}

func (d *Dispatcher) currentProto() ProtoFlag {
	return ProtoFlag(d.current.Load())
}

// Enabled returns the currently enabled protocol set.
func (d *Dispatcher) Enabled() ProtoFlag {
	return d.enabledProtos()
}

// Current returns the protocol the worker is attempting or holding,
// or ProtoNone when no protocol is active.
func (d *Dispatcher) Current() ProtoFlag {
	return d.currentProto()
}

// Running reports whether the background worker is alive.
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// ExternalIP returns the most recently observed external address, or nil
// if no gateway has reported one yet.
func (d *Dispatcher) ExternalIP() net.IP {
	if ip, ok := d.externalIP.Load().(net.IP); ok {
		return ip
	}
	return nil
}
