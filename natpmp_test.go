package mapport

import (
	"context"
	"testing"
	"time"
)

func TestNATPMPGatewayProto(t *testing.T) {
	if got := (NATPMPGateway{}).Proto(); got != ProtoNATPMP {
		t.Errorf("Proto() = %s, want NAT-PMP", got)
	}
}

// TestNATPMPProtoNames verifies translation to the lowercase protocol
// names the NAT-PMP client library expects.
func TestNATPMPProtoNames(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"TCP", "tcp", false},
		{"tcp", "tcp", false},
		{"UDP", "udp", false},
		{"udp", "udp", false},
		{"Tcp", "tcp", false},
		{"sctp", "", true},
		{"", "", true},
	}

	for _, c := range cases {
		got, err := natpmpProto(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("natpmpProto(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("natpmpProto(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("natpmpProto(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestNATPMPClientExpiredContext verifies discovery aborts instead of
// issuing requests with a non-positive timeout.
func TestNATPMPClientExpiredContext(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	if _, err := newNATPMPClient(ctx, nil); err == nil {
		t.Error("expected error for expired context")
	}
}
