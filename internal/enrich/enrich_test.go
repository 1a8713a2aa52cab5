package enrich

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

func startDNSServer(t *testing.T, handler dns.Handler) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestLookupReturnsHostname(t *testing.T) {
	addr := startDNSServer(t, dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		if len(req.Question) == 1 && req.Question[0].Qtype == dns.TypePTR {
			m.Answer = append(m.Answer, &dns.PTR{
				Hdr: dns.RR_Header{
					Name:   req.Question[0].Name,
					Rrtype: dns.TypePTR,
					Class:  dns.ClassINET,
					Ttl:    60,
				},
				Ptr: "canary-test.example.",
			})
		}
		_ = w.WriteMsg(m)
	}))

	r := NewWithServers(time.Second, []string{addr}, zap.NewNop())

	got := r.Lookup(context.Background(), "192.0.2.10")
	if got == nil {
		t.Fatal("Lookup returned nil, want hostname")
	}
	if *got != "canary-test.example" {
		t.Errorf("hostname = %q, want canary-test.example", *got)
	}
}

func TestLookupNoPTRRecord(t *testing.T) {
	addr := startDNSServer(t, dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, dns.RcodeNameError)
		_ = w.WriteMsg(m)
	}))

	r := NewWithServers(time.Second, []string{addr}, zap.NewNop())

	if got := r.Lookup(context.Background(), "192.0.2.10"); got != nil {
		t.Errorf("Lookup = %q, want nil", *got)
	}
}

func TestLookupTimeout(t *testing.T) {
	// Server that never answers; the bounded client must give up.
	addr := startDNSServer(t, dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {}))

	r := NewWithServers(200*time.Millisecond, []string{addr}, zap.NewNop())

	start := time.Now()
	got := r.Lookup(context.Background(), "192.0.2.10")
	elapsed := time.Since(start)

	if got != nil {
		t.Errorf("Lookup = %q, want nil on timeout", *got)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Lookup took %v, timeout not enforced", elapsed)
	}
}

func TestLookupInvalidAddress(t *testing.T) {
	r := NewWithServers(time.Second, []string{"127.0.0.1:1"}, zap.NewNop())

	if got := r.Lookup(context.Background(), "not-an-ip"); got != nil {
		t.Errorf("Lookup = %q, want nil for invalid address", *got)
	}
}
