// Package enrich annotates events with best-effort reverse DNS lookups.
package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a lookup so enrichment can never stall admission.
const DefaultTimeout = 2 * time.Second

// Resolver performs PTR lookups against the system resolvers. Lookups are
// advisory: any failure yields a nil hostname, never an error.
type Resolver struct {
	client  *dns.Client
	servers []string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Resolver using the nameservers from /etc/resolv.conf. When
// the file is unreadable it falls back to the local stub resolver.
func New(timeout time.Duration, logger *zap.Logger) *Resolver {
	servers := []string{"127.0.0.1:53"}
	if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil && len(conf.Servers) > 0 {
		servers = servers[:0]
		for _, s := range conf.Servers {
			servers = append(servers, s+":"+conf.Port)
		}
	}
	return NewWithServers(timeout, servers, logger)
}

// NewWithServers creates a Resolver querying the given servers, tried in
// order until one responds.
func NewWithServers(timeout time.Duration, servers []string, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		client:  &dns.Client{Timeout: timeout},
		servers: servers,
		timeout: timeout,
		logger:  logger,
	}
}

// Lookup resolves the hostname for an address, or nil when the address has
// no PTR record, the lookup fails, or the deadline passes.
func (r *Resolver) Lookup(ctx context.Context, address string) *string {
	rev, err := dns.ReverseAddr(address)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m := new(dns.Msg)
	m.SetQuestion(rev, dns.TypePTR)

	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			r.logger.Debug("ptr lookup failed",
				zap.String("address", address),
				zap.String("server", server),
				zap.Error(err))
			continue
		}
		for _, ans := range in.Answer {
			if ptr, ok := ans.(*dns.PTR); ok {
				hostname := strings.TrimSuffix(ptr.Ptr, ".")
				return &hostname
			}
		}
		// Authoritative empty answer; no point asking the next server.
		return nil
	}
	return nil
}
