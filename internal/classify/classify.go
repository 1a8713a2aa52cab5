// Package classify decides whether a callback source address is suspicious.
//
// Classification is a pure computation over static range tables: no network
// or database access, so verdicts are deterministic.
package classify

import (
	"net/netip"
)

// Suspicion reasons.
const (
	ReasonPrivateRange  = "private-range"
	ReasonCloudMetadata = "cloud-metadata"
	ReasonUnparseable   = "unparseable-address"
)

// Verdict is the result of classifying a source address.
type Verdict struct {
	Suspicious bool
	Reason     string
}

// Well-known cloud metadata endpoints (AWS/ECS, GCP, Alibaba). Checked
// before the range tables so a metadata hit is not reported as the broader
// link-local range it sits inside.
var metadataAddrs = []netip.Addr{
	netip.MustParseAddr("169.254.169.254"),
	netip.MustParseAddr("169.254.170.2"),
	netip.MustParseAddr("100.100.100.200"),
	netip.MustParseAddr("fd00:ec2::254"),
}

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// Classify maps a source address to a suspicion verdict. A malformed
// address fails safe: it is reported suspicious rather than dropped.
func Classify(address string) Verdict {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return Verdict{Suspicious: true, Reason: ReasonUnparseable}
	}

	// Normalise IPv4-mapped IPv6 so ::ffff:10.0.0.1 matches the v4 tables.
	addr = addr.Unmap()

	for _, m := range metadataAddrs {
		if addr == m {
			return Verdict{Suspicious: true, Reason: ReasonCloudMetadata}
		}
	}

	for _, p := range privateRanges {
		if p.Contains(addr) {
			return Verdict{Suspicious: true, Reason: ReasonPrivateRange}
		}
	}

	return Verdict{}
}
