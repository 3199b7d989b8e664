package model

import "context"

// ResolveFlags controls how DNSResolver.Resolve performs a lookup.
type ResolveFlags struct {
	// BypassFeature resolves without using DoH.
	BypassFeature bool

	// BypassIPv6 only queries for IPv4 addresses.
	BypassIPv6 bool

	// BypassCache does not use any cached answer.
	BypassCache bool
}

// DNSResolver is the DNS resolution capability used by the probes.
type DNSResolver interface {
	// Resolve returns the addresses of hostname. When the name does not
	// exist, the error is such that we can recognize it as NXDOMAIN.
	Resolve(ctx context.Context, hostname string, flags ResolveFlags) ([]string, error)
}

// DNSSuffixSource returns the DNS search suffixes configured on the system.
type DNSSuffixSource interface {
	DNSSuffixes(ctx context.Context) ([]string, error)
}
