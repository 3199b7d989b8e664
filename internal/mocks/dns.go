package mocks

import (
	"context"

	"github.com/ooni/dohrollout/internal/model"
)

// DNSResolver is a mockable model.DNSResolver.
type DNSResolver struct {
	MockResolve func(ctx context.Context, hostname string, flags model.ResolveFlags) ([]string, error)
}

var _ model.DNSResolver = &DNSResolver{}

// Resolve calls MockResolve.
func (r *DNSResolver) Resolve(ctx context.Context, hostname string, flags model.ResolveFlags) ([]string, error) {
	return r.MockResolve(ctx, hostname, flags)
}

// DNSSuffixSource is a mockable model.DNSSuffixSource.
type DNSSuffixSource struct {
	MockDNSSuffixes func(ctx context.Context) ([]string, error)
}

var _ model.DNSSuffixSource = &DNSSuffixSource{}

// DNSSuffixes calls MockDNSSuffixes.
func (s *DNSSuffixSource) DNSSuffixes(ctx context.Context) ([]string, error) {
	return s.MockDNSSuffixes(ctx)
}
