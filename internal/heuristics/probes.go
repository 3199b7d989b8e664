package heuristics

import (
	"context"
	"slices"

	"github.com/ooni/dohrollout/internal/dnsprobe"
	"github.com/ooni/dohrollout/internal/model"
)

// probe is a single heuristic.
type probe struct {
	// name is the name used in the results.
	name string

	// fn runs the heuristic. When it returns an error, we
	// consider the probe as having returned VerdictDisable.
	fn func(ctx context.Context, e *Engine) (model.Verdict, error)
}

func (p *probe) run(ctx context.Context, e *Engine) model.Verdict {
	verdict, err := p.fn(ctx, e)
	if err != nil {
		e.logger.Warnf("heuristics: %s: %s", p.name, err.Error())
		metricProbeFailuresCount.WithLabelValues(p.name).Inc()
		return model.VerdictDisable
	}
	return verdict
}

// Names and preferences the probes use.
const (
	GlobalCanaryDomain      = "use-application-dns.net"
	ComcastProtectDomain    = "test.xfiprotectedbrowsing.com"
	ComcastParentDomain     = "test.xfiparentalcontrols.com"
	ZscalerCanaryDomain     = "sitereview.zscaler.com"
	ZscalerShiftAddress     = "213.152.228.242"
	PrefEnterpriseRoots     = "security.enterprise_roots.enabled"
	PrefEnterpriseRootsAuto = "security.enterprise_roots.auto-enabled"
)

// Probe names as they appear in Results.
const (
	ProbeSafeSearchGoogle  = "google"
	ProbeSafeSearchYouTube = "youtube"
	ProbeComcastProtect    = "comcastProtect"
	ProbeComcastParent     = "comcastParent"
	ProbeCanary            = "canary"
	ProbeZscalerCanary     = "zscalerCanary"
	ProbeModifiedRoots     = "modifiedRoots"
	ProbeBrowserParent     = "browserParent"
	ProbePolicy            = "policy"
	ProbeSplitHorizon      = "splitHorizon"
)

// safeSearchProvider describes a provider offering a safe-search
// variant of its domains that networks may enforce through DNS.
type safeSearchProvider struct {
	unfiltered []string
	safeSearch []string
}

var googleProvider = &safeSearchProvider{
	unfiltered: []string{
		"www.google.com",
		"google.com",
	},
	safeSearch: []string{
		"forcesafesearch.google.com",
	},
}

var youtubeProvider = &safeSearchProvider{
	unfiltered: []string{
		"www.youtube.com",
		"m.youtube.com",
		"youtubei.googleapis.com",
		"youtube.googleapis.com",
		"www.youtube-nocookie.com",
	},
	safeSearch: []string{
		"restrict.youtube.com",
		"restrictmoderate.youtube.com",
	},
}

func defaultProbes(splitHorizon bool) []*probe {
	probes := []*probe{{
		name: ProbeSafeSearchGoogle,
		fn:   safeSearchProbe(googleProvider),
	}, {
		name: ProbeSafeSearchYouTube,
		fn:   safeSearchProbe(youtubeProvider),
	}, {
		name: ProbeComcastProtect,
		fn:   contentFilterCanaryProbe(ComcastProtectDomain),
	}, {
		name: ProbeComcastParent,
		fn:   contentFilterCanaryProbe(ComcastParentDomain),
	}, {
		name: ProbeCanary,
		fn:   globalCanaryProbe,
	}, {
		name: ProbeZscalerCanary,
		fn:   zscalerCanaryProbe,
	}, {
		name: ProbeModifiedRoots,
		fn:   modifiedRootsProbe,
	}, {
		name: ProbeBrowserParent,
		fn:   parentalControlsProbe,
	}, {
		name: ProbePolicy,
		fn:   enterprisePolicyProbe,
	}}
	if splitHorizon {
		probes = append(probes, &probe{
			name: ProbeSplitHorizon,
			fn:   splitHorizonProbe,
		})
	}
	return probes
}

// lookupFlags are the flags used by every lookup: we must see what the
// network's resolver says, not what DoH or a cache say.
var lookupFlags = model.ResolveFlags{
	BypassFeature: true,
	BypassIPv6:    true,
	BypassCache:   true,
}

// lookup resolves domain and treats NXDOMAIN and empty answers as
// an empty list of addresses rather than as errors.
func (e *Engine) lookup(ctx context.Context, domain string) ([]string, error) {
	addrs, err := e.resolver.Resolve(ctx, domain, lookupFlags)
	switch {
	case err == nil:
		return addrs, nil
	case dnsprobe.IsNoSuchHost(err) || dnsprobe.IsNoAnswer(err):
		return nil, nil
	default:
		return nil, err
	}
}

func (e *Engine) lookupList(ctx context.Context, domains []string) ([]string, error) {
	var out []string
	for _, domain := range domains {
		addrs, err := e.lookup(ctx, domain)
		if err != nil {
			return nil, err
		}
		out = append(out, addrs...)
	}
	return out, nil
}

// safeSearchProbe disables DoH when any address of the safe-search
// domains also appears among the addresses of the unfiltered ones.
func safeSearchProbe(provider *safeSearchProvider) func(ctx context.Context, e *Engine) (model.Verdict, error) {
	return func(ctx context.Context, e *Engine) (model.Verdict, error) {
		unfiltered, err := e.lookupList(ctx, provider.unfiltered)
		if err != nil {
			return "", err
		}
		safeSearch, err := e.lookupList(ctx, provider.safeSearch)
		if err != nil {
			return "", err
		}
		for _, addr := range safeSearch {
			if slices.Contains(unfiltered, addr) {
				return model.VerdictDisable, nil
			}
		}
		return model.VerdictEnable, nil
	}
}

// contentFilterCanaryProbe disables DoH when the domain, which only
// exists for customers with content filtering, resolves.
func contentFilterCanaryProbe(domain string) func(ctx context.Context, e *Engine) (model.Verdict, error) {
	return func(ctx context.Context, e *Engine) (model.Verdict, error) {
		addrs, err := e.lookup(ctx, domain)
		if err != nil {
			return "", err
		}
		if len(addrs) > 0 {
			return model.VerdictDisable, nil
		}
		return model.VerdictEnable, nil
	}
}

// globalCanaryProbe disables DoH unless the global canary domain
// resolves. Networks signal that DoH should be off by answering
// NXDOMAIN, so here NXDOMAIN is not an error.
func globalCanaryProbe(ctx context.Context, e *Engine) (model.Verdict, error) {
	addrs, err := e.resolver.Resolve(ctx, GlobalCanaryDomain, lookupFlags)
	switch {
	case err == nil && len(addrs) > 0:
		return model.VerdictEnable, nil
	case err == nil || dnsprobe.IsNoSuchHost(err) || dnsprobe.IsNoAnswer(err):
		return model.VerdictDisable, nil
	default:
		return "", err
	}
}

// zscalerCanaryProbe disables DoH when the Zscaler site review domain
// resolves to the address used by Zscaler Shift.
func zscalerCanaryProbe(ctx context.Context, e *Engine) (model.Verdict, error) {
	addrs, err := e.lookup(ctx, ZscalerCanaryDomain)
	if err != nil {
		return "", err
	}
	if slices.Contains(addrs, ZscalerShiftAddress) {
		return model.VerdictDisable, nil
	}
	return model.VerdictEnable, nil
}

// modifiedRootsProbe disables DoH when enterprise roots were enabled
// manually rather than by the automatic MITM detection.
func modifiedRootsProbe(ctx context.Context, e *Engine) (model.Verdict, error) {
	enabled, err := e.prefs.GetBoolPref(PrefEnterpriseRoots, false)
	if err != nil {
		return "", err
	}
	autoEnabled, err := e.prefs.GetBoolPref(PrefEnterpriseRootsAuto, false)
	if err != nil {
		return "", err
	}
	if enabled && !autoEnabled {
		return model.VerdictDisable, nil
	}
	return model.VerdictEnable, nil
}

func parentalControlsProbe(ctx context.Context, e *Engine) (model.Verdict, error) {
	enabled, err := e.policy.CheckParentalControls(ctx)
	if err != nil {
		return "", err
	}
	if enabled {
		return model.VerdictDisable, nil
	}
	return model.VerdictEnable, nil
}

// enterprisePolicyProbe reports the oracle's verdict as is. Note that
// Aggregate treats VerdictNoPolicySet like VerdictEnable.
func enterprisePolicyProbe(ctx context.Context, e *Engine) (model.Verdict, error) {
	verdict, err := e.policy.CheckEnterprisePolicy(ctx)
	if err != nil {
		return "", err
	}
	switch verdict {
	case model.VerdictEnable, model.VerdictDisable, model.VerdictNoPolicySet:
		return verdict, nil
	default:
		return model.VerdictDisable, nil
	}
}

// splitHorizonProbe disables DoH when the system is configured with
// DNS search suffixes, which usually means names only resolvable
// by the local resolver.
func splitHorizonProbe(ctx context.Context, e *Engine) (model.Verdict, error) {
	suffixes, err := e.suffixes.DNSSuffixes(ctx)
	if err != nil {
		return "", err
	}
	if len(suffixes) > 0 {
		return model.VerdictDisable, nil
	}
	return model.VerdictEnable, nil
}
