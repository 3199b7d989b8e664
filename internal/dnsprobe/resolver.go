// Package dnsprobe resolves domain names using plain DNS and the system
// nameservers, never going through DoH. The heuristics use it to observe
// what the network's resolver answers.
package dnsprobe

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/ooni/dohrollout/internal/model"
	"golang.org/x/net/idna"
)

// DefaultResolvConf is the default resolv.conf path.
const DefaultResolvConf = "/etc/resolv.conf"

// Resolver implements model.DNSResolver. The zero value is ready
// to use and reads the nameservers from DefaultResolvConf.
type Resolver struct {
	// Logger is the OPTIONAL logger.
	Logger model.Logger

	// Nameservers is the OPTIONAL list of nameservers ("host:port"
	// or "host"). When empty, we read ResolvConf.
	Nameservers []string

	// ResolvConf is the OPTIONAL resolv.conf path.
	ResolvConf string

	// Timeout is the OPTIONAL per-query timeout.
	Timeout time.Duration

	// TimeNow is the OPTIONAL function returning the current time.
	TimeNow func() time.Time

	cache map[string]*cacheEntry
	mu    sync.Mutex
}

type cacheEntry struct {
	addrs  []string
	expire time.Time
}

var (
	_ model.DNSResolver     = &Resolver{}
	_ model.DNSSuffixSource = &Resolver{}
)

// maxCacheTTL bounds the lifetime of a cache entry.
const maxCacheTTL = 5 * time.Minute

func (r *Resolver) logger() model.Logger {
	return model.ValidLoggerOrDefault(r.Logger)
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return 5 * time.Second
}

func (r *Resolver) now() time.Time {
	if r.TimeNow != nil {
		return r.TimeNow()
	}
	return time.Now()
}

func (r *Resolver) resolvConf() string {
	if r.ResolvConf != "" {
		return r.ResolvConf
	}
	return DefaultResolvConf
}

func (r *Resolver) nameservers() ([]string, error) {
	servers := r.Nameservers
	if len(servers) <= 0 {
		cfg, err := dns.ClientConfigFromFile(r.resolvConf())
		if err != nil {
			return nil, err
		}
		for _, server := range cfg.Servers {
			servers = append(servers, net.JoinHostPort(server, cfg.Port))
		}
	}
	var out []string
	for _, server := range servers {
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		out = append(out, server)
	}
	if len(out) <= 0 {
		return nil, ErrNoNameservers
	}
	return out, nil
}

// Resolve implements model.DNSResolver. This resolver never uses DoH, hence
// flags.BypassFeature is always honored.
func (r *Resolver) Resolve(ctx context.Context, hostname string, flags model.ResolveFlags) ([]string, error) {
	host, err := idna.ToASCII(hostname)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(host) != nil {
		return []string{host}, nil
	}
	key := cacheKey(host, flags)
	if !flags.BypassCache {
		if addrs := r.cacheGet(key); len(addrs) > 0 {
			r.logger().Debugf("resolve %s... %v (cached)", host, addrs)
			return addrs, nil
		}
	}
	start := time.Now()
	addrs, ttl, err := r.lookup(ctx, host, flags)
	elapsed := time.Since(start)
	if err != nil {
		r.logger().Debugf("resolve %s... %s in %s", host, err.Error(), elapsed)
		return nil, err
	}
	r.logger().Debugf("resolve %s... %v in %s", host, addrs, elapsed)
	r.cachePut(key, addrs, ttl)
	return addrs, nil
}

func cacheKey(host string, flags model.ResolveFlags) string {
	if flags.BypassIPv6 {
		return host + "/A"
	}
	return host + "/A+AAAA"
}

func (r *Resolver) cacheGet(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, found := r.cache[key]
	if !found || r.now().After(entry.expire) {
		return nil
	}
	return append([]string{}, entry.addrs...)
}

func (r *Resolver) cachePut(key string, addrs []string, ttl time.Duration) {
	if ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}
	if ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		r.cache = make(map[string]*cacheEntry)
	}
	r.cache[key] = &cacheEntry{addrs: append([]string{}, addrs...), expire: r.now().Add(ttl)}
}

// lookup queries A and, unless the flags say otherwise, AAAA.
func (r *Resolver) lookup(ctx context.Context, host string, flags model.ResolveFlags) ([]string, time.Duration, error) {
	qtypes := []uint16{dns.TypeA}
	if !flags.BypassIPv6 {
		qtypes = append(qtypes, dns.TypeAAAA)
	}
	var (
		addrs    []string
		firstErr error
		minTTL   = maxCacheTTL
	)
	for _, qtype := range qtypes {
		reply, err := r.exchange(ctx, host, qtype)
		if err == nil {
			var ttl time.Duration
			var found []string
			found, ttl, err = decodeLookupHost(qtype, reply)
			if err == nil {
				addrs = append(addrs, found...)
				if ttl < minTTL {
					minTTL = ttl
				}
				continue
			}
		}
		if IsNoSuchHost(err) {
			// NXDOMAIN applies to the name regardless of the query type
			return nil, 0, err
		}
		if firstErr == nil || IsNoAnswer(firstErr) {
			firstErr = err
		}
	}
	if len(addrs) > 0 {
		return addrs, minTTL, nil
	}
	return nil, 0, firstErr
}

// exchange sends the query to each nameserver until one replies.
func (r *Resolver) exchange(ctx context.Context, host string, qtype uint16) (*dns.Msg, error) {
	servers, err := r.nameservers()
	if err != nil {
		return nil, err
	}
	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(host), qtype)
	query.RecursionDesired = true
	var errs []error
	for _, server := range servers {
		reply, err := r.exchangeWithServer(ctx, query, server)
		if err == nil {
			return reply, nil
		}
		r.logger().Debugf("dnsprobe: %s via %s: %s", host, server, err.Error())
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func (r *Resolver) exchangeWithServer(ctx context.Context, query *dns.Msg, server string) (*dns.Msg, error) {
	clnt := &dns.Client{Net: "udp", Timeout: r.timeout()}
	reply, _, err := clnt.ExchangeContext(ctx, query, server)
	if err != nil {
		return nil, err
	}
	if reply.Truncated {
		clnt.Net = "tcp"
		reply, _, err = clnt.ExchangeContext(ctx, query, server)
		if err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// decodeLookupHost maps the rcode to errors and extracts the addresses.
func decodeLookupHost(qtype uint16, reply *dns.Msg) ([]string, time.Duration, error) {
	switch reply.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, 0, ErrOODNSNoSuchHost
	case dns.RcodeRefused:
		return nil, 0, ErrOODNSRefused
	case dns.RcodeServerFailure:
		return nil, 0, ErrOODNSServfail
	default:
		return nil, 0, ErrOODNSMisbehaving
	}
	var (
		addrs  []string
		minTTL = maxCacheTTL
	)
	for _, answer := range reply.Answer {
		var ip net.IP
		switch qtype {
		case dns.TypeA:
			if rra, ok := answer.(*dns.A); ok {
				ip = rra.A
			}
		case dns.TypeAAAA:
			if rra, ok := answer.(*dns.AAAA); ok {
				ip = rra.AAAA
			}
		}
		if ip == nil {
			continue
		}
		addrs = append(addrs, ip.String())
		if ttl := time.Duration(answer.Header().Ttl) * time.Second; ttl < minTTL {
			minTTL = ttl
		}
	}
	if len(addrs) <= 0 {
		return nil, 0, ErrOODNSNoAnswer
	}
	return addrs, minTTL, nil
}

// DNSSuffixes implements model.DNSSuffixSource using the search
// domains configured in resolv.conf.
func (r *Resolver) DNSSuffixes(ctx context.Context) ([]string, error) {
	cfg, err := dns.ClientConfigFromFile(r.resolvConf())
	if err != nil {
		return nil, err
	}
	var out []string
	for _, suffix := range cfg.Search {
		suffix = strings.Trim(suffix, ".")
		if suffix != "" {
			out = append(out, suffix)
		}
	}
	return out, nil
}
