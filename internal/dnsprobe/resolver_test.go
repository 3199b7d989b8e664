package dnsprobe

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/miekg/dns"
	"github.com/ooni/dohrollout/internal/model"
)

// testServerAction is what the test server does for a given name.
type testServerAction struct {
	rcode int
	a     []string
	aaaa  []string
}

// startTestServer starts a DNS-over-UDP server on the loopback
// interface that replies according to the given actions. Names
// without an action get NXDOMAIN.
func startTestServer(t *testing.T, actions map[string]*testServerAction) (string, *atomic.Int64) {
	pconn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	queries := &atomic.Int64{}
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, query *dns.Msg) {
		queries.Add(1)
		reply := new(dns.Msg)
		question := query.Question[0]
		action, found := actions[question.Name]
		if !found {
			reply.SetRcode(query, dns.RcodeNameError)
			w.WriteMsg(reply)
			return
		}
		reply.SetRcode(query, action.rcode)
		if question.Qtype == dns.TypeA {
			for _, ip := range action.a {
				reply.Answer = append(reply.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: question.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP(ip),
				})
			}
		}
		if question.Qtype == dns.TypeAAAA {
			for _, ip := range action.aaaa {
				reply.Answer = append(reply.Answer, &dns.AAAA{
					Hdr:  dns.RR_Header{Name: question.Name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 60},
					AAAA: net.ParseIP(ip),
				})
			}
		}
		w.WriteMsg(reply)
	})
	server := &dns.Server{PacketConn: pconn, Handler: handler}
	go server.ActivateAndServe()
	t.Cleanup(func() {
		server.Shutdown()
	})
	return pconn.LocalAddr().String(), queries
}

var allFlags = model.ResolveFlags{BypassFeature: true, BypassIPv6: true, BypassCache: true}

func TestResolver(t *testing.T) {
	actions := map[string]*testServerAction{
		"www.google.com.":             {rcode: dns.RcodeSuccess, a: []string{"142.250.180.4"}, aaaa: []string{"2a00:1450:4002:402::2004"}},
		"forcesafesearch.google.com.": {rcode: dns.RcodeSuccess, a: []string{"216.239.38.120"}},
		"refused.example.com.":        {rcode: dns.RcodeRefused},
		"servfail.example.com.":       {rcode: dns.RcodeServerFailure},
		"empty.example.com.":          {rcode: dns.RcodeSuccess},
		"xn--bcher-kva.example.":      {rcode: dns.RcodeSuccess, a: []string{"10.0.0.1"}},
		"only-aaaa.example.com.":      {rcode: dns.RcodeSuccess, aaaa: []string{"2001:db8::1"}},
		"notimp.example.com.":         {rcode: dns.RcodeNotImplemented},
	}
	address, queries := startTestServer(t, actions)

	newResolver := func() *Resolver {
		return &Resolver{Nameservers: []string{address}, Timeout: 2 * time.Second}
	}

	type testcase struct {
		name       string
		hostname   string
		flags      model.ResolveFlags
		expect     []string
		expectErr  error
		noSuchHost bool
	}

	testcases := []testcase{{
		name:     "with A only",
		hostname: "www.google.com",
		flags:    allFlags,
		expect:   []string{"142.250.180.4"},
	}, {
		name:     "with A and AAAA",
		hostname: "www.google.com",
		flags:    model.ResolveFlags{BypassFeature: true, BypassCache: true},
		expect:   []string{"142.250.180.4", "2a00:1450:4002:402::2004"},
	}, {
		name:       "with NXDOMAIN",
		hostname:   "nonexistent.example.com",
		flags:      allFlags,
		expectErr:  ErrOODNSNoSuchHost,
		noSuchHost: true,
	}, {
		name:      "with REFUSED",
		hostname:  "refused.example.com",
		flags:     allFlags,
		expectErr: ErrOODNSRefused,
	}, {
		name:      "with SERVFAIL",
		hostname:  "servfail.example.com",
		flags:     allFlags,
		expectErr: ErrOODNSServfail,
	}, {
		name:      "with another rcode",
		hostname:  "notimp.example.com",
		flags:     allFlags,
		expectErr: ErrOODNSMisbehaving,
	}, {
		name:      "with empty reply",
		hostname:  "empty.example.com",
		flags:     allFlags,
		expectErr: ErrOODNSNoAnswer,
	}, {
		name:     "with only AAAA records",
		hostname: "only-aaaa.example.com",
		flags:    model.ResolveFlags{BypassFeature: true, BypassCache: true},
		expect:   []string{"2001:db8::1"},
	}, {
		name:     "with IDNA",
		hostname: "bücher.example",
		flags:    allFlags,
		expect:   []string{"10.0.0.1"},
	}, {
		name:     "with an IP address",
		hostname: "8.8.8.8",
		flags:    allFlags,
		expect:   []string{"8.8.8.8"},
	}}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			addrs, err := newResolver().Resolve(context.Background(), tc.hostname, tc.flags)
			if !errors.Is(err, tc.expectErr) {
				t.Fatal("unexpected error", err)
			}
			if IsNoSuchHost(err) != tc.noSuchHost {
				t.Fatal("unexpected IsNoSuchHost result")
			}
			if diff := cmp.Diff(tc.expect, addrs); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	t.Run("the cache is used unless bypassed", func(t *testing.T) {
		reso := newResolver()
		flags := model.ResolveFlags{BypassFeature: true, BypassIPv6: true}
		if _, err := reso.Resolve(context.Background(), "www.google.com", flags); err != nil {
			t.Fatal(err)
		}
		before := queries.Load()
		if _, err := reso.Resolve(context.Background(), "www.google.com", flags); err != nil {
			t.Fatal(err)
		}
		if queries.Load() != before {
			t.Fatal("expected a cache hit")
		}
		if _, err := reso.Resolve(context.Background(), "www.google.com", allFlags); err != nil {
			t.Fatal(err)
		}
		if queries.Load() != before+1 {
			t.Fatal("expected the cache to be bypassed")
		}
	})
}

func TestResolverFallsBackToTheNextServer(t *testing.T) {
	address, _ := startTestServer(t, map[string]*testServerAction{
		"www.google.com.":             {rcode: dns.RcodeSuccess, a: []string{"142.250.180.4"}},
	})
	// grab a port and release it so nobody is listening there
	pconn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dead := pconn.LocalAddr().String()
	pconn.Close()
	reso := &Resolver{Nameservers: []string{dead, address}, Timeout: 500 * time.Millisecond}
	addrs, err := reso.Resolve(context.Background(), "www.google.com", allFlags)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"142.250.180.4"}, addrs); diff != "" {
		t.Fatal(diff)
	}
}

func TestResolverWithResolvConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	content := "nameserver 127.0.0.1\nsearch corp.example.com. lan\noptions ndots:1\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	reso := &Resolver{ResolvConf: path}

	t.Run("nameservers", func(t *testing.T) {
		servers, err := reso.nameservers()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"127.0.0.1:53"}, servers); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("DNSSuffixes", func(t *testing.T) {
		suffixes, err := reso.DNSSuffixes(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"corp.example.com", "lan"}, suffixes); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("missing resolv.conf", func(t *testing.T) {
		reso := &Resolver{ResolvConf: filepath.Join(t.TempDir(), "nonexistent")}
		if _, err := reso.Resolve(context.Background(), "www.google.com", allFlags); err == nil {
			t.Fatal("expected an error")
		}
		if _, err := reso.DNSSuffixes(context.Background()); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestIsNoSuchHost(t *testing.T) {
	if IsNoSuchHost(nil) {
		t.Fatal("nil is not NXDOMAIN")
	}
	if !IsNoSuchHost(&net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}) {
		t.Fatal("expected stdlib NXDOMAIN to be recognized")
	}
	if IsNoSuchHost(ErrOODNSRefused) {
		t.Fatal("refused is not NXDOMAIN")
	}
}
