package dnsprobe

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// We use these strings to string-match errors in the standard library
// and map such errors to our own errors.
const (
	DNSNoSuchHostSuffix        = "no such host"
	DNSServerMisbehavingSuffix = "server misbehaving"
	DNSNoAnswerSuffix          = "no answer from DNS server"
)

// These errors are returned by Resolver. Their suffix matches the
// equivalent unexported errors used by the Go standard library.
var (
	ErrOODNSNoSuchHost  = fmt.Errorf("dnsprobe: %s", DNSNoSuchHostSuffix)
	ErrOODNSRefused     = errors.New("dnsprobe: refused")
	ErrOODNSServfail    = errors.New("dnsprobe: servfail")
	ErrOODNSMisbehaving = fmt.Errorf("dnsprobe: %s", DNSServerMisbehavingSuffix)
	ErrOODNSNoAnswer    = fmt.Errorf("dnsprobe: %s", DNSNoAnswerSuffix)
)

// ErrNoNameservers indicates that there are no nameservers to query.
var ErrNoNameservers = errors.New("dnsprobe: no configured nameservers")

// IsNoSuchHost returns whether err means that the name does not exist. We
// also recognize the errors returned by the standard library so that any
// model.DNSResolver wrapping net.Resolver works with the probes.
func IsNoSuchHost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOODNSNoSuchHost) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return true
	}
	return strings.HasSuffix(err.Error(), DNSNoSuchHostSuffix)
}

// IsNoAnswer returns whether err means that the name exists but
// the reply did not contain any address.
func IsNoAnswer(err error) bool {
	return err != nil && (errors.Is(err, ErrOODNSNoAnswer) ||
		strings.HasSuffix(err.Error(), DNSNoAnswerSuffix))
}
