package config

import "time"

// CaptivePortal settings
type CaptivePortal struct {
	URL                 string `json:"url"`
	ExpectedBody        string `json:"expected_body"`
	PollIntervalSeconds int64  `json:"poll_interval_seconds"`
}

func (cp *CaptivePortal) defaults() {
	if cp.URL == "" {
		cp.URL = DefaultCaptivePortalURL
	}
	if cp.ExpectedBody == "" {
		cp.ExpectedBody = DefaultCaptivePortalExpectedBody
	}
	if cp.PollIntervalSeconds == 0 {
		cp.PollIntervalSeconds = DefaultCaptivePortalPollSeconds
	}
}

// PollInterval returns the interval between captive portal checks.
func (cp *CaptivePortal) PollInterval() time.Duration {
	return time.Duration(cp.PollIntervalSeconds) * time.Second
}

// Network settings
type Network struct {
	PollIntervalSeconds int64 `json:"poll_interval_seconds"`
}

// PollInterval returns the interval between interface scans.
func (n *Network) PollInterval() time.Duration {
	return time.Duration(n.PollIntervalSeconds) * time.Second
}

// Resolver settings. When Nameservers is empty, we read the
// nameservers from ResolvConf.
type Resolver struct {
	Nameservers    []string `json:"nameservers"`
	TimeoutSeconds int64    `json:"timeout_seconds"`
	ResolvConf     string   `json:"resolv_conf"`
}

// Timeout returns the per-query timeout.
func (r *Resolver) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}
