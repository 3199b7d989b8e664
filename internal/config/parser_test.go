package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseConfig(t *testing.T) {
	config, err := ReadConfig("testdata/valid-config.json")
	if err != nil {
		t.Fatal(err)
	}
	expect := &Config{
		Version:               1,
		DebounceWindowSeconds: 10,
		PromptTimeoutSeconds:  DefaultPromptTimeoutSeconds,
		CaptivePortal: CaptivePortal{
			URL:                 "http://127.0.0.1:8080/success.txt",
			ExpectedBody:        DefaultCaptivePortalExpectedBody,
			PollIntervalSeconds: 30,
		},
		Network: Network{
			PollIntervalSeconds: DefaultNetworkPollSeconds,
		},
		Resolver: Resolver{
			Nameservers:    []string{"127.0.0.1:53"},
			TimeoutSeconds: DefaultResolverTimeoutSeconds,
		},
		ParentalControls: true,
	}
	if diff := cmp.Diff(expect, config, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Fatal(diff)
	}
	if config.Path() != "testdata/valid-config.json" {
		t.Fatal("unexpected path", config.Path())
	}
	if config.DebounceWindow() != 10*time.Second {
		t.Fatal("unexpected debounce window", config.DebounceWindow())
	}
	if config.CaptivePortal.PollInterval() != 30*time.Second {
		t.Fatal("unexpected poll interval", config.CaptivePortal.PollInterval())
	}
}

func TestParseConfigDefaults(t *testing.T) {
	config, err := ParseConfig([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if config.Version != ConfigVersion {
		t.Fatal("unexpected version", config.Version)
	}
	if config.Resolver.ResolvConf != DefaultResolverResolvConf {
		t.Fatal("unexpected resolv.conf", config.Resolver.ResolvConf)
	}
	if config.PromptTimeout() != 15*time.Minute {
		t.Fatal("unexpected prompt timeout", config.PromptTimeout())
	}
	if config.CaptivePortal.URL != DefaultCaptivePortalURL {
		t.Fatal("unexpected captive portal URL", config.CaptivePortal.URL)
	}
}

func TestParseConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect string
	}{{
		name:   "invalid json",
		input:  `{`,
		expect: "parsing json",
	}, {
		name:   "future version",
		input:  `{"_version": 2}`,
		expect: "unsupported config version",
	}, {
		name:   "negative debounce window",
		input:  `{"debounce_window_seconds": -1}`,
		expect: "debounce_window_seconds",
	}, {
		name:   "negative captive portal interval",
		input:  `{"captive_portal": {"poll_interval_seconds": -1}}`,
		expect: "captive_portal.poll_interval_seconds",
	}, {
		name:   "huge prompt timeout",
		input:  `{"prompt_timeout_seconds": 100000000}`,
		expect: "prompt_timeout_seconds",
	}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := ParseConfig([]byte(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.expect) {
				t.Fatal("unexpected err", err)
			}
			if config != nil {
				t.Fatal("expected nil config")
			}
		})
	}
}

func TestWrite(t *testing.T) {
	t.Run("without a path", func(t *testing.T) {
		config, err := ParseConfig([]byte(`{}`))
		if err != nil {
			t.Fatal(err)
		}
		if err := config.Write(); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("write and read back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		config, err := ParseConfig([]byte(`{"metrics_address": "127.0.0.1:9090"}`))
		if err != nil {
			t.Fatal(err)
		}
		config.SetPath(path)
		if err := config.Write(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatal(err)
		}
		again, err := ReadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(config, again, cmpopts.IgnoreUnexported(Config{})); diff != "" {
			t.Fatal(diff)
		}
	})
}
