// Package model contains the shared interfaces and data structures.
//
// # Criteria for adding a type to this package
//
// This package should contain two types:
//
// 1. interfaces describing the collaborators of the rollout engine
// (preference store, DNS resolution, policy oracle, captive portal,
// network notifier, prompt surface, telemetry sink), so that we can
// replace them with mocks when unit testing;
//
// 2. pieces of data shared across packages (e.g., the rollout state
// and the heuristics verdicts).
//
// In general, this package should not contain logic, unless
// this logic is strictly related to data structures.
//
// # Content of this package
//
// - captiveportal.go: captive portal state and source;
//
// - dns.go: resolving hostnames bypassing DoH;
//
// - keyvaluestore.go: key-value store holding the persisted flags;
//
// - logger.go: apex/log compatible logger;
//
// - network.go: network change notifications;
//
// - policy.go: enterprise policies and parental controls;
//
// - prefs.go: the typed preference store;
//
// - prompt.go: the doorhanger prompt surface;
//
// - rollout.go: rollout states, verdicts, and TRR modes;
//
// - telemetry.go: the telemetry sink.
package model
