// Package policy reads the enterprise policies and the parental
// controls settings.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ooni/dohrollout/internal/hujsonx"
	"github.com/ooni/dohrollout/internal/model"
)

// PolicyDNSOverHTTPS is the name of the policy controlling DoH.
const PolicyDNSOverHTTPS = "DNSOverHTTPS"

// document is the structure of a policies.json file.
type document struct {
	Policies map[string]json.RawMessage `json:"policies"`
}

// dohPolicy is the structure of the DNSOverHTTPS policy.
type dohPolicy struct {
	Enabled *bool `json:"Enabled"`
}

// FileOracle is a model.PolicyOracle reading the enterprise policies from
// a policies.json file. A missing file means that there are no policies.
type FileOracle struct {
	// Path is the OPTIONAL path of policies.json.
	Path string

	// ParentalControls tells whether parental controls are on.
	ParentalControls bool
}

var _ model.PolicyOracle = &FileOracle{}

// CheckEnterprisePolicy implements model.PolicyOracle. When there are
// policies but none of them concerns DoH, the administrator did not
// consider DoH, hence we keep it disabled.
func (fo *FileOracle) CheckEnterprisePolicy(ctx context.Context) (model.Verdict, error) {
	if fo.Path == "" {
		return model.VerdictNoPolicySet, nil
	}
	data, err := os.ReadFile(fo.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.VerdictNoPolicySet, nil
	}
	if err != nil {
		return "", err
	}
	return ParseEnterprisePolicy(data)
}

// ParseEnterprisePolicy computes the verdict for a policies.json document.
func ParseEnterprisePolicy(data []byte) (model.Verdict, error) {
	var doc document
	if err := hujsonx.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("policy: cannot parse policies: %w", err)
	}
	if len(doc.Policies) <= 0 {
		return model.VerdictNoPolicySet, nil
	}
	raw, found := doc.Policies[PolicyDNSOverHTTPS]
	if !found {
		return model.VerdictDisable, nil
	}
	var doh dohPolicy
	if err := json.Unmarshal(raw, &doh); err != nil {
		return "", fmt.Errorf("policy: cannot parse %s: %w", PolicyDNSOverHTTPS, err)
	}
	if doh.Enabled != nil && *doh.Enabled {
		return model.VerdictEnable, nil
	}
	return model.VerdictDisable, nil
}

// CheckParentalControls implements model.PolicyOracle.
func (fo *FileOracle) CheckParentalControls(ctx context.Context) (bool, error) {
	return fo.ParentalControls, nil
}
