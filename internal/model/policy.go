package model

import "context"

// PolicyOracle returns enterprise policy and parental control information.
type PolicyOracle interface {
	// CheckEnterprisePolicy returns VerdictEnable, VerdictDisable
	// or VerdictNoPolicySet.
	CheckEnterprisePolicy(ctx context.Context) (Verdict, error)

	// CheckParentalControls returns whether parental controls are on.
	CheckParentalControls(ctx context.Context) (bool, error)
}
