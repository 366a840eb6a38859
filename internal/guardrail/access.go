package guardrail

import (
	"context"
	"fmt"
)

// AccessChecker decides whether a user may act on behalf of a business.
type AccessChecker interface {
	CheckAccess(ctx context.Context, businessID, userID string) (bool, error)
}

// AllowAll grants every request.
type AllowAll struct{}

// CheckAccess always allows.
func (AllowAll) CheckAccess(context.Context, string, string) (bool, error) {
	return true, nil
}

// Wildcard grants every user, including anonymous callers, access to a business.
const Wildcard = "*"

// Allowlist grants access from a static business -> users table.
type Allowlist struct {
	grants map[string]map[string]struct{}
}

// NewAllowlist builds an allowlist. Businesses absent from grants are denied.
func NewAllowlist(grants map[string][]string) *Allowlist {
	a := &Allowlist{grants: make(map[string]map[string]struct{}, len(grants))}
	for business, users := range grants {
		set := make(map[string]struct{}, len(users))
		for _, u := range users {
			set[u] = struct{}{}
		}
		a.grants[business] = set
	}
	return a
}

// CheckAccess reports whether userID is granted businessID.
func (a *Allowlist) CheckAccess(_ context.Context, businessID, userID string) (bool, error) {
	users, ok := a.grants[businessID]
	if !ok {
		return false, nil
	}
	if _, ok := users[Wildcard]; ok {
		return true, nil
	}
	if userID == "" {
		return false, nil
	}
	_, ok = users[userID]
	return ok, nil
}

// AccessGate validates the business identity and delegates entitlement checks.
type AccessGate struct {
	checker AccessChecker
	require bool
}

// NewAccessGate creates an access gate. A nil checker allows all.
func NewAccessGate(checker AccessChecker, requireBusiness bool) *AccessGate {
	if checker == nil {
		checker = AllowAll{}
	}
	return &AccessGate{checker: checker, require: requireBusiness}
}

// Check returns an error only when the checker itself fails.
func (g *AccessGate) Check(ctx context.Context, businessID, userID string) (Result, error) {
	result := NewResult()

	if businessID == "" {
		if g.require {
			result.AddViolation(ViolationInvalidBusiness, SeverityCritical, "Business ID is required", nil)
		}
		return result, nil
	}

	allowed, err := g.checker.CheckAccess(ctx, businessID, userID)
	if err != nil {
		return result, fmt.Errorf("access check for business %s: %w", businessID, err)
	}
	if !allowed {
		result.AddViolation(ViolationAccessDenied, SeverityCritical,
			"User does not have access to this business",
			map[string]any{"business_id": businessID})
	}
	return result, nil
}
