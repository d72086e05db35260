package resolver

// Options toggles which relationships the walker follows and how it reacts to problems.
type Options struct {
	// WithRecommends pulls recommended modules into the closure automatically.
	WithRecommends bool
	// WithSuggests pulls suggestions of user-requested modules into the closure.
	WithSuggests bool
	// WithAllSuggests follows suggestions of every selected module.
	WithAllSuggests bool
	// WithoutProviderChoice fails with TooManyProvidersError instead of asking the caller
	// to pick between several providers of a capability.
	WithoutProviderChoice bool
	// ProceedWithInconsistencies records conflicting pairs instead of failing, for diagnostics.
	ProceedWithInconsistencies bool
	// WithoutEnforceConsistency skips the final consistency scan of the closure.
	WithoutEnforceConsistency bool
	// IgnoreAmbiguousProviders leaves dependencies with several providers unresolved.
	IgnoreAmbiguousProviders bool
}

// DefaultOptions is what an interactive install uses.
func DefaultOptions() Options {
	return Options{WithRecommends: true}
}

// DependsOnlyOptions is used for trial resolutions of recommendation candidates.
func DependsOnlyOptions() Options {
	return Options{WithoutProviderChoice: true}
}

// ConflictOptions is used to collect every conflict in a module set without failing.
func ConflictOptions() Options {
	return Options{
		ProceedWithInconsistencies: true,
		WithoutEnforceConsistency:  true,
		IgnoreAmbiguousProviders:   true,
	}
}
