package join

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/pending"
	"github.com/Smart123s/FastLogin/internal/profile"
	"github.com/Smart123s/FastLogin/internal/ratelimit"
	"github.com/Smart123s/FastLogin/internal/resolver"
)

// State is the terminal state a login flow decided on.
type State string

const (
	StateRejected      State = "rejected"
	StateFastPremium   State = "fast_premium"
	StateBypassCracked State = "bypass_cracked"
	StatePremium       State = "premium"
	StateNameChange    State = "name_change"
	StateCracked       State = "cracked"
)

type decision struct {
	state      State
	profile    *profile.StoredProfile
	premium    bool
	registered bool
}

func cracked(state State, p *profile.StoredProfile) decision {
	return decision{state: state, profile: p}
}

func premium(state State, p *profile.StoredProfile, registered bool) decision {
	return decision{state: state, profile: p, premium: true, registered: registered}
}

type flow struct {
	*Orchestrator

	username string
	source   LoginSource
	lease    *pending.Lease
}

// decide walks the login state machine. It reports false when the flow lost its pending
// entry while waiting on the identity service; such a result is dropped.
func (f *flow) decide(ctx context.Context) (decision, bool) {
	p := f.repository.LoadByName(ctx, f.username)

	// rows from before the floodgate column learn it from the current connection
	if p.Floodgate() == profile.FloodgateUnknown {
		p.SetFloodgate(profile.FloodgateOf(f.source.Bedrock()))
	}

	if f.bypassed(p) {
		return cracked(StateBypassCracked, p), true
	}

	if p.Premium() && p.Name() == f.username {
		return premium(StateFastPremium, p, true), true
	}

	if !f.options.lookupEnabled() {
		return cracked(StateCracked, p), true
	}

	if !f.limiter.TryAcquire(ratelimit.KeyFor(f.options.RateLimitScope, f.source.Address())) {
		f.metrics.RateLimitDenied()
		f.log.Warn("identity lookup rate limit reached, continuing cracked",
			zap.String("username", f.username))
		return cracked(StateCracked, p), true
	}

	found, err := f.resolver.FindProfile(ctx, f.username)

	if f.lease != nil && !f.registry.Active(context.WithoutCancel(ctx), f.lease) {
		f.metrics.StaleResult()
		f.log.Warn("discarding identity lookup, pending login expired",
			zap.String("username", f.username))
		return decision{}, false
	}

	switch {
	case errors.Is(err, resolver.ErrRateLimited):
		f.metrics.ResolverLookup("rate_limited")
		f.log.Warn("identity service rate limited, continuing cracked",
			zap.String("username", f.username))
		return cracked(StateCracked, p), true
	case err != nil:
		f.metrics.ResolverLookup("error")
		f.log.Error("identity lookup failed, continuing cracked",
			zap.String("username", f.username),
			zap.Bool("retryable", resolver.IsRetryable(err)),
			zap.Error(err))
		return cracked(StateCracked, p), true
	case found == nil:
		f.metrics.ResolverLookup("not_found")
		return cracked(StateCracked, p), true
	}

	f.metrics.ResolverLookup("found")
	return f.decidePremium(ctx, p, found), true
}

// bypassed reports the conditions that skip verification entirely.
func (f *flow) bypassed(p *profile.StoredProfile) bool {
	addr := f.source.Address().Unmap()
	for _, prefix := range f.options.BypassPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}

	if f.options.FloodgateBypass && f.source.Bedrock() {
		return true
	}

	// a known cracked account keeps its name, a premium owner must never take it over
	return p.IsSaved() && !p.Premium()
}

func (f *flow) decidePremium(ctx context.Context, p *profile.StoredProfile, found *resolver.Profile) decision {
	if id, ok := p.ID(); ok && id == found.ID {
		return premium(StatePremium, p, p.IsSaved())
	}

	if f.options.NameChangeCheck {
		owner, err := f.repository.LoadByUUID(ctx, found.ID)
		switch {
		case err == nil && owner.RowID() != p.RowID():
			f.log.Info("premium account changed its name",
				zap.String("old_name", owner.Name()),
				zap.String("new_name", f.username),
				zap.Stringer("uuid", found.ID))
			owner.SetName(f.username)
			return premium(StateNameChange, owner, false)
		case err == nil:
			return premium(StatePremium, p, p.IsSaved())
		case !errors.Is(err, profile.ErrProfileNotFound):
			f.log.Error("failed to look up profile by id",
				zap.Stringer("uuid", found.ID),
				zap.Error(err))
		}
	}

	if f.options.AutoRegister && !f.registeredInAuthPlugin(ctx) {
		f.log.Info("auto registering premium account",
			zap.String("username", f.username),
			zap.Stringer("uuid", found.ID))
		p.SetPremium(true)
		p.SetID(found.ID)
		return premium(StatePremium, p, false)
	}

	return cracked(StateCracked, p)
}

// registeredInAuthPlugin counts a failing hook as registered.
func (f *flow) registeredInAuthPlugin(ctx context.Context) bool {
	if f.authHook == nil {
		return false
	}

	registered, err := f.authHook.IsRegistered(ctx, f.username)
	if err != nil {
		f.log.Error("failed to query auth plugin",
			zap.String("username", f.username),
			zap.Error(err))
		return true
	}
	return registered
}
