package join

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Smart123s/FastLogin/internal/config"
	"github.com/Smart123s/FastLogin/internal/metrics"
	"github.com/Smart123s/FastLogin/internal/pending"
	"github.com/Smart123s/FastLogin/internal/profile"
	"github.com/Smart123s/FastLogin/internal/ratelimit"
	"github.com/Smart123s/FastLogin/internal/resolver"
	"github.com/Smart123s/FastLogin/internal/scheduler"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrLoginPending    = errors.New("login for this name is already in progress")
	ErrBusy            = errors.New("too many logins in progress")
)

// LoginSource is the connection a login attempt arrives on.
type LoginSource interface {
	Address() netip.Addr
	// Bedrock reports a player already authenticated by the floodgate transport.
	Bedrock() bool
}

// Continuation resumes the host's login once a decision is made.
type Continuation interface {
	StartCrackedSession(source LoginSource, p *profile.StoredProfile, username string)
	RequestPremiumLogin(source LoginSource, p *profile.StoredProfile, username string, alreadyRegistered bool)
}

// AuthHook asks the host's auth plugin whether a name already has a cracked password account.
type AuthHook interface {
	IsRegistered(ctx context.Context, name string) (bool, error)
}

type Options struct {
	NameChangeCheck bool
	AutoRegister    bool
	FloodgateBypass bool
	BypassPrefixes  []netip.Prefix
	FlowTimeout     time.Duration
	RateLimitScope  string
}

// NewOptions parses the login section of the configuration.
func NewOptions(login config.LoginConfig, scope string) (Options, error) {
	opts := Options{
		NameChangeCheck: login.NameChangeCheck,
		AutoRegister:    login.AutoRegister,
		FloodgateBypass: login.FloodgateBypass,
		FlowTimeout:     login.FlowTimeout,
		RateLimitScope:  scope,
	}

	for _, cidr := range login.BypassCIDRs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return Options{}, fmt.Errorf("invalid bypass range %q: %w", cidr, err)
		}
		opts.BypassPrefixes = append(opts.BypassPrefixes, prefix.Masked())
	}

	return opts, nil
}

func (o Options) lookupEnabled() bool {
	return o.NameChangeCheck || o.AutoRegister
}

type Params struct {
	fx.In

	Repository   profile.Repository
	Registry     pending.Registry
	Limiter      *ratelimit.Limiter
	Resolver     resolver.Resolver
	Scheduler    scheduler.Scheduler
	Continuation Continuation
	AuthHook     AuthHook `optional:"true"`
	Metrics      *metrics.Collector
	Options      Options
	Logger       *zap.Logger
}

// Orchestrator decides for every login whether it continues as premium or cracked.
type Orchestrator struct {
	repository   profile.Repository
	registry     pending.Registry
	limiter      *ratelimit.Limiter
	resolver     resolver.Resolver
	scheduler    scheduler.Scheduler
	continuation Continuation
	authHook     AuthHook
	metrics      *metrics.Collector
	options      Options
	log          *zap.Logger
}

func NewOrchestrator(p Params) *Orchestrator {
	return &Orchestrator{
		repository:   p.Repository,
		registry:     p.Registry,
		limiter:      p.Limiter,
		resolver:     p.Resolver,
		scheduler:    p.Scheduler,
		continuation: p.Continuation,
		authHook:     p.AuthHook,
		metrics:      p.Metrics,
		options:      p.Options,
		log:          p.Logger,
	}
}

// OnLogin claims username and hands the rest of the flow to the scheduler. It returns
// ErrLoginPending without touching storage or the identity service while another attempt for
// the same name is running.
func (o *Orchestrator) OnLogin(ctx context.Context, username string, source LoginSource) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrInvalidUsername
	}
	key := strings.ToLower(username)

	lease, err := o.registry.TryBegin(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, pending.ErrPending):
		o.metrics.PendingRejected()
		o.metrics.Decision(string(StateRejected))
		o.log.Info("rejecting login, same name already pending",
			zap.String("username", username),
			zap.Stringer("address", source.Address()))
		return ErrLoginPending
	case errors.Is(err, pending.ErrRegistryFull):
		o.metrics.Decision(string(StateRejected))
		o.log.Warn("rejecting login, pending registry full", zap.String("username", username))
		return ErrBusy
	default:
		o.log.Error("pending registry unavailable, continuing without dedupe",
			zap.String("username", username),
			zap.Error(err))
		lease = nil
	}

	err = o.scheduler.Go(func(taskCtx context.Context) {
		o.run(taskCtx, username, source, lease)
	})
	if err != nil {
		o.metrics.Decision(string(StateRejected))
		o.log.Warn("rejecting login, flow not accepted",
			zap.String("username", username),
			zap.Error(err))
		if lease != nil {
			if err := o.registry.End(context.WithoutCancel(ctx), lease); err != nil {
				o.log.Warn("failed to release pending login",
					zap.String("username", username),
					zap.Error(err))
			}
		}
		return ErrBusy
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, username string, source LoginSource, lease *pending.Lease) {
	done := o.metrics.StartFlow()
	defer done()

	if lease != nil {
		defer func() {
			if err := o.registry.End(context.WithoutCancel(ctx), lease); err != nil {
				o.log.Warn("failed to release pending login",
					zap.String("username", username),
					zap.Error(err))
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("login flow panicked",
				zap.String("username", username),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()

	// cancelled before it started, only the lease is released
	if err := ctx.Err(); err != nil {
		o.log.Warn("dropping login, shutting down",
			zap.String("username", username),
			zap.Error(err))
		return
	}

	if o.options.FlowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.options.FlowTimeout)
		defer cancel()
	}

	f := &flow{
		Orchestrator: o,
		username:     username,
		source:       source,
		lease:        lease,
	}

	d, ok := f.decide(ctx)
	if !ok {
		return
	}

	o.metrics.Decision(string(d.state))
	o.log.Info("login decided",
		zap.String("username", username),
		zap.Stringer("address", source.Address()),
		zap.String("state", string(d.state)))

	d.profile.SetLastIP(addressString(source.Address()))
	if d.premium {
		o.continuation.RequestPremiumLogin(source, d.profile, username, d.registered)
	} else {
		o.continuation.StartCrackedSession(source, d.profile, username)
	}

	// a failed save is logged by the store, the next login reconciles it
	_ = o.repository.Save(context.WithoutCancel(ctx), d.profile)
}

func addressString(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.Unmap().String()
}
