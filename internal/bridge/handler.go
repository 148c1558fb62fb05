package bridge

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Smart123s/FastLogin/internal/auth"
	"github.com/Smart123s/FastLogin/internal/join"
	"github.com/Smart123s/FastLogin/internal/profile"
)

// LoginHandler starts a login flow.
type LoginHandler interface {
	OnLogin(ctx context.Context, username string, source join.LoginSource) error
}

// source is the login source of one bridge call. The decision of its flow is delivered back
// to the waiting call through the buffered channel.
type source struct {
	addr      netip.Addr
	bedrock   bool
	decisions chan *Result
}

func newSource(addr netip.Addr, bedrock bool) *source {
	return &source{
		addr:      addr,
		bedrock:   bedrock,
		decisions: make(chan *Result, 1),
	}
}

func (s *source) Address() netip.Addr {
	return s.addr
}

func (s *source) Bedrock() bool {
	return s.bedrock
}

func (s *source) deliver(result *Result) bool {
	select {
	case s.decisions <- result:
		return true
	default:
		return false
	}
}

// Router is the Continuation for bridge calls. It hands the decision to the call that
// started the flow.
type Router struct {
	log *zap.Logger
}

var _ join.Continuation = (*Router)(nil)

func NewRouter(log *zap.Logger) *Router {
	return &Router{log: log}
}

func (r *Router) StartCrackedSession(src join.LoginSource, p *profile.StoredProfile, username string) {
	r.route(src, username, &Result{
		Decision: DecisionCracked,
		Name:     p.Name(),
	})
}

func (r *Router) RequestPremiumLogin(src join.LoginSource, p *profile.StoredProfile, username string, alreadyRegistered bool) {
	snapshot := p.Snapshot()
	result := &Result{
		Decision:   DecisionPremium,
		Registered: alreadyRegistered,
		Name:       snapshot.Name,
	}
	if snapshot.HasID {
		result.UUID = snapshot.ID.String()
	}
	r.route(src, username, result)
}

func (r *Router) route(src join.LoginSource, username string, result *Result) {
	s, ok := src.(*source)
	if !ok {
		r.log.Error("decision for a login source not started by the bridge",
			zap.String("username", username))
		return
	}
	if !s.deliver(result) {
		r.log.Warn("dropping duplicate decision", zap.String("username", username))
	}
}

type Handler struct {
	logins          LoginHandler
	decisionTimeout time.Duration
	log             *zap.Logger
}

var _ LoginBridgeServer = (*Handler)(nil)

func NewHandler(logins LoginHandler, decisionTimeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		logins:          logins,
		decisionTimeout: decisionTimeout,
		log:             log,
	}
}

func (h *Handler) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := requestFromStruct(in)

	addr, err := resolveAddress(ctx, req.Address)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid address %q", req.Address)
	}

	host, _ := auth.GetHostFromContext(ctx)
	h.log.Debug("bridge login",
		zap.String("host", host),
		zap.String("username", req.Username),
		zap.Stringer("address", addr),
		zap.Bool("bedrock", req.Bedrock))

	src := newSource(addr, req.Bedrock)
	if err := h.logins.OnLogin(ctx, req.Username, src); err != nil {
		switch {
		case errors.Is(err, join.ErrInvalidUsername):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, join.ErrLoginPending):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		case errors.Is(err, join.ErrBusy):
			return nil, status.Error(codes.ResourceExhausted, err.Error())
		default:
			h.log.Error("failed to start login", zap.String("username", req.Username), zap.Error(err))
			return nil, status.Error(codes.Internal, "failed to start login")
		}
	}

	if h.decisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.decisionTimeout)
		defer cancel()
	}

	select {
	case result := <-src.decisions:
		out, err := result.toStruct()
		if err != nil {
			return nil, status.Error(codes.Internal, "failed to encode decision")
		}
		return out, nil
	case <-ctx.Done():
		h.log.Warn("no login decision in time", zap.String("username", req.Username))
		return nil, status.Error(codes.DeadlineExceeded, "no login decision in time")
	}
}

// resolveAddress parses the reported player address. Without one the caller's own peer
// address is used when it is an IP.
func resolveAddress(ctx context.Context, raw string) (netip.Addr, error) {
	if raw != "" {
		return parseAddress(raw)
	}

	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return netip.Addr{}, nil
	}
	addr, err := parseAddress(p.Addr.String())
	if err != nil {
		return netip.Addr{}, nil
	}
	return addr, nil
}

func parseAddress(raw string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(raw); err == nil {
		return addr.Unmap(), nil
	}

	host, _, err := net.SplitHostPort(raw)
	if err != nil {
		return netip.Addr{}, err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, err
	}
	return addr.Unmap(), nil
}
