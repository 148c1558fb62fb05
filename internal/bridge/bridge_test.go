package bridge

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Smart123s/FastLogin/internal/clock"
	"github.com/Smart123s/FastLogin/internal/join"
	"github.com/Smart123s/FastLogin/internal/metrics"
	"github.com/Smart123s/FastLogin/internal/pending"
	"github.com/Smart123s/FastLogin/internal/profile"
	"github.com/Smart123s/FastLogin/internal/ratelimit"
	"github.com/Smart123s/FastLogin/internal/resolver"
	"github.com/Smart123s/FastLogin/internal/scheduler"
)

var knownPremiumID = uuid.MustParse("6e5480fd-d50e-4f60-83fc-8be8d81ff2d3")

type memoryRepository struct {
	mu       sync.Mutex
	profiles map[string]*profile.StoredProfile
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{profiles: make(map[string]*profile.StoredProfile)}
}

func (r *memoryRepository) LoadByName(_ context.Context, name string) *profile.StoredProfile {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.profiles[name]; ok {
		return p
	}
	return profile.NewProfile(name)
}

func (r *memoryRepository) LoadByUUID(_ context.Context, id uuid.UUID) (*profile.StoredProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.profiles {
		if pid, ok := p.ID(); ok && pid == id {
			return p, nil
		}
	}
	return nil, profile.ErrProfileNotFound
}

func (r *memoryRepository) Save(_ context.Context, p *profile.StoredProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[p.Name()] = p
	return nil
}

type stubResolver struct {
	profiles map[string]*resolver.Profile
}

func (r *stubResolver) FindProfile(_ context.Context, name string) (*resolver.Profile, error) {
	return r.profiles[name], nil
}

type fakeLogins struct {
	err error
}

func (f *fakeLogins) OnLogin(context.Context, string, join.LoginSource) error {
	return f.err
}

func newOrchestrator(t *testing.T, log *zap.Logger) *join.Orchestrator {
	t.Helper()

	clk := clock.New()
	return join.NewOrchestrator(join.Params{
		Repository: newMemoryRepository(),
		Registry:   pending.NewMemoryRegistry(clk, time.Minute, 100),
		Limiter:    ratelimit.NewLimiter(clk, 10, time.Minute, 100),
		Resolver: &stubResolver{profiles: map[string]*resolver.Profile{
			"knownPremium1": {ID: knownPremiumID, Name: "knownPremium1"},
		}},
		Scheduler:    scheduler.InlineScheduler{},
		Continuation: NewRouter(log),
		Metrics:      metrics.NewCollector(),
		Options: join.Options{
			NameChangeCheck: true,
			AutoRegister:    true,
			RateLimitScope:  ratelimit.ScopeGlobal,
		},
		Logger: log,
	})
}

func dialBridge(t *testing.T, srv LoginBridgeServer) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterLoginBridgeServer(server, srv)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})

	return NewClient(conn)
}

func TestLogin_Decisions(t *testing.T) {
	log := zap.NewNop()
	client := dialBridge(t, NewHandler(newOrchestrator(t, log), time.Second, log))

	tests := []struct {
		name string
		req  *Request
		want *Result
	}{
		{
			name: "premium account",
			req:  &Request{Username: "knownPremium1", Address: "0.0.1.1"},
			want: &Result{
				Decision: DecisionPremium,
				UUID:     knownPremiumID.String(),
				Name:     "knownPremium1",
			},
		},
		{
			name: "cracked account",
			req:  &Request{Username: "newPlayer", Address: "0.0.1.2:25565"},
			want: &Result{Decision: DecisionCracked, Name: "newPlayer"},
		},
		{
			name: "address from peer",
			req:  &Request{Username: "otherPlayer"},
			want: &Result{Decision: DecisionCracked, Name: "otherPlayer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Login(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogin_KnownPremiumIsRegistered(t *testing.T) {
	log := zap.NewNop()
	client := dialBridge(t, NewHandler(newOrchestrator(t, log), time.Second, log))

	_, err := client.Login(context.Background(), &Request{Username: "knownPremium1", Address: "0.0.1.1"})
	require.NoError(t, err)

	got, err := client.Login(context.Background(), &Request{Username: "knownPremium1", Address: "0.0.1.1"})
	require.NoError(t, err)
	assert.Equal(t, DecisionPremium, got.Decision)
	assert.True(t, got.Registered)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		logins   LoginHandler
		req      *Request
		wantCode codes.Code
	}{
		{
			name:     "invalid username",
			logins:   &fakeLogins{err: join.ErrInvalidUsername},
			req:      &Request{Username: " "},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "invalid address",
			logins:   &fakeLogins{},
			req:      &Request{Username: "Alice", Address: "not-an-ip"},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "already pending",
			logins:   &fakeLogins{err: join.ErrLoginPending},
			req:      &Request{Username: "Alice"},
			wantCode: codes.AlreadyExists,
		},
		{
			name:     "busy",
			logins:   &fakeLogins{err: join.ErrBusy},
			req:      &Request{Username: "Alice"},
			wantCode: codes.ResourceExhausted,
		},
		{
			name:     "no decision",
			logins:   &fakeLogins{},
			req:      &Request{Username: "Alice"},
			wantCode: codes.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := dialBridge(t, NewHandler(tt.logins, 20*time.Millisecond, zap.NewNop()))

			_, err := client.Login(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}

func TestRouter_ForeignSource(t *testing.T) {
	router := NewRouter(zap.NewNop())

	assert.NotPanics(t, func() {
		router.StartCrackedSession(foreignSource{}, profile.NewProfile("Alice"), "Alice")
	})
}

func TestRouter_DuplicateDecision(t *testing.T) {
	router := NewRouter(zap.NewNop())
	src := newSource(netip.MustParseAddr("127.0.0.1"), false)

	router.StartCrackedSession(src, profile.NewProfile("Alice"), "Alice")
	router.StartCrackedSession(src, profile.NewProfile("Alice"), "Alice")

	assert.Len(t, src.decisions, 1)
}

type foreignSource struct{}

func (foreignSource) Address() netip.Addr { return netip.Addr{} }
func (foreignSource) Bedrock() bool       { return false }

func TestParseAddress(t *testing.T) {
	tests := []struct {
		raw     string
		want    netip.Addr
		wantErr bool
	}{
		{raw: "127.0.0.1", want: netip.MustParseAddr("127.0.0.1")},
		{raw: "127.0.0.1:25565", want: netip.MustParseAddr("127.0.0.1")},
		{raw: "::ffff:10.0.0.1", want: netip.MustParseAddr("10.0.0.1")},
		{raw: "[2001:db8::1]:25565", want: netip.MustParseAddr("2001:db8::1")},
		{raw: "bufconn", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAddress(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
