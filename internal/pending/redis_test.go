package pending

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type RedisRegistrySuite struct {
	suite.Suite
	mini     *miniredis.Miniredis
	registry *RedisRegistry
	ctx      context.Context
}

func TestRedisRegistrySuite(t *testing.T) {
	suite.Run(t, new(RedisRegistrySuite))
}

func (s *RedisRegistrySuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.registry = NewRedisRegistry(client, "fastlogin", 5*time.Minute, zap.NewNop())
	s.ctx = context.Background()
}

func (s *RedisRegistrySuite) TearDownTest() {
	if s.registry != nil {
		_ = s.registry.Close()
	}
}

func (s *RedisRegistrySuite) TestTryBeginIsExclusive() {
	lease, err := s.registry.TryBegin(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(s.mini.Exists("fastlogin:pending:alice"))
	s.Equal(5*time.Minute, s.mini.TTL("fastlogin:pending:alice"))

	_, err = s.registry.TryBegin(s.ctx, "alice")
	s.ErrorIs(err, ErrPending)

	s.True(s.registry.Active(s.ctx, lease))
}

func (s *RedisRegistrySuite) TestEndReleasesKey() {
	lease, err := s.registry.TryBegin(s.ctx, "alice")
	s.Require().NoError(err)

	s.Require().NoError(s.registry.End(s.ctx, lease))
	s.False(s.mini.Exists("fastlogin:pending:alice"))
	s.False(s.registry.Active(s.ctx, lease))

	_, err = s.registry.TryBegin(s.ctx, "alice")
	s.NoError(err)
}

func (s *RedisRegistrySuite) TestExpiredLeaseCannotReleaseFreshOne() {
	stale, err := s.registry.TryBegin(s.ctx, "alice")
	s.Require().NoError(err)

	s.mini.FastForward(5 * time.Minute)
	s.False(s.registry.Active(s.ctx, stale))

	fresh, err := s.registry.TryBegin(s.ctx, "alice")
	s.Require().NoError(err)

	s.Require().NoError(s.registry.End(s.ctx, stale))
	s.True(s.registry.Active(s.ctx, fresh))
}

func (s *RedisRegistrySuite) TestUnavailableBackend() {
	s.mini.Close()

	_, err := s.registry.TryBegin(s.ctx, "alice")
	s.Error(err)
	s.NotErrorIs(err, ErrPending)
}
