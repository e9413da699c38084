package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcvalkey "github.com/testcontainers/testcontainers-go/modules/valkey"

	"github.com/pitabwire/l10n/cache"
	cacheredis "github.com/pitabwire/l10n/cache/redis"
	cachevalkey "github.com/pitabwire/l10n/cache/valkey"
)

const valkeyImage = "docker.io/valkey/valkey:latest"

// StoreTestSuite runs the same behaviour checks against every store implementation.
type StoreTestSuite struct {
	suite.Suite
	container  *tcvalkey.ValkeyContainer
	valkeyAddr string
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupSuite() {
	if testing.Short() {
		return
	}

	t := s.T()
	ctx := t.Context()

	defer func() {
		// Provider lookup panics on hosts without a Docker socket.
		if r := recover(); r != nil {
			t.Logf("docker provider unavailable: %v", r)
		}
	}()

	container, err := tcvalkey.Run(ctx, valkeyImage)
	if err != nil {
		t.Logf("could not start valkey: %v", err)
		return
	}
	s.container = container

	conn, err := container.ConnectionString(ctx)
	s.Require().NoError(err)
	s.valkeyAddr = conn
}

func (s *StoreTestSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *StoreTestSuite) implementations() map[string]cache.RawCache {
	implementations := map[string]cache.RawCache{
		"InMemory": cache.NewInMemoryCache(),
	}

	if s.valkeyAddr == "" {
		return implementations
	}

	valkeyStore, err := cachevalkey.New(cache.WithDSN(s.valkeyAddr))
	if err == nil {
		implementations["Valkey"] = valkeyStore
	} else {
		s.T().Logf("valkey not available: %v", err)
	}

	redisStore, err := cacheredis.New(cache.WithDSN(s.valkeyAddr + "/1"))
	if err == nil {
		implementations["Redis"] = redisStore
	} else {
		s.T().Logf("redis not available: %v", err)
	}

	return implementations
}

func (s *StoreTestSuite) TestSetGet() {
	ctx := context.Background()

	for name, store := range s.implementations() {
		s.Run(name, func() {
			defer func() { _ = store.Close() }()

			_, found, err := store.Get(ctx, "toolkit/pl/updates/absent.ftl")
			s.Require().NoError(err)
			s.False(found)

			s.Require().NoError(store.Set(ctx, "toolkit/pl/updates/history.ftl", []byte("history-title = Historia"), 0))

			value, found, err := store.Get(ctx, "toolkit/pl/updates/history.ftl")
			s.Require().NoError(err)
			s.True(found)
			s.Equal("history-title = Historia", string(value))
		})
	}
}

func (s *StoreTestSuite) TestExpiry() {
	ctx := context.Background()

	for name, store := range s.implementations() {
		s.Run(name, func() {
			defer func() { _ = store.Close() }()

			ttl := 50 * time.Millisecond
			wait := 100 * time.Millisecond
			if name != "InMemory" {
				// server side expiry has second granularity
				ttl = time.Second
				wait = 1500 * time.Millisecond
			}

			s.Require().NoError(store.Set(ctx, "short-lived", []byte("x"), ttl))
			time.Sleep(wait)

			_, found, err := store.Get(ctx, "short-lived")
			s.Require().NoError(err)
			s.False(found)
		})
	}
}

type failingStore struct {
	cache.RawCache
	closeErr error
}

func (f *failingStore) Close() error { return f.closeErr }

func (s *StoreTestSuite) TestManager() {
	ctx := context.Background()
	m := cache.NewManager()

	mem := cache.NewInMemoryCache()
	m.AddCache("toolkit", mem)

	got, ok := m.GetRawCache("toolkit")
	s.Require().True(ok)
	s.Require().NoError(got.Set(ctx, "k", []byte("v"), 0))

	_, ok = m.GetRawCache("browser")
	s.False(ok)

	s.Require().NoError(m.RemoveCache("toolkit"))
	_, ok = m.GetRawCache("toolkit")
	s.False(ok)
	s.NoError(m.RemoveCache("toolkit"))

	closeErr := errors.New("boom")
	m.AddCache("broken", &failingStore{RawCache: cache.NewInMemoryCache(), closeErr: closeErr})
	err := m.Close()
	s.Require().Error(err)
	s.ErrorIs(err, closeErr)
}
