package l10n_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/text/language"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/fetcher/fetchertest"
	"github.com/pitabwire/l10n/localization"
	"github.com/pitabwire/l10n/registry"
)

const historyID = "updates/history.ftl"

type ServiceTestSuite struct {
	suite.Suite
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) newService(opts ...l10n.Option) (context.Context, *l10n.Service) {
	ctx, srv := l10n.NewService(s.T().Context(), opts...)
	s.T().Cleanup(func() { srv.Stop(context.Background()) })
	return ctx, srv
}

func (s *ServiceTestSuite) scenario(ctx context.Context, l *localization.Localization) {
	var errs []error
	got, err := l.FormatValues(ctx, []localization.Key{
		{ID: "history-title"},
		{ID: "missing-id"},
		{ID: "history-intro"},
	}, &errs)
	s.Require().NoError(err)
	s.Equal([]string{
		"Historia aktualizacji",
		"missing-id",
		"The following updates have been installed",
	}, got)
	s.Require().Len(errs, 1)
	s.ErrorIs(errs[0], localization.ErrUnresolvable)
}

func (s *ServiceTestSuite) TestDefaults() {
	ctx, srv := s.newService()

	s.Require().NoError(srv.Err())
	s.Same(srv, l10n.FromContext(ctx))
	s.Nil(l10n.FromContext(context.Background()))
	s.Equal([]language.Tag{language.MustParse("en-US")}, srv.Registry().Locales())
	s.Empty(srv.Registry().Sources())

	cfg, ok := srv.Config().(*config.ConfigurationDefault)
	s.Require().True(ok)
	s.Same(cfg, config.FromContext[*config.ConfigurationDefault](ctx))

	pool, err := srv.WorkManager().GetPool()
	s.Require().NoError(err)
	s.NotNil(pool)

	s.Equal(registry.ModeSync, srv.Localization(historyID).Mode())

	srv.Stop(ctx)
	srv.Stop(ctx)
}

func (s *ServiceTestSuite) TestSourcesFile() {
	testCases := []struct {
		name  string
		async string
		mode  registry.Mode
	}{
		{name: "sync", async: "false", mode: registry.ModeSync},
		{name: "async", async: "true", mode: registry.ModeAsync},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.T().Setenv("L10N_ASYNC", tc.async)
			s.T().Setenv("L10N_SOURCES_FILE", filepath.Join("testdata", "sources.yaml"))

			ctx, srv := s.newService()
			s.Require().NoError(srv.Err())
			s.Equal([]language.Tag{language.MustParse("pl"), language.MustParse("en-US")}, srv.Registry().Locales())
			s.True(srv.Registry().HasSource("toolkit"))
			s.True(srv.Registry().HasSource("browser"))

			l := srv.Localization(historyID)
			s.Equal(tc.mode, l.Mode())
			s.scenario(ctx, l)

			got, err := l.FormatValue(ctx, "history-updates-count", map[string]any{"count": 3}, nil)
			s.Require().NoError(err)
			s.Equal("Zainstalowano 3 aktualizacje", got)
		})
	}
}

func (s *ServiceTestSuite) TestSourcesFileLoadedOnce() {
	testCases := []struct {
		name string
		path string
	}{
		{name: "same path", path: filepath.Join("testdata", "sources.yaml")},
		{name: "equivalent path", path: "./testdata/../testdata/sources.yaml"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.T().Setenv("L10N_SOURCES_FILE", filepath.Join("testdata", "sources.yaml"))

			ctx, srv := s.newService(l10n.WithSourcesFile(tc.path))
			s.Require().NoError(srv.Err())
			s.Len(srv.Registry().Sources(), 2)
			s.scenario(ctx, srv.Localization(historyID))
		})
	}
}

func (s *ServiceTestSuite) TestLocalesOverride() {
	s.T().Setenv("L10N_LOCALES", "pl")

	ctx, srv := s.newService(
		l10n.WithLocales("en-US", "pl"),
		l10n.WithSourceDefinitions(config.SourceDefinition{
			Name:     "toolkit",
			Locales:  []string{"pl", "en-US"},
			Template: "toolkit/{locale}",
			Backend:  config.BackendDir,
			Location: "testdata",
		}),
	)
	s.Require().NoError(srv.Err())

	got, err := srv.Localization(historyID).FormatValue(ctx, "history-title", nil, nil)
	s.Require().NoError(err)
	s.Equal("Update History", got)
}

func (s *ServiceTestSuite) TestBackends() {
	ctx := s.T().Context()

	abs, err := filepath.Abs("testdata")
	s.Require().NoError(err)

	srv := httptest.NewServer(http.StripPrefix("/l10n/", http.FileServer(http.Dir("testdata"))))
	s.T().Cleanup(srv.Close)

	testCases := []struct {
		name     string
		backend  string
		location string
		prepare  func(svc *l10n.Service)
	}{
		{name: "dir", backend: config.BackendDir, location: "testdata"},
		{name: "blob", backend: config.BackendBlob, location: "file://" + filepath.ToSlash(abs)},
		{name: "http", backend: config.BackendHTTP, location: srv.URL + "/l10n"},
		{
			name:    "memory",
			backend: config.BackendMemory,
			prepare: func(svc *l10n.Service) {
				raw, ok := svc.GetRawCache("toolkit")
				s.Require().True(ok)
				store := fetcher.NewStore(raw, "res:")
				s.Require().NoError(store.Put(ctx, "toolkit/pl/"+historyID, "history-title = Historia aktualizacji\n"))
				s.Require().NoError(store.Put(ctx, "toolkit/en-US/"+historyID,
					"history-intro = The following updates have been installed\n"))
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			svcCtx, svc := s.newService(
				l10n.WithLocales("pl", "en-US"),
				l10n.WithSourceDefinitions(config.SourceDefinition{
					Name:     "toolkit",
					Locales:  []string{"pl", "en-US"},
					Template: "toolkit/{locale}",
					Backend:  tc.backend,
					Location: tc.location,
					Prefix:   "res:",
				}),
			)
			s.Require().NoError(svc.Err())
			if tc.prepare != nil {
				tc.prepare(svc)
			}

			s.scenario(svcCtx, svc.Localization(historyID))
		})
	}
}

func (s *ServiceTestSuite) TestSharedStore() {
	ctx, srv := s.newService(
		l10n.WithLocales("pl"),
		l10n.WithInMemoryCache("shared"),
		l10n.WithSourceDefinitions(
			config.SourceDefinition{Name: "a", Locales: []string{"pl"}, Template: "a/{locale}", Backend: config.BackendMemory, Location: "shared"},
			config.SourceDefinition{Name: "b", Locales: []string{"pl"}, Template: "b/{locale}", Backend: config.BackendMemory, Location: "shared"},
		),
	)
	s.Require().NoError(srv.Err())

	raw, ok := srv.GetRawCache("shared")
	s.Require().True(ok)
	s.Require().NoError(fetcher.NewStore(raw, "").Put(ctx, "b/pl/menu.ftl", "open = Otwórz\n"))

	got, err := srv.Localization("menu.ftl").FormatValue(ctx, "open", nil, nil)
	s.Require().NoError(err)
	s.Equal("Otwórz", got)
}

func (s *ServiceTestSuite) TestRemoveSourcesReleasesStores() {
	memory := func(name, location string) config.SourceDefinition {
		return config.SourceDefinition{
			Name: name, Locales: []string{"pl"}, Template: name + "/{locale}",
			Backend: config.BackendMemory, Location: location,
		}
	}

	ctx, srv := s.newService(
		l10n.WithLocales("pl"),
		l10n.WithInMemoryCache("external"),
		l10n.WithSourceDefinitions(
			memory("a", "shared"),
			memory("b", "shared"),
			memory("c", ""),
			memory("d", "external"),
		),
	)
	s.Require().NoError(srv.Err())

	testCases := []struct {
		name    string
		remove  []string
		present []string
		absent  []string
	}{
		{name: "store kept while shared", remove: []string{"a"}, present: []string{"shared", "c", "external"}},
		{name: "last reader closes store", remove: []string{"b"}, present: []string{"c", "external"}, absent: []string{"shared"}},
		{name: "own store", remove: []string{"c", "unknown"}, present: []string{"external"}, absent: []string{"c"}},
		{name: "caller store stays open", remove: []string{"d"}, present: []string{"external"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			srv.RemoveSources(ctx, tc.remove...)
			for _, name := range tc.remove {
				s.False(srv.Registry().HasSource(name))
			}
			for _, name := range tc.present {
				_, ok := srv.GetRawCache(name)
				s.True(ok, name)
			}
			for _, name := range tc.absent {
				_, ok := srv.GetRawCache(name)
				s.False(ok, name)
			}
		})
	}
	s.Empty(srv.Registry().Sources())
}

func (s *ServiceTestSuite) TestCustomSources() {
	f := fetchertest.New(map[string]string{
		"app/pl/" + historyID: "history-title = Historia aktualizacji\n",
	})

	ctx, srv := s.newService(
		l10n.WithLocales("pl", "en-US"),
		l10n.WithSources(l10n.Source{
			Name:     "app",
			Locales:  []string{"pl"},
			Template: "app/{locale}",
			Fetcher:  f,
			Index:    []string{historyID},
		}),
	)
	s.Require().NoError(srv.Err())

	l := srv.Localization(historyID, "menu.ftl")
	for range 2 {
		got, err := l.FormatValue(ctx, "history-title", nil, nil)
		s.Require().NoError(err)
		s.Equal("Historia aktualizacji", got)
	}
	s.Equal(1, f.TotalCalls(), "indexed resources outside the index are never fetched")

	err := srv.AddSource(ctx, l10n.Source{Name: "app", Locales: []string{"pl"}, Template: "x/{locale}", Fetcher: f})
	s.ErrorIs(err, registry.ErrDuplicateSource)
}

func (s *ServiceTestSuite) TestStartupErrors() {
	testCases := []struct {
		name    string
		opts    []l10n.Option
		wantErr error
	}{
		{
			name: "unknown backend",
			opts: []l10n.Option{l10n.WithSourceDefinitions(config.SourceDefinition{
				Name: "x", Locales: []string{"pl"}, Template: "x/{locale}", Backend: "ftp", Location: "ftp://x",
			})},
			wantErr: config.ErrUnknownBackend,
		},
		{
			name: "template without locale",
			opts: []l10n.Option{l10n.WithSourceDefinitions(config.SourceDefinition{
				Name: "x", Locales: []string{"pl"}, Template: "x", Backend: config.BackendMemory,
			})},
			wantErr: config.ErrInvalidSourceDefinition,
		},
		{
			name: "duplicate source",
			opts: []l10n.Option{l10n.WithSources(
				l10n.Source{Name: "x", Locales: []string{"pl"}, Template: "a/{locale}", Fetcher: fetchertest.New(nil)},
				l10n.Source{Name: "x", Locales: []string{"pl"}, Template: "b/{locale}", Fetcher: fetchertest.New(nil)},
			)},
			wantErr: registry.ErrDuplicateSource,
		},
		{
			name: "bad source locale",
			opts: []l10n.Option{l10n.WithSources(
				l10n.Source{Name: "x", Locales: []string{"not a locale!"}, Template: "a/{locale}", Fetcher: fetchertest.New(nil)},
			)},
		},
		{
			name: "missing sources file",
			opts: []l10n.Option{l10n.WithSourcesFile(filepath.Join("testdata", "absent.yaml"))},
		},
		{
			name: "bad locale chain",
			opts: []l10n.Option{l10n.WithLocales("pl", "???")},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, srv := s.newService(tc.opts...)
			err := srv.Err()
			s.Require().Error(err)
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
			}
		})
	}
}
