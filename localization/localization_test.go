package localization_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/text/language"

	"github.com/pitabwire/l10n/fetcher"
	"github.com/pitabwire/l10n/fetcher/fetchertest"
	"github.com/pitabwire/l10n/localization"
	"github.com/pitabwire/l10n/registry"
	"github.com/pitabwire/l10n/resolver"
)

const (
	historyID = "updates/history.ftl"
	plPath    = "toolkit/pl/updates/history.ftl"
	enPath    = "toolkit/en-US/updates/history.ftl"
)

//nolint:gochecknoglobals // test locales
var (
	pl   = language.MustParse("pl")
	enUS = language.MustParse("en-US")
)

type LocalizationSuite struct {
	suite.Suite

	fetcher  *fetchertest.Fetcher
	registry *registry.Registry
}

func TestLocalizationSuite(t *testing.T) {
	suite.Run(t, new(LocalizationSuite))
}

func (s *LocalizationSuite) SetupTest() {
	s.fetcher = fetchertest.New(map[string]string{
		plPath: "history-title = Historia aktualizacji\n" +
			"greeting = Witaj, { $name }!\n",
		enPath: "history-title = Update History\n" +
			"history-intro = The following updates have been installed\n" +
			"greeting = Hello, { $name }!\n",
	})

	s.registry = registry.New(pl, enUS)
	_, err := s.registry.Register("toolkit", []language.Tag{pl, enUS}, "toolkit/{locale}", s.fetcher)
	s.Require().NoError(err)
	_, err = s.registry.Register("browser", []language.Tag{pl, enUS}, "browser/{locale}", s.fetcher)
	s.Require().NoError(err)
}

func (s *LocalizationSuite) scenarioKeys() []localization.Key {
	return []localization.Key{
		{ID: "history-title"},
		{ID: "missing-id"},
		{ID: "history-intro"},
	}
}

func (s *LocalizationSuite) requireSingleUnresolvable(errs []error, id string) {
	s.Require().Len(errs, 1)
	s.ErrorIs(errs[0], localization.ErrUnresolvable)

	var formatErr *localization.FormatError
	s.Require().ErrorAs(errs[0], &formatErr)
	s.Equal(localization.KindUnresolvable, formatErr.Kind)
	s.Equal(id, formatErr.ID)
}

func (s *LocalizationSuite) TestFallbackScenario() {
	want := []string{
		"Historia aktualizacji",
		"missing-id",
		"The following updates have been installed",
	}

	testCases := []struct {
		name   string
		mode   registry.Mode
		format func(l *localization.Localization, keys []localization.Key, errs *[]error) ([]string, error)
	}{
		{
			name: "sync facade, blocking call",
			mode: registry.ModeSync,
			format: func(l *localization.Localization, keys []localization.Key, errs *[]error) ([]string, error) {
				return l.FormatValuesSync(context.Background(), keys, errs)
			},
		},
		{
			name: "sync facade, context call",
			mode: registry.ModeSync,
			format: func(l *localization.Localization, keys []localization.Key, errs *[]error) ([]string, error) {
				return l.FormatValues(context.Background(), keys, errs)
			},
		},
		{
			name: "async facade",
			mode: registry.ModeAsync,
			format: func(l *localization.Localization, keys []localization.Key, errs *[]error) ([]string, error) {
				return l.FormatValues(context.Background(), keys, errs)
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			l := localization.New(s.registry, []string{historyID}, localization.WithMode(tc.mode))

			var errs []error
			got, err := tc.format(l, s.scenarioKeys(), &errs)
			s.Require().NoError(err)
			s.Equal(want, got)
			s.requireSingleUnresolvable(errs, "missing-id")
		})
	}
}

func (s *LocalizationSuite) TestFormatValue() {
	testCases := []struct {
		name string
		id   string
		args map[string]any
		want string
	}{
		{name: "first locale wins", id: "history-title", want: "Historia aktualizacji"},
		{name: "falls back per message", id: "history-intro", want: "The following updates have been installed"},
		{name: "arguments", id: "greeting", args: map[string]any{"name": "Ala"}, want: "Witaj, Ala!"},
	}

	l := localization.New(s.registry, []string{historyID})
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			var errs []error
			got, err := l.FormatValue(context.Background(), tc.id, tc.args, &errs)
			s.Require().NoError(err)
			s.Equal(tc.want, got)
			s.Empty(errs)
		})
	}

	got, err := l.FormatValueSync(context.Background(), "missing-id", nil, nil)
	s.Require().NoError(err)
	s.Equal("missing-id", got, "a nil sink discards errors")
}

func (s *LocalizationSuite) TestBatchPreservesInputOrder() {
	l := localization.New(s.registry, []string{historyID})

	keys := []localization.Key{
		{ID: "history-intro"},
		{ID: "greeting", Args: map[string]any{"name": "Ola"}},
		{ID: "history-title"},
		{ID: "history-intro"},
	}
	got, err := l.FormatValues(context.Background(), keys, nil)
	s.Require().NoError(err)
	s.Equal([]string{
		"The following updates have been installed",
		"Witaj, Ola!",
		"Historia aktualizacji",
		"The following updates have been installed",
	}, got)

	got, err = l.FormatValues(context.Background(), nil, nil)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *LocalizationSuite) TestWarmCallsDoNotFetchAgain() {
	for _, mode := range []registry.Mode{registry.ModeSync, registry.ModeAsync} {
		s.Run(mode.String(), func() {
			s.SetupTest()
			l := localization.New(s.registry, []string{historyID}, localization.WithMode(mode))

			first, err := l.FormatValues(context.Background(), s.scenarioKeys(), nil)
			s.Require().NoError(err)
			calls := s.fetcher.TotalCalls()

			for range 3 {
				again, againErr := l.FormatValues(context.Background(), s.scenarioKeys(), nil)
				s.Require().NoError(againErr)
				s.Equal(first, again)
			}
			s.Equal(calls, s.fetcher.TotalCalls())
			s.Equal(1, s.fetcher.Calls(plPath))
			s.Equal(1, s.fetcher.Calls(enPath))
		})
	}
}

func (s *LocalizationSuite) TestMissingResourceIsReportedOncePerCall() {
	l := localization.New(s.registry, []string{historyID, "menu.ftl"})

	var errs []error
	got, err := l.FormatValues(context.Background(), []localization.Key{{ID: "history-title"}, {ID: "greeting"}}, &errs)
	s.Require().NoError(err)
	s.Equal("Historia aktualizacji", got[0])
	s.Equal("Witaj, {$name}!", got[1])

	var missing []*localization.FormatError
	for _, e := range errs {
		var formatErr *localization.FormatError
		s.Require().ErrorAs(e, &formatErr)
		if formatErr.Kind == localization.KindMissingResource {
			missing = append(missing, formatErr)
		}
	}
	s.Require().Len(missing, 1)
	s.Equal(pl, missing[0].Locale)
	s.Equal("menu.ftl", missing[0].ResourceID)
	s.Equal([]string{"toolkit/pl/menu.ftl", "browser/pl/menu.ftl"}, missing[0].Paths)
	s.Contains(missing[0].Error(), "toolkit/pl/menu.ftl")
	s.ErrorIs(missing[0], localization.ErrMissingResource)
	s.True(fetcher.IsNotFound(missing[0]))
}

func (s *LocalizationSuite) TestResolverErrorsKeepBestEffortValue() {
	l := localization.New(s.registry, []string{historyID})

	var errs []error
	got, err := l.FormatValue(context.Background(), "greeting", nil, &errs)
	s.Require().NoError(err)
	s.Equal("Witaj, {$name}!", got)

	s.Require().Len(errs, 1)
	s.ErrorIs(errs[0], localization.ErrResolver)
	s.ErrorIs(errs[0], resolver.ErrMalformedArgs)

	var formatErr *localization.FormatError
	s.Require().ErrorAs(errs[0], &formatErr)
	s.Equal("greeting", formatErr.ID)
	s.Equal(pl, formatErr.Locale)
	s.Contains(formatErr.Error(), "greeting")
}

func (s *LocalizationSuite) TestMalformedResourceIsReportedAndUsed() {
	s.fetcher.Set(plPath, "history-title = Historia aktualizacji\nbroken = { $\n")
	l := localization.New(s.registry, []string{historyID})

	for range 2 {
		var errs []error
		got, err := l.FormatValues(context.Background(), []localization.Key{{ID: "history-title"}, {ID: "broken"}}, &errs)
		s.Require().NoError(err)
		s.Equal([]string{"Historia aktualizacji", "broken"}, got)

		var kinds []localization.ErrorKind
		for _, e := range errs {
			var formatErr *localization.FormatError
			s.Require().ErrorAs(e, &formatErr)
			kinds = append(kinds, formatErr.Kind)
		}
		s.Equal([]localization.ErrorKind{localization.KindResolver, localization.KindUnresolvable}, kinds)
		s.ErrorIs(errs[0], resolver.ErrMalformedResource)
	}
}

func (s *LocalizationSuite) TestSyncCallOnAsyncFacadeIsMisuse() {
	l := localization.New(s.registry, []string{historyID}, localization.WithMode(registry.ModeAsync))

	var errs []error
	_, err := l.FormatValueSync(context.Background(), "history-title", nil, &errs)
	s.ErrorIs(err, localization.ErrSyncOnAsync)
	_, err = l.FormatValuesSync(context.Background(), s.scenarioKeys(), &errs)
	s.ErrorIs(err, localization.ErrSyncOnAsync)
	s.Empty(errs, "misuse is never reported through the sink")

	got, err := l.FormatValue(context.Background(), "history-title", nil, &errs)
	s.Require().NoError(err)
	s.Equal("Historia aktualizacji", got)
}

func (s *LocalizationSuite) TestUpgradeToAsyncKeepsFetchedResources() {
	l := localization.New(s.registry, []string{historyID})

	got, err := l.FormatValueSync(context.Background(), "history-title", nil, nil)
	s.Require().NoError(err)
	s.Equal("Historia aktualizacji", got)
	s.Equal(1, s.fetcher.Calls(plPath))

	l.SetAsync()
	s.Equal(registry.ModeAsync, l.Mode())

	got, err = l.FormatValue(context.Background(), "history-intro", nil, nil)
	s.Require().NoError(err)
	s.Equal("The following updates have been installed", got)

	got, err = l.FormatValue(context.Background(), "history-title", nil, nil)
	s.Require().NoError(err)
	s.Equal("Historia aktualizacji", got)

	s.Equal(1, s.fetcher.Calls(plPath))
	s.Equal(1, s.fetcher.Calls(enPath))
}

func (s *LocalizationSuite) TestSetSyncTransitions() {
	testCases := []struct {
		name    string
		prepare func(l *localization.Localization)
		wantErr error
	}{
		{
			name:    "async without any call",
			prepare: func(l *localization.Localization) { l.SetAsync() },
		},
		{
			name: "upgraded but never driven async",
			prepare: func(l *localization.Localization) {
				_, err := l.FormatValueSync(context.Background(), "history-title", nil, nil)
				s.Require().NoError(err)
				l.SetAsync()
			},
		},
		{
			name: "after an async call",
			prepare: func(l *localization.Localization) {
				l.SetAsync()
				_, err := l.FormatValue(context.Background(), "history-title", nil, nil)
				s.Require().NoError(err)
			},
			wantErr: localization.ErrIllegalModeTransition,
		},
		{
			name: "after an async call and a resource change",
			prepare: func(l *localization.Localization) {
				l.SetAsync()
				_, err := l.FormatValue(context.Background(), "history-title", nil, nil)
				s.Require().NoError(err)
				l.AddResourceIDs("menu.ftl")
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			l := localization.New(s.registry, []string{historyID})
			tc.prepare(l)

			err := l.SetSync()
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				s.Equal(registry.ModeAsync, l.Mode())
				return
			}
			s.Require().NoError(err)
			s.Equal(registry.ModeSync, l.Mode())

			got, err := l.FormatValueSync(context.Background(), "history-title", nil, nil)
			s.Require().NoError(err)
			s.Equal("Historia aktualizacji", got)
		})
	}

	fresh := localization.New(s.registry, []string{historyID})
	s.NoError(fresh.SetSync(), "sync to sync is a no-op")
}

func (s *LocalizationSuite) TestSetSyncWhileAsyncCallInFlight() {
	release := s.fetcher.Hold(plPath)
	l := localization.New(s.registry, []string{historyID}, localization.WithMode(registry.ModeAsync))

	done := make(chan string, 1)
	go func() {
		got, err := l.FormatValue(context.Background(), "history-title", nil, nil)
		s.NoError(err)
		done <- got
	}()

	s.Eventually(func() bool { return s.fetcher.Calls(plPath) == 1 }, time.Second, 5*time.Millisecond)
	s.ErrorIs(l.SetSync(), localization.ErrIllegalModeTransition)

	release()
	s.Equal("Historia aktualizacji", <-done)
}

func (s *LocalizationSuite) TestAbandonedAsyncCallLeavesFetchesRunning() {
	release := s.fetcher.Hold(plPath)
	l := localization.New(s.registry, []string{historyID}, localization.WithMode(registry.ModeAsync))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var errs []error
	_, err := l.FormatValue(ctx, "history-title", nil, &errs)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Empty(errs)

	release()
	got, err := l.FormatValue(context.Background(), "history-title", nil, &errs)
	s.Require().NoError(err)
	s.Equal("Historia aktualizacji", got)
	s.Empty(errs)
	s.Equal(1, s.fetcher.Calls(plPath))
}

func (s *LocalizationSuite) TestConcurrentCallsShareFetches() {
	release := s.fetcher.Hold(enPath)
	l := localization.New(s.registry, []string{historyID}, localization.WithMode(registry.ModeAsync))

	const callers = 12
	results := make([][]string, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := l.FormatValues(context.Background(), s.scenarioKeys(), nil)
			s.NoError(err)
			results[i] = got
		}()
	}

	s.Eventually(func() bool { return s.fetcher.Calls(enPath) == 1 }, time.Second, 5*time.Millisecond)
	release()
	wg.Wait()

	for _, got := range results {
		s.Equal([]string{"Historia aktualizacji", "missing-id", "The following updates have been installed"}, got)
	}
	s.Equal(1, s.fetcher.Calls(plPath))
	s.Equal(1, s.fetcher.Calls(enPath))
}

func (s *LocalizationSuite) TestResourceIDsAndRegistryChanges() {
	l := localization.New(s.registry, []string{historyID, historyID})
	s.Equal([]string{historyID}, l.ResourceIDs())

	l.AddResourceIDs("menu.ftl", historyID)
	s.Equal([]string{historyID, "menu.ftl"}, l.ResourceIDs())

	l.RemoveResourceIDs("menu.ftl", "unknown.ftl")
	s.Equal([]string{historyID}, l.ResourceIDs())

	got, err := l.FormatValue(context.Background(), "history-title", nil, nil)
	s.Require().NoError(err)
	s.Equal("Historia aktualizacji", got)

	s.registry.SetLocales(enUS)
	got, err = l.FormatValue(context.Background(), "history-title", nil, nil)
	s.Require().NoError(err)
	s.Equal("Historia aktualizacji", got, "the walk in progress keeps its locale snapshot")

	l.OnChange()
	got, err = l.FormatValue(context.Background(), "history-title", nil, nil)
	s.Require().NoError(err)
	s.Equal("Update History", got)

	l.SetResourceIDs()
	var errs []error
	got, err = l.FormatValue(context.Background(), "history-title", nil, &errs)
	s.Require().NoError(err)
	s.Equal("history-title", got)
	s.requireSingleUnresolvable(errs, "history-title")
}

func (s *LocalizationSuite) TestCancelledContextBeforeCall() {
	l := localization.New(s.registry, []string{historyID})

	release := s.fetcher.Hold(plPath)
	defer release()

	busy := make(chan struct{})
	go func() {
		defer close(busy)
		_, _ = l.FormatValue(context.Background(), "history-title", nil, nil)
	}()
	s.Eventually(func() bool { return s.fetcher.Calls(plPath) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.FormatValueSync(ctx, "history-title", nil, nil)
	s.ErrorIs(err, context.Canceled, "waiting for a busy localization honours ctx")

	release()
	<-busy
}

func (s *LocalizationSuite) TestErrorKindStrings() {
	s.Equal("missing resource", localization.KindMissingResource.String())
	s.Equal("resolver error", localization.KindResolver.String())
	s.Equal("unresolvable", localization.KindUnresolvable.String())
	s.Equal("unknown", localization.ErrorKind(7).String())

	err := &localization.FormatError{Kind: localization.KindUnresolvable, ID: "x"}
	s.Equal("unresolvable: x", err.Error())
}
