package localization

import (
	"context"
	"errors"

	"github.com/pitabwire/util"

	"github.com/pitabwire/l10n/registry"
	"github.com/pitabwire/l10n/resolver"
)

// FormatValue formats one message. It is legal in either mode: in sync mode
// fetches block, in async mode the call waits on them and can be abandoned
// through ctx, leaving the fetches to complete in the background.
//
// Data errors are appended to errs, which may be nil. The returned error is
// only set when ctx ends first.
func (l *Localization) FormatValue(ctx context.Context, id string, args map[string]any, errs *[]error) (string, error) {
	values, err := l.FormatValues(ctx, []Key{{ID: id, Args: args}}, errs)
	if err != nil {
		return "", err
	}
	return values[0], nil
}

// FormatValues formats keys and returns one value per key in input order.
// See FormatValue for error handling.
func (l *Localization) FormatValues(ctx context.Context, keys []Key, errs *[]error) ([]string, error) {
	async := l.Mode() == registry.ModeAsync
	return l.format(ctx, keys, async, errs)
}

// FormatValueSync formats one message, blocking on any fetch. It fails with
// ErrSyncOnAsync on an async Localization. ctx carries the logger and bounds
// the wait for a concurrent call; fetches always run to completion.
func (l *Localization) FormatValueSync(ctx context.Context, id string, args map[string]any, errs *[]error) (string, error) {
	values, err := l.FormatValuesSync(ctx, []Key{{ID: id, Args: args}}, errs)
	if err != nil {
		return "", err
	}
	return values[0], nil
}

// FormatValuesSync is the blocking form of FormatValues.
func (l *Localization) FormatValuesSync(ctx context.Context, keys []Key, errs *[]error) ([]string, error) {
	if l.Mode() == registry.ModeAsync {
		return nil, ErrSyncOnAsync
	}
	return l.format(ctx, keys, false, errs)
}

func (l *Localization) format(ctx context.Context, keys []Key, async bool, errs *[]error) ([]string, error) {
	release, err := l.acquire(ctx, async)
	if err != nil {
		return nil, err
	}
	defer release()

	g, async := l.generation()
	if async {
		g.drivenAsync.Store(true)
	}

	call := &formatCall{
		ctx:      ctx,
		resolver: l.resolver,
		errs:     errs,
		reported: map[*registry.Bundle]map[string]bool{},
	}

	values := make([]string, len(keys))
	resolved := make([]bool, len(keys))
	remaining := len(keys)

	for i := 0; remaining > 0; i++ {
		bundle, ok, bundleErr := l.bundleAt(ctx, g, i)
		if bundleErr != nil {
			return nil, bundleErr
		}
		if !ok {
			break
		}
		call.reportMissing(bundle)

		for k, key := range keys {
			if resolved[k] {
				continue
			}
			if value, found := call.resolve(bundle, key); found {
				values[k] = value
				resolved[k] = true
				remaining--
			}
		}
	}

	for k, key := range keys {
		if resolved[k] {
			continue
		}
		values[k] = key.ID
		appendError(errs, &FormatError{Kind: KindUnresolvable, ID: key.ID})
		util.Log(ctx).WithField("id", key.ID).Warn("message not found in any locale")
	}
	return values, nil
}

// bundleAt returns the i-th bundle of the generation, advancing the
// generator when it has not been reached yet.
func (l *Localization) bundleAt(ctx context.Context, g *generation, i int) (*registry.Bundle, bool, error) {
	if i < len(g.bundles) {
		return g.bundles[i], true, nil
	}

	bundle, ok, err := g.gen.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	g.bundles = append(g.bundles, bundle)
	return bundle, true, nil
}

type formatCall struct {
	ctx      context.Context
	resolver resolver.Resolver
	errs     *[]error
	reported map[*registry.Bundle]map[string]bool
}

// once reports whether key is seen for bundle for the first time in this call.
func (c *formatCall) once(bundle *registry.Bundle, key string) bool {
	seen, ok := c.reported[bundle]
	if !ok {
		seen = map[string]bool{}
		c.reported[bundle] = seen
	}
	if seen[key] {
		return false
	}
	seen[key] = true
	return true
}

func (c *formatCall) reportMissing(bundle *registry.Bundle) {
	for _, resourceID := range bundle.Missing() {
		if !c.once(bundle, "missing:"+resourceID) {
			continue
		}
		appendError(c.errs, &FormatError{
			Kind:       KindMissingResource,
			Locale:     bundle.Locale(),
			ResourceID: resourceID,
			Paths:      bundle.MissingPaths(resourceID),
			Cause:      bundle.MissingCause(resourceID),
		})
	}
}

// resolve looks key up in every resource of bundle, in resource order.
// Resolver failures other than a missing id still count as found, with the
// resolver's best effort text.
func (c *formatCall) resolve(bundle *registry.Bundle, key Key) (string, bool) {
	for _, resourceID := range bundle.ResourceIDs() {
		res, err := bundle.Resource(resourceID, c.resolver)
		if errors.Is(err, registry.ErrResourceMissing) {
			continue
		}
		if err != nil && c.once(bundle, "parse:"+resourceID) {
			appendError(c.errs, &FormatError{
				Kind:       KindResolver,
				Locale:     bundle.Locale(),
				ResourceID: resourceID,
				Cause:      err,
			})
			util.Log(c.ctx).WithError(err).
				WithField("locale", bundle.Locale().String()).
				WithField("resource", resourceID).
				Warn("resource parsed with errors")
		}
		if res == nil {
			continue
		}

		value, err := res.Format(key.ID, key.Args)
		switch {
		case err == nil:
			return value, true
		case errors.Is(err, resolver.ErrMissingID):
			continue
		default:
			appendError(c.errs, &FormatError{
				Kind:       KindResolver,
				ID:         key.ID,
				Locale:     bundle.Locale(),
				ResourceID: resourceID,
				Cause:      err,
			})
			return value, true
		}
	}
	return "", false
}
