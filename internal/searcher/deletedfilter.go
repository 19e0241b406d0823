package searcher

import "github.com/cinderfts/cinder/internal/matcher"

// deletedFilterMatcher skips over docids isDeleted reports as tombstoned,
// the Go shape of original_source/src/whoosh/matching.py's
// FilterMatcher applied with a segment's deletion set as the exclude
// filter. Every method but Next/SkipTo/SkipToQuality is inherited
// unchanged from the wrapped matcher.Matcher via embedding.
type deletedFilterMatcher struct {
	matcher.Matcher
	isDeleted func(uint64) bool
}

// newDeletedFilter wraps m so that it never exposes a deleted docid,
// advancing past any leading deleted run before returning.
func newDeletedFilter(m matcher.Matcher, isDeleted func(uint64) bool) matcher.Matcher {
	if isDeleted == nil {
		return m
	}
	d := &deletedFilterMatcher{Matcher: m, isDeleted: isDeleted}
	d.skipDeleted()
	return d
}

func (d *deletedFilterMatcher) skipDeleted() (bool, error) {
	for d.Matcher.IsActive() && d.isDeleted(d.Matcher.ID()) {
		ok, err := d.Matcher.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return d.Matcher.IsActive(), nil
}

func (d *deletedFilterMatcher) Next() (bool, error) {
	if _, err := d.Matcher.Next(); err != nil {
		return false, err
	}
	return d.skipDeleted()
}

func (d *deletedFilterMatcher) SkipTo(target uint64) (bool, error) {
	if _, err := d.Matcher.SkipTo(target); err != nil {
		return false, err
	}
	return d.skipDeleted()
}

func (d *deletedFilterMatcher) SkipToQuality(min float64) (bool, error) {
	if _, err := d.Matcher.SkipToQuality(min); err != nil {
		return false, err
	}
	return d.skipDeleted()
}
