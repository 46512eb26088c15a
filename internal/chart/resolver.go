package chart

import "candleboard/internal/domain"

// ResolutionSource says where a date's news came from.
type ResolutionSource int

const (
	// FromIndex means the local day-bucketed index answered without any
	// network access.
	FromIndex ResolutionSource = iota
	// FromFallback means the external newsByDate collaborator was (or is
	// being) consulted.
	FromFallback
)

// ResolutionState is the fallback lookup's progress.
type ResolutionState int

const (
	Resolved ResolutionState = iota
	Pending
	Failed
)

// Resolution is the typed outcome of a date selection. Failed carries no
// items and is surfaced as "no news found": news absence is never a
// chart-level error.
type Resolution struct {
	Date   string
	Source ResolutionSource
	State  ResolutionState
	Items  []domain.NewsItem
	Gen    uint64
}

// Resolver correlates date selections with news. Index hits resolve
// immediately and offline; misses go through the fallback collaborator.
// Every fallback request carries a generation tag, and completions whose
// generation is no longer current are discarded, so a slow response for
// an older selection can never overwrite a newer selection's result.
type Resolver struct {
	index   *NewsIndex
	gen     uint64
	current Resolution
}

// Bind attaches the resolver to a freshly built index, invalidating any
// outstanding fallback request.
func (r *Resolver) Bind(index *NewsIndex) {
	r.index = index
	r.gen++
	r.current = Resolution{}
}

// Resolve handles a date-selection event. When needFetch is true the
// caller must perform the fallback lookup and report it via Complete
// with the returned resolution's generation.
func (r *Resolver) Resolve(date string) (res Resolution, needFetch bool) {
	if items := r.index.Lookup(date); len(items) > 0 {
		r.current = Resolution{Date: date, Source: FromIndex, State: Resolved, Items: items, Gen: r.gen}
		return r.current, false
	}
	r.gen++
	r.current = Resolution{Date: date, Source: FromFallback, State: Pending, Gen: r.gen}
	return r.current, true
}

// Complete reports the outcome of a fallback lookup. Results tagged with
// a stale generation are ignored: last selection wins. A lookup error
// degrades to the empty "no news found" display rather than an error.
func (r *Resolver) Complete(gen uint64, items []domain.NewsItem, err error) (Resolution, bool) {
	if gen != r.gen || r.current.State != Pending {
		return r.current, false
	}
	if err != nil {
		r.current.State = Failed
		r.current.Items = nil
	} else {
		r.current.State = Resolved
		r.current.Items = items
	}
	return r.current, true
}

// Current returns the latest resolution.
func (r *Resolver) Current() Resolution { return r.current }
