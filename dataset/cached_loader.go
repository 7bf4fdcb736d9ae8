package dataset

import (
	"context"
	"sync"
)

// CachedLoader loads the dataset from an underlying Loader once and then
// returns the same slice to every caller. A failed load is not cached, so
// the next call retries the underlying loader.
type CachedLoader struct {
	loader  Loader
	records []Observation
	loaded  bool
	mux     *sync.RWMutex
}

func NewCachedLoader(loader Loader) *CachedLoader {
	return &CachedLoader{
		loader: loader,
		mux:    &sync.RWMutex{},
	}
}

func (l *CachedLoader) Load(ctx context.Context) ([]Observation, error) {
	l.mux.RLock()
	if l.loaded {
		defer l.mux.RUnlock()
		return l.records, nil
	}
	l.mux.RUnlock()

	l.mux.Lock()
	defer l.mux.Unlock()
	// Another caller may have completed the load while we waited.
	if l.loaded {
		return l.records, nil
	}

	records, err := l.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	l.records = records
	l.loaded = true
	return records, nil
}
