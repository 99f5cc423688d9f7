package status

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultInterval is the refresh period for status readouts.
	DefaultInterval = 5 * time.Second
	// sourceTimeout bounds one source read within a cycle.
	sourceTimeout = 3 * time.Second
)

// Poller refreshes every registered source on a fixed interval. Sources
// are read in parallel and individually fault-isolated: one slow or
// failing source neither blocks the others nor clears its own last good
// value. The poller only writes the cache; it never speaks.
type Poller struct {
	logger   *slog.Logger
	interval time.Duration
	sources  []Source
	onUpdate func()

	mu      sync.Mutex
	cache   map[string]Entry
	started bool

	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// NewPoller builds a poller over the given sources. A non-positive
// interval falls back to DefaultInterval.
func NewPoller(sources []Source, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		logger:   logger,
		interval: interval,
		sources:  sources,
		cache:    make(map[string]Entry, len(sources)),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start runs one immediate cycle synchronously, so the first snapshot is
// populated, then polls in the background. onUpdate fires after every
// cycle that changed at least one entry; it may be nil.
func (p *Poller) Start(onUpdate func()) {
	p.onUpdate = onUpdate
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	p.cycle()

	go func() {
		defer close(p.finished)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				if p.cycle() && p.onUpdate != nil {
					p.onUpdate()
				}
			}
		}
	}()
}

// Stop signals the poller and waits for the loop to exit. A cycle in
// flight completes first. Idempotent and safe before Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.finished
	}
}

// Snapshot returns the cached entries in source registration order.
// Sources that have never produced a value are omitted.
func (p *Poller) Snapshot() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := make([]Entry, 0, len(p.sources))
	for _, source := range p.sources {
		if entry, ok := p.cache[source.Name()]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// cycle reads all sources in parallel and reports whether anything
// changed.
func (p *Poller) cycle() bool {
	changed := false
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, source := range p.sources {
		source := source
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.readSource(source) {
				mu.Lock()
				changed = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return changed
}

// readSource reads one source under its own timeout and upserts the
// cache on success. The read runs on a separate goroutine so a source
// that ignores its context cannot stall the cycle past the timeout.
func (p *Poller) readSource(source Source) bool {
	ctx, cancel := context.WithTimeout(context.Background(), sourceTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	results := make(chan result, 1)
	go func() {
		text, err := source.Read(ctx)
		results <- result{text: text, err: err}
	}()

	select {
	case r := <-results:
		if r.err != nil {
			p.log("status source failed", source.Name(), r.err)
			return false
		}
		return p.upsert(source.Name(), r.text)
	case <-ctx.Done():
		p.log("status source timed out", source.Name(), ctx.Err())
		return false
	}
}

func (p *Poller) upsert(name, text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous, ok := p.cache[name]
	p.cache[name] = Entry{Name: name, Text: text, UpdatedAt: time.Now()}
	return !ok || previous.Text != text
}

func (p *Poller) log(message, source string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(message, "source", source, "error", err.Error())
}
