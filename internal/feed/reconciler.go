package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// BellInterval drives the always-visible notification bell.
	BellInterval = 5 * time.Second
	// BadgeInterval drives the lighter summary badge.
	BadgeInterval = 30 * time.Second
)

// FeedSource fetches the caller's current feed.
type FeedSource interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Confirmer persists read marks on the server.
type Confirmer interface {
	ConfirmRead(ctx context.Context, id int64) error
	ConfirmAllRead(ctx context.Context) error
}

type Options struct {
	Interval time.Duration
	// FetchTimeout bounds each request. Defaults to four fifths of Interval.
	FetchTimeout time.Duration
	// OnUpdate, when set, is called after every applied snapshot.
	OnUpdate func(entries []Entry, unread int)
}

// Reconciler polls a FeedSource into a Store and confirms local read marks.
type Reconciler struct {
	store   *Store
	source  FeedSource
	confirm Confirmer
	opts    Options
	logger  zerolog.Logger

	refresh  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	inflight sync.WaitGroup
}

func NewReconciler(store *Store, source FeedSource, confirm Confirmer, opts Options, logger zerolog.Logger) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = BellInterval
	}
	if opts.FetchTimeout <= 0 || opts.FetchTimeout >= opts.Interval {
		opts.FetchTimeout = opts.Interval * 4 / 5
	}
	return &Reconciler{
		store:   store,
		source:  source,
		confirm: confirm,
		opts:    opts,
		logger:  logger.With().Str("component", "reconciler").Logger(),
		refresh: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (r *Reconciler) Store() *Store { return r.store }

// Run fetches once, then on every tick and on every requested refresh. It
// blocks until ctx is cancelled or Stop is called, and disposes the store
// on the way out.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	defer r.store.Dispose()

	r.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.poll(ctx)
		case <-r.refresh:
			r.poll(ctx)
		}
	}
}

// Stop ends Run and disposes the store. Confirmations already in flight
// finish but no longer touch the store.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() {
		r.store.Dispose()
		close(r.stop)
	})
}

// Wait blocks until in-flight confirmations have returned.
func (r *Reconciler) Wait() {
	r.inflight.Wait()
}

// Refresh requests an immediate out-of-band fetch. Requests made while one
// is already queued are merged.
func (r *Reconciler) Refresh() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

func (r *Reconciler) poll(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	snap, err := r.source.Fetch(fctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("feed fetch failed")
		return
	}
	if !r.store.UpsertAll(snap.Notifications) {
		r.logger.Debug().Msg("store disposed, snapshot discarded")
		return
	}
	if r.opts.OnUpdate != nil {
		r.opts.OnUpdate(r.store.Entries(), r.store.UnreadCount())
	}
}

// MarkRead applies the read mark locally, then confirms it in the
// background. A failed confirmation drops the local mark and triggers a
// refresh instead of a rollback.
func (r *Reconciler) MarkRead(id int64) {
	if r.store.Disposed() {
		return
	}
	var marked []int64
	if r.store.MarkRead(id) {
		marked = []int64{id}
	}
	r.confirmAsync(func(ctx context.Context) error { return r.confirm.ConfirmRead(ctx, id) }, marked)
}

func (r *Reconciler) MarkAllRead() {
	if r.store.Disposed() {
		return
	}
	marked := r.store.MarkAllRead()
	r.confirmAsync(r.confirm.ConfirmAllRead, marked)
}

func (r *Reconciler) confirmAsync(fn func(context.Context) error, marked []int64) {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.FetchTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			if r.store.Disposed() {
				return
			}
			r.logger.Warn().Err(err).Int("marks", len(marked)).Msg("read confirmation failed, refreshing")
			r.store.Unpend(marked...)
			r.Refresh()
		}
	}()
}
