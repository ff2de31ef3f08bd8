package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/config"
	"vaultgallery/internal/fetch"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/metrics"
	"vaultgallery/internal/notifications"
	"vaultgallery/internal/resolver"
	"vaultgallery/internal/vaulterr"
)

// ErrClosed is returned for submissions arriving after Drain.
var ErrClosed = errors.New("ingest coordinator closed")

// Timer is the subset of *time.Timer the coordinator needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests substitute a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

// RatingScheduler schedules the deferred rating of a freshly stored image.
type RatingScheduler interface {
	ScheduleFollowUp(asset *catalog.Asset)
}

// referenceValidator is implemented by fetchers that can reject a reference
// before anything is buffered.
type referenceValidator interface {
	Validate(reference string) error
}

// Status describes what happened to an accepted submission.
type Status string

const (
	StatusSaved     Status = "saved"
	StatusDuplicate Status = "duplicate"
	StatusBuffered  Status = "buffered"
)

// Result is returned for every accepted submission.
type Result struct {
	Status   Status            `json:"status"`
	Category *catalog.Category `json:"category,omitempty"`
	Asset    *catalog.Asset    `json:"asset,omitempty"`
	Buffered int               `json:"buffered,omitempty"`
}

// FlushReport is the aggregate outcome of one group flush. Category joins
// the names in Categories, which lists each distinct category in the group
// in submission order.
type FlushReport struct {
	ChatID     int64
	GroupID    string
	Category   string
	Categories []string
	Saved      int
	Failed     int
}

type groupKey struct {
	chatID  int64
	groupID string
}

type item struct {
	submission Submission
	category   *catalog.Category
	mediaType  catalog.MediaType
}

type group struct {
	mu         sync.Mutex
	items      []item
	category   *catalog.Category
	timer      Timer
	generation uint64
	acked      bool
	detached   bool
}

// Coordinator reconciles submissions into catalog assets.
type Coordinator struct {
	cfg       *config.Config
	resolver  *resolver.Resolver
	store     *catalog.Store
	fetcher   fetch.Fetcher
	media     mediastore.Store
	ratings   RatingScheduler
	notifier  notifications.Service
	logger    *slog.Logger
	afterFunc AfterFunc
	onFlush   func(FlushReport)

	mu     sync.Mutex
	groups map[groupKey]*group
	closed bool

	inflight sync.WaitGroup
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithAfterFunc replaces the timer factory.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// WithFlushHook registers a callback invoked after every group flush.
func WithFlushHook(fn func(FlushReport)) Option {
	return func(c *Coordinator) { c.onFlush = fn }
}

// Dependencies bundles the collaborators a Coordinator writes through.
type Dependencies struct {
	Resolver *resolver.Resolver
	Store    *catalog.Store
	Fetcher  fetch.Fetcher
	Media    mediastore.Store
	Ratings  RatingScheduler
	Notifier notifications.Service
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(cfg *config.Config, deps Dependencies, logger *slog.Logger, opts ...Option) *Coordinator {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	c := &Coordinator{
		cfg:      cfg,
		resolver: deps.Resolver,
		store:    deps.Store,
		fetcher:  deps.Fetcher,
		media:    deps.Media,
		ratings:  deps.Ratings,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "ingest"),
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		groups: make(map[groupKey]*group),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit accepts one submission. Ungrouped items are persisted before Submit
// returns; grouped items are buffered and persisted when the group flushes.
func (c *Coordinator) Submit(ctx context.Context, sub Submission) (Result, error) {
	ctx = logging.WithChatID(ctx, sub.ChatID)
	if sub.Grouped() {
		ctx = logging.WithGroupID(ctx, sub.GroupID)
	}
	result, err := c.submit(ctx, sub)
	metrics.RecordSubmission(sub.Grouped(), err)
	if err != nil {
		logging.WithContext(ctx, c.logger).Info("submission rejected",
			logging.String("reason", vaulterr.UserMessage(err)),
			logging.String(logging.FieldEventType, "submission_rejected"),
		)
		c.notify(ctx, "rejected", c.notifier.NotifyRejected(ctx, sub.ChatID, vaulterr.UserMessage(err)))
	}
	return result, err
}

func (c *Coordinator) submit(ctx context.Context, sub Submission) (Result, error) {
	if !c.cfg.IsAuthorized(sub.UserID) {
		return Result{}, vaulterr.Unauthorized("You are not authorized to upload media.")
	}
	if sub.Reference == "" {
		return Result{}, vaulterr.Validation("Please send a photo or video. " + UsageHint)
	}
	if v, ok := c.fetcher.(referenceValidator); ok {
		if err := v.Validate(sub.Reference); err != nil {
			return Result{}, err
		}
	}
	mediaType, err := declaredMediaType(sub)
	if err != nil {
		return Result{}, err
	}
	if limit := c.cfg.Ingest.MaxVideoSeconds; mediaType == catalog.MediaVideo && limit > 0 && sub.DurationSeconds > limit {
		return Result{}, vaulterr.Validation(fmt.Sprintf("Video is %ds long; the limit is %ds", sub.DurationSeconds, limit))
	}
	name, err := ParseCaption(sub.Caption)
	if err != nil {
		return Result{}, err
	}

	var category *catalog.Category
	if name != "" {
		category, _, err = c.resolver.GetOrCreate(ctx, name)
		if err != nil {
			return Result{}, err
		}
	}

	if !sub.Grouped() {
		if category == nil {
			return Result{}, vaulterr.Validation("Missing caption. " + UsageHint)
		}
		if c.isClosed() {
			return Result{}, ErrClosed
		}
		return c.persistSingle(ctx, item{submission: sub, category: category, mediaType: mediaType})
	}
	return c.buffer(ctx, sub, category, mediaType)
}

func (c *Coordinator) persistSingle(ctx context.Context, it item) (Result, error) {
	asset, created, err := c.persist(context.WithoutCancel(ctx), it)
	if err != nil {
		return Result{}, err
	}
	c.notify(ctx, "saved", c.notifier.NotifySaved(ctx, it.submission.ChatID, it.category.DisplayName, string(asset.MediaType)))
	status := StatusSaved
	if !created {
		status = StatusDuplicate
	}
	return Result{Status: status, Category: it.category, Asset: asset}, nil
}

func (c *Coordinator) buffer(ctx context.Context, sub Submission, category *catalog.Category, mediaType catalog.MediaType) (Result, error) {
	key := groupKey{chatID: sub.ChatID, groupID: sub.GroupID}
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Result{}, ErrClosed
		}
		g := c.groups[key]
		if g == nil {
			if category == nil {
				c.mu.Unlock()
				return Result{}, vaulterr.Validation("Missing caption. " + UsageHint)
			}
			g = &group{}
			c.groups[key] = g
			metrics.GroupsBuffering.Inc()
		}
		c.mu.Unlock()

		g.mu.Lock()
		if g.detached {
			// Flushed between lookup and lock; a fresh group takes this item.
			g.mu.Unlock()
			continue
		}
		if capacity := c.cfg.Ingest.GroupCapacity; capacity > 0 && len(g.items) >= capacity {
			g.mu.Unlock()
			return Result{}, &vaulterr.CapacityExceededError{Capacity: capacity}
		}
		// The first caption names the group; a later caption applies only to its own item.
		if g.category == nil {
			g.category = category
		}
		own := category
		if own == nil {
			own = g.category
		}
		g.items = append(g.items, item{submission: sub, category: own, mediaType: mediaType})
		g.generation++
		if g.timer != nil {
			g.timer.Stop()
		}
		gen := g.generation
		g.timer = c.afterFunc(c.cfg.DebounceWindow(), func() { c.fire(key, g, gen) })
		ack := category != nil && !g.acked
		if ack {
			g.acked = true
		}
		count := len(g.items)
		g.mu.Unlock()

		if ack {
			c.notify(ctx, "queued", c.notifier.NotifyQueued(ctx, sub.ChatID, own.DisplayName))
		}
		return Result{Status: StatusBuffered, Category: own, Buffered: count}, nil
	}
}

// fire runs when a group's debounce timer expires. Timers superseded by a
// later append carry an old generation and do nothing.
func (c *Coordinator) fire(key groupKey, g *group, gen uint64) {
	items, category, ok := c.detach(key, g, func(g *group) bool { return g.generation == gen })
	if !ok {
		return
	}
	ctx := logging.WithGroupID(logging.WithChatID(context.Background(), key.chatID), key.groupID)
	c.flush(ctx, key, category, items)
}

// detach removes g from the coordinator under its lock. The caller owns the
// returned items and must call flush, which releases the inflight slot.
func (c *Coordinator) detach(key groupKey, g *group, accept func(*group) bool) ([]item, *catalog.Category, bool) {
	g.mu.Lock()
	if g.detached || !accept(g) {
		g.mu.Unlock()
		return nil, nil, false
	}
	g.detached = true
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	items, category := g.items, g.category
	g.items = nil
	c.inflight.Add(1)
	g.mu.Unlock()

	c.mu.Lock()
	if c.groups[key] == g {
		delete(c.groups, key)
		metrics.GroupsBuffering.Dec()
	}
	c.mu.Unlock()
	return items, category, true
}

func (c *Coordinator) flush(ctx context.Context, key groupKey, category *catalog.Category, items []item) {
	defer c.inflight.Done()
	start := time.Now()
	logger := logging.WithContext(ctx, c.logger)

	var saved, failed atomic.Int64
	eg := new(errgroup.Group)
	eg.SetLimit(max(c.cfg.Ingest.FlushConcurrency, 1))
	for _, it := range items {
		eg.Go(func() error {
			if _, _, err := c.persist(ctx, it); err != nil {
				failed.Add(1)
				logger.Warn("buffered item failed",
					logging.String("reference", it.submission.Reference),
					logging.Error(err),
					logging.String(logging.FieldEventType, "item_persist_failed"),
					logging.String(logging.FieldImpact, "item counted as failed in group report"),
				)
				return nil
			}
			saved.Add(1)
			return nil
		})
	}
	_ = eg.Wait()
	metrics.RecordFlush(time.Since(start))

	names := categoryNames(category, items)
	name := strings.Join(names, ", ")
	report := FlushReport{
		ChatID:     key.chatID,
		GroupID:    key.groupID,
		Category:   name,
		Categories: names,
		Saved:      int(saved.Load()),
		Failed:     int(failed.Load()),
	}
	logger.Info("group flushed",
		logging.String(logging.FieldCategory, name),
		logging.Int("saved", report.Saved),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", time.Since(start)),
	)
	c.notify(ctx, "finished", c.notifier.NotifyGroupFinished(ctx, key.chatID, name, report.Saved, report.Failed))
	if c.onFlush != nil {
		c.onFlush(report)
	}
}

func categoryNames(fallback *catalog.Category, items []item) []string {
	var names []string
	seen := make(map[int64]bool)
	add := func(c *catalog.Category) {
		if c == nil || seen[c.ID] {
			return
		}
		seen[c.ID] = true
		names = append(names, c.DisplayName)
	}
	for _, it := range items {
		add(it.category)
	}
	if len(names) == 0 {
		add(fallback)
	}
	return names
}

// Pending returns the number of groups currently buffering.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.groups)
}

// Drain stops accepting submissions, flushes every buffering group
// immediately and waits for all flushes to finish or ctx to end.
func (c *Coordinator) Drain(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	pending := make(map[groupKey]*group, len(c.groups))
	for key, g := range c.groups {
		pending[key] = g
	}
	c.mu.Unlock()

	flushCtx := context.WithoutCancel(ctx)
	for key, g := range pending {
		items, category, ok := c.detach(key, g, func(*group) bool { return true })
		if !ok {
			continue
		}
		go c.flush(logging.WithGroupID(logging.WithChatID(flushCtx, key.chatID), key.groupID), key, category, items)
	}

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator) notify(ctx context.Context, kind string, err error) {
	if err == nil {
		return
	}
	logging.WithContext(ctx, c.logger).Warn("acknowledgment failed",
		logging.String("kind", kind),
		logging.Error(err),
		logging.String(logging.FieldEventType, "notification_failed"),
		logging.String(logging.FieldImpact, "client not informed"),
	)
}
