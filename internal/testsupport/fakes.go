package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FakeFetcher serves payloads from memory and records every call.
type FakeFetcher struct {
	mu       sync.Mutex
	payloads map[string][]byte
	failures map[string]error
	calls    []string
}

// NewFakeFetcher returns an empty FakeFetcher.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		payloads: make(map[string][]byte),
		failures: make(map[string]error),
	}
}

// Set registers the bytes returned for reference.
func (f *FakeFetcher) Set(reference string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[reference] = data
}

// Fail makes reference return err.
func (f *FakeFetcher) Fail(reference string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[reference] = err
}

// Fetch implements fetch.Fetcher.
func (f *FakeFetcher) Fetch(_ context.Context, reference string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reference)
	if err, ok := f.failures[reference]; ok {
		return nil, err
	}
	data, ok := f.payloads[reference]
	if !ok {
		return nil, fmt.Errorf("fake fetch: unknown reference %q", reference)
	}
	return append([]byte(nil), data...), nil
}

// Calls returns the references fetched so far.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Notification is one acknowledgment captured by RecordingNotifier.
type Notification struct {
	Kind     string
	ChatID   int64
	Category string
	Detail   string
	Saved    int
	Failed   int
}

// RecordingNotifier captures acknowledgments instead of sending them.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Notification
	signal chan struct{}
}

// NewRecordingNotifier returns an empty RecordingNotifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{signal: make(chan struct{}, 64)}
}

func (r *RecordingNotifier) record(n Notification) error {
	r.mu.Lock()
	r.events = append(r.events, n)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
	return nil
}

func (r *RecordingNotifier) NotifyQueued(_ context.Context, chatID int64, category string) error {
	return r.record(Notification{Kind: "queued", ChatID: chatID, Category: category})
}

func (r *RecordingNotifier) NotifySaved(_ context.Context, chatID int64, category, mediaType string) error {
	return r.record(Notification{Kind: "saved", ChatID: chatID, Category: category, Detail: mediaType})
}

func (r *RecordingNotifier) NotifyRejected(_ context.Context, chatID int64, reason string) error {
	return r.record(Notification{Kind: "rejected", ChatID: chatID, Detail: reason})
}

func (r *RecordingNotifier) NotifyGroupFinished(_ context.Context, chatID int64, category string, saved, failed int) error {
	return r.record(Notification{Kind: "finished", ChatID: chatID, Category: category, Saved: saved, Failed: failed})
}

// Events returns a snapshot of the captured acknowledgments.
func (r *RecordingNotifier) Events() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.events...)
}

// Count returns how many acknowledgments of kind were captured.
func (r *RecordingNotifier) Count(kind string) int {
	count := 0
	for _, n := range r.Events() {
		if n.Kind == kind {
			count++
		}
	}
	return count
}

// WaitFor blocks until an acknowledgment of kind has been captured or ctx ends.
func (r *RecordingNotifier) WaitFor(ctx context.Context, kind string) (Notification, error) {
	for {
		for _, n := range r.Events() {
			if n.Kind == kind {
				return n, nil
			}
		}
		select {
		case <-r.signal:
		case <-ctx.Done():
			return Notification{}, errors.New("timed out waiting for " + kind + " notification")
		}
	}
}
