package sqlite

import (
	"time"

	"github.com/hasna/convo/internal/core"
	"github.com/hasna/convo/internal/storage"
)

// Compile-time interface check.
var _ storage.Store = (*Resilient)(nil)

// Resilient wraps every Store method with breaker + busy-retry so that
// transient SQLite contention is absorbed before callers see it.
type Resilient struct {
	inner   *Store
	breaker *Breaker
	retry   RetryConfig
}

// NewResilient wraps inner with default breaker settings (threshold=5,
// reset=30s) and default retry config.
func NewResilient(inner *Store) *Resilient {
	return &Resilient{
		inner:   inner,
		breaker: NewBreaker(5, 30*time.Second),
		retry:   DefaultRetryConfig(),
	}
}

// BreakerState exposes the breaker state for the status endpoint.
func (r *Resilient) BreakerState() string { return r.breaker.State() }

// Path returns the backing file path of the wrapped store.
func (r *Resilient) Path() string { return r.inner.Path() }

func guard[T any](r *Resilient, fn func() (T, error)) (T, error) {
	var result T
	err := r.breaker.Do(func() error {
		return retryOnBusy(r.retry, func() error {
			var innerErr error
			result, innerErr = fn()
			return innerErr
		}, time.Sleep)
	})
	return result, err
}

func (r *Resilient) Append(opts storage.AppendOptions) (core.Message, error) {
	return guard(r, func() (core.Message, error) { return r.inner.Append(opts) })
}

func (r *Resilient) Query(filter storage.MessageFilter) ([]core.Message, error) {
	return guard(r, func() ([]core.Message, error) { return r.inner.Query(filter) })
}

func (r *Resilient) Get(id int64) (core.Message, error) {
	return guard(r, func() (core.Message, error) { return r.inner.Get(id) })
}

func (r *Resilient) MarkRead(ids []int64, reader string) (int, error) {
	return guard(r, func() (int, error) { return r.inner.MarkRead(ids, reader) })
}

func (r *Resilient) MarkSessionRead(sessionID, reader string) (int, error) {
	return guard(r, func() (int, error) { return r.inner.MarkSessionRead(sessionID, reader) })
}

func (r *Resilient) MarkChannelRead(channel, reader string) (int, error) {
	return guard(r, func() (int, error) { return r.inner.MarkChannelRead(channel, reader) })
}

func (r *Resilient) ListSessions(agent string) ([]core.Session, error) {
	return guard(r, func() ([]core.Session, error) { return r.inner.ListSessions(agent) })
}

func (r *Resilient) GetSession(sessionID, agent string) (core.Session, error) {
	return guard(r, func() (core.Session, error) { return r.inner.GetSession(sessionID, agent) })
}

func (r *Resilient) CreateChannel(name, createdBy, description string) (core.Channel, error) {
	return guard(r, func() (core.Channel, error) { return r.inner.CreateChannel(name, createdBy, description) })
}

func (r *Resilient) ListChannels() ([]core.ChannelInfo, error) {
	return guard(r, func() ([]core.ChannelInfo, error) { return r.inner.ListChannels() })
}

func (r *Resilient) GetChannel(name string) (core.ChannelInfo, error) {
	return guard(r, func() (core.ChannelInfo, error) { return r.inner.GetChannel(name) })
}

func (r *Resilient) JoinChannel(name, agent string) (bool, error) {
	return guard(r, func() (bool, error) { return r.inner.JoinChannel(name, agent) })
}

func (r *Resilient) LeaveChannel(name, agent string) (bool, error) {
	return guard(r, func() (bool, error) { return r.inner.LeaveChannel(name, agent) })
}

func (r *Resilient) ChannelMembers(name string) ([]core.ChannelMember, error) {
	return guard(r, func() ([]core.ChannelMember, error) { return r.inner.ChannelMembers(name) })
}

func (r *Resilient) IsChannelMember(name, agent string) (bool, error) {
	return guard(r, func() (bool, error) { return r.inner.IsChannelMember(name, agent) })
}

func (r *Resilient) Stats() (storage.Stats, error) {
	return guard(r, func() (storage.Stats, error) { return r.inner.Stats() })
}

// Close delegates directly without breaker or retry.
func (r *Resilient) Close() error { return r.inner.Close() }
