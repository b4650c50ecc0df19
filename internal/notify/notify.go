// Package notify carries user-facing messages from services back to
// whichever surface rendered the request (HTML flash or JSON body).
package notify

import (
	"sync"

	"github.com/bcnelson/sendernet-subscriptions/internal/domain"
)

// Channel receives user-facing notices.
type Channel interface {
	Notify(level domain.NoticeLevel, message string)
}

// Collector gathers the notices produced while handling one request.
type Collector struct {
	mu      sync.Mutex
	notices []domain.Notice
}

// Ensure Collector implements Channel.
var _ Channel = (*Collector)(nil)

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Notify records a notice.
func (c *Collector) Notify(level domain.NoticeLevel, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, domain.Notice{Level: level, Message: message})
}

// Notices returns a copy of the recorded notices in order.
func (c *Collector) Notices() []domain.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Len returns the number of recorded notices.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notices)
}

type discard struct{}

func (discard) Notify(domain.NoticeLevel, string) {}

// Discard drops every notice.
var Discard Channel = discard{}
