package graceperiod

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/settings"
	"golang.org/x/sync/singleflight"
)

const DefaultMinutes = 30

// Provider serves the late-arrival grace window with an in-process cache.
// Concurrent cache-miss reloads are single-flighted so N simultaneous callers
// produce exactly one backing read. Get never returns an error: on a read
// failure it serves the last good value, or the default when none exists.
type Provider struct {
	repo settings.Repository
	ttl  time.Duration
	def  int

	group singleflight.Group

	mu       sync.RWMutex
	value    int
	loadedAt time.Time
	loaded   bool
}

func NewProvider(repo settings.Repository, ttl time.Duration, defaultMinutes int) *Provider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if defaultMinutes <= 0 {
		defaultMinutes = DefaultMinutes
	}
	return &Provider{repo: repo, ttl: ttl, def: defaultMinutes}
}

// Get returns the grace period in minutes.
func (p *Provider) Get(ctx context.Context) int {
	p.mu.RLock()
	if p.loaded && time.Since(p.loadedAt) < p.ttl {
		v := p.value
		p.mu.RUnlock()
		return v
	}
	p.mu.RUnlock()

	v, _, _ := p.group.Do(settings.KeyGracePeriodMinutes, func() (interface{}, error) {
		return p.reload(ctx), nil
	})
	return v.(int)
}

// Invalidate busts the cache. Called by the settings-update path.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.loaded = false
	p.mu.Unlock()
}

func (p *Provider) reload(ctx context.Context) int {
	setting, err := p.repo.Get(ctx, settings.KeyGracePeriodMinutes)
	if err != nil {
		p.mu.RLock()
		loaded, last := p.loaded, p.value
		p.mu.RUnlock()
		if loaded {
			slog.Warn("grace period reload failed, serving last good value", "error", err, "minutes", last)
			return last
		}
		slog.Warn("grace period reload failed, serving default", "error", err, "minutes", p.def)
		return p.def
	}

	minutes, convErr := strconv.Atoi(setting.Value)
	if convErr != nil || minutes < 0 {
		slog.Warn("grace period setting malformed, serving default", "value", setting.Value, "minutes", p.def)
		minutes = p.def
	}

	p.mu.Lock()
	p.value = minutes
	p.loadedAt = time.Now()
	p.loaded = true
	p.mu.Unlock()

	return minutes
}
