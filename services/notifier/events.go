package notifier

import (
	"sync"
	"time"
)

// Kind names something an operator should hear about
type Kind string

const (
	BreakerOpened    Kind = "breaker_opened"
	BreakerRecovered Kind = "breaker_recovered"
	CacheUnavailable Kind = "cache_unavailable"
	BackupFailed     Kind = "backup_failed"
	ServerStarted    Kind = "server_started"
)

// Level orders alerts by urgency
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelWarning:
		return "warning"
	default:
		return "info"
	}
}

var kindLevels = map[Kind]Level{
	BreakerOpened:    LevelCritical,
	CacheUnavailable: LevelCritical,
	BackupFailed:     LevelWarning,
	BreakerRecovered: LevelInfo,
	ServerStarted:    LevelInfo,
}

// Level returns the urgency of k. Unknown kinds are info.
func (k Kind) Level() Level {
	return kindLevels[k]
}

// Event is one occurrence of a Kind. Source is the breaker or cache backend
// it concerns; Detail carries the error text or the listening port.
type Event struct {
	Kind     Kind
	Source   string
	Detail   string
	Failures int
	Cooldown time.Duration
	At       time.Time
}

// incident identifies the ongoing problem an event belongs to. Repeats of
// the same incident share one cooldown.
func (e Event) incident() string {
	return string(e.Kind) + "/" + e.Source
}

type subscription struct {
	kinds map[Kind]bool // empty means every kind
	fn    func(Event)
}

// Bus fans events out to subscribers, each call on its own goroutine
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewBus returns a bus with no subscribers
func NewBus() *Bus {
	return &Bus{}
}

var defaultBus = NewBus()

// Default is the process-wide bus the Publish helpers use
func Default() *Bus {
	return defaultBus
}

// Subscribe registers fn for the given kinds, or for every kind when none are given
func (b *Bus) Subscribe(fn func(Event), kinds ...Kind) {
	sub := subscription{fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// Publish delivers e without waiting for subscribers. It is safe to call
// while holding locks.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.kinds == nil || sub.kinds[e.Kind] {
			go sub.fn(e)
		}
	}
}

// ===== PUBLISH HELPERS =====

func PublishBreakerOpened(name string, failures int, cooldown time.Duration) {
	defaultBus.Publish(Event{Kind: BreakerOpened, Source: name, Failures: failures, Cooldown: cooldown})
}

func PublishBreakerRecovered(name string) {
	defaultBus.Publish(Event{Kind: BreakerRecovered, Source: name})
}

func PublishCacheUnavailable(backend string, err error) {
	defaultBus.Publish(Event{Kind: CacheUnavailable, Source: backend, Detail: err.Error()})
}

func PublishBackupFailed(backend string, err error) {
	defaultBus.Publish(Event{Kind: BackupFailed, Source: backend, Detail: err.Error()})
}

func PublishServerStarted(port, backend string) {
	defaultBus.Publish(Event{Kind: ServerStarted, Source: backend, Detail: port})
}
