package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"music-search-api-go/logcolors"
)

const DefaultCooldown = 15 * time.Minute

// Message is what a Notifier delivers
type Message struct {
	Title string
	Body  string
	Level Level
}

// Alerter renders events and sends them through every notifier. An incident
// (a kind plus its breaker or backend) alerts at most once per cooldown.
type Alerter struct {
	notifiers []Notifier
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewAlerter returns an alerter; a zero cooldown uses DefaultCooldown
func NewAlerter(cooldown time.Duration, notifiers ...Notifier) *Alerter {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Alerter{
		notifiers: notifiers,
		cooldown:  cooldown,
		now:       time.Now,
		lastSent:  make(map[string]time.Time),
	}
}

// Listen subscribes the alerter to every event on bus
func (a *Alerter) Listen(bus *Bus) {
	bus.Subscribe(func(e Event) { a.Handle(e) })
	log.Infof("%s Alerting through %s (cooldown %v)", logcolors.LogNotifier, a.names(), a.cooldown)
}

// Handle delivers e unless its incident already alerted within the cooldown.
// It returns how many notifiers accepted the message.
func (a *Alerter) Handle(e Event) int {
	msg, ok := render(e)
	if !ok {
		return 0
	}

	// a recovered breaker ends its incident, the next trip is news again
	if e.Kind == BreakerRecovered {
		a.ResetCooldown(BreakerOpened, e.Source)
	}

	if !a.claim(e.incident()) {
		log.Debugf("%s Suppressed %s for %q, alerted less than %v ago", logcolors.LogNotifier, e.Kind, e.Source, a.cooldown)
		return 0
	}
	return a.deliver(msg)
}

// ResetCooldown lets the next event of kind for source alert immediately
func (a *Alerter) ResetCooldown(kind Kind, source string) {
	a.mu.Lock()
	delete(a.lastSent, Event{Kind: kind, Source: source}.incident())
	a.mu.Unlock()
}

func (a *Alerter) claim(incident string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if last, ok := a.lastSent[incident]; ok && now.Sub(last) < a.cooldown {
		return false
	}
	a.lastSent[incident] = now
	return true
}

func (a *Alerter) deliver(msg Message) int {
	if len(a.notifiers) == 0 {
		log.Infof("%s %s (no notifier configured)", logcolors.LogNotifier, msg.Title)
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	delivered := 0
	for _, n := range a.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			log.Errorf("%s %s could not deliver %q: %v", logcolors.LogNotifier, n.Name(), msg.Title, err)
			continue
		}
		delivered++
	}
	log.Infof("%s %q delivered by %d/%d notifiers", logcolors.LogNotifier, msg.Title, delivered, len(a.notifiers))
	return delivered
}

func (a *Alerter) names() string {
	names := make([]string, 0, len(a.notifiers))
	for _, n := range a.notifiers {
		names = append(names, n.Name())
	}
	if len(names) == 0 {
		return "logs only"
	}
	return strings.Join(names, ", ")
}

// render turns an event into the operator-facing message
func render(e Event) (Message, bool) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	msg := Message{Level: e.Kind.Level()}
	at := e.At.UTC().Format(time.RFC3339)

	switch e.Kind {
	case BreakerOpened:
		msg.Title = fmt.Sprintf("%s catalog calls suspended", e.Source)
		msg.Body = fmt.Sprintf("The %s breaker opened at %s after %d consecutive upstream failures.\n"+
			"New searches are answered from the cache only for the next %v; uncached ones fail with 503.\n"+
			"Check MusicBrainz status and outbound connectivity.",
			e.Source, at, e.Failures, e.Cooldown)
	case BreakerRecovered:
		msg.Title = fmt.Sprintf("%s catalog calls resumed", e.Source)
		msg.Body = fmt.Sprintf("A probe request succeeded at %s and the %s breaker closed.", at, e.Source)
	case CacheUnavailable:
		msg.Title = fmt.Sprintf("%s cache unavailable", e.Source)
		msg.Body = fmt.Sprintf("The %s cache backend could not be opened at %s: %s\n"+
			"The service is running uncached, so every search spends upstream quota.",
			e.Source, at, e.Detail)
	case BackupFailed:
		msg.Title = fmt.Sprintf("%s cache backup failed", e.Source)
		msg.Body = fmt.Sprintf("A backup of the %s cache failed at %s: %s", e.Source, at, e.Detail)
	case ServerStarted:
		msg.Title = "Music search started"
		msg.Body = fmt.Sprintf("Listening on port %s with the %s cache backend since %s.", e.Detail, e.Source, at)
	default:
		return Message{}, false
	}

	msg.Title = "[" + strings.ToUpper(msg.Level.String()) + "] " + msg.Title
	return msg, true
}
