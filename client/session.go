package client

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

// Status is the lifecycle state of a debate session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusStreaming  Status = "streaming"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DefaultMaxRounds matches the backend default.
const DefaultMaxRounds = 4

// ErrEmptyTopic is returned by Start before any network activity when
// the topic is empty.
var ErrEmptyTopic = errors.New("debate topic must not be empty")

// Turn is one reconciled utterance attributed to a debate side. Round is
// advisory metadata from the backend, never an ordering key.
type Turn struct {
	Speaker    Speaker
	Text       string
	Round      int
	ProducedAt time.Time
}

// Options are the recognized debate settings.
type Options struct {
	MaxRounds    int
	IncludeAudio bool
	ProVoice     string
	ConVoice     string
	Mode         string // "text_only" or "both"
}

// Session is a point-in-time snapshot of one debate run. Turns are
// chronological but replaceable: a complete event carrying canonical
// history supersedes incrementally accumulated turns wholesale.
type Session struct {
	Topic     string
	Status    Status
	Turns     []Turn
	LastError string
	Config    Options
}

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	Transport Transport
	// Fallback, when set, is invoked if no event arrives within
	// ConnectTimeout of Start.
	Fallback FallbackRunner
	// ConnectTimeout bounds the wait for stream liveness. Zero disables
	// the fallback timer.
	ConnectTimeout time.Duration
	// IdleTimeout fails the session if no event arrives for this long
	// while streaming. Zero disables the watchdog.
	IdleTimeout time.Duration
	// OnChange is invoked with a snapshot after every state change.
	OnChange func(Session)
}

// Controller owns a DebateSession and drives it through its lifecycle by
// reconciling stream events. Events are processed one at a time; the
// transport never mutates session state directly.
type Controller struct {
	transport      Transport
	fallback       FallbackRunner
	connectTimeout time.Duration
	idleTimeout    time.Duration
	onChange       func(Session)

	mu           sync.Mutex
	session      Session
	handle       Handle
	gen          int
	connectTimer *time.Timer
	idleTimer    *time.Timer
}

// NewController creates an idle controller.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		transport:      cfg.Transport,
		fallback:       cfg.Fallback,
		connectTimeout: cfg.ConnectTimeout,
		idleTimeout:    cfg.IdleTimeout,
		onChange:       cfg.OnChange,
		session:        Session{Status: StatusIdle},
	}
}

// Start begins a fresh debate run, replacing any prior one. A previously
// open transport handle is closed before the new connection is opened.
// An empty topic is rejected synchronously without touching session
// state or the network.
func (c *Controller) Start(ctx context.Context, topic string, opts Options) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyTopic
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}

	req := &DebateRequest{
		Claim:        topic,
		MaxRounds:    opts.MaxRounds,
		IncludeAudio: opts.IncludeAudio,
		ProVoice:     opts.ProVoice,
		ConVoice:     opts.ConVoice,
		DebateMode:   opts.Mode,
	}

	c.mu.Lock()
	c.shutdownLocked()
	c.gen++
	gen := c.gen
	c.session = Session{Topic: topic, Status: StatusConnecting, Config: opts}

	handle, err := c.transport.Open(ctx, req, Handlers{
		OnEvent: func(ev *StreamEvent) { c.handleEvent(gen, ev) },
	})
	if err != nil {
		c.session.Status = StatusFailed
		c.session.LastError = err.Error()
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.handle = handle

	if c.connectTimeout > 0 {
		c.connectTimer = time.AfterFunc(c.connectTimeout, func() {
			c.connectTimedOut(ctx, gen, req)
		})
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Reset discards the current run and returns the session to Idle,
// closing any still-open transport handle.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.gen++
	c.shutdownLocked()
	c.session = Session{Status: StatusIdle}
	c.mu.Unlock()
	c.notify()
}

// Close releases the transport handle and timers without altering
// session state. Safe to call multiple times.
func (c *Controller) Close() {
	c.mu.Lock()
	c.shutdownLocked()
	c.mu.Unlock()
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Session {
	s := c.session
	s.Turns = append([]Turn(nil), c.session.Turns...)
	return s
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

// handleEvent folds one stream event into session state. Events for a
// superseded run or a terminal session are ignored.
func (c *Controller) handleEvent(gen int, ev *StreamEvent) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	switch c.session.Status {
	case StatusConnecting, StatusStreaming:
	default:
		c.mu.Unlock()
		return
	}

	switch ev.Type {
	case EventStart:
		c.markLiveLocked(gen)

	case EventMessage:
		if err := ev.Validate(); err != nil {
			log.Printf("controller: discarding event: %v", err)
			c.mu.Unlock()
			return
		}
		c.markLiveLocked(gen)
		c.session.Turns = append(c.session.Turns, Turn{
			Speaker:    NormalizeSpeaker(ev.Speaker),
			Text:       ev.Message,
			Round:      ev.Round,
			ProducedAt: parseEventTime(ev.Timestamp),
		})
		c.armIdleTimerLocked(gen)

	case EventComplete:
		c.applyCompleteLocked(ev)

	case EventError:
		msg := ev.Message
		if msg == "" {
			msg = "debate stream failed"
		}
		c.session.Status = StatusFailed
		c.session.LastError = msg
		c.shutdownLocked()
	}
	c.mu.Unlock()
	c.notify()
}

// markLiveLocked moves a connecting session into streaming and swaps the
// connect timer for the idle watchdog.
func (c *Controller) markLiveLocked(gen int) {
	if c.session.Status == StatusConnecting {
		c.session.Status = StatusStreaming
		c.stopConnectTimerLocked()
	}
	c.armIdleTimerLocked(gen)
}

// applyCompleteLocked finalizes the session. A non-empty canonical
// history replaces the incrementally accumulated turns wholesale; those
// were a live preview only.
func (c *Controller) applyCompleteLocked(ev *StreamEvent) {
	if len(ev.ConversationHistory) > 0 {
		turns := make([]Turn, 0, len(ev.ConversationHistory))
		now := time.Now()
		for _, entry := range ev.ConversationHistory {
			turns = append(turns, Turn{
				Speaker:    NormalizeSpeaker(entry.Speaker),
				Text:       entry.Response,
				Round:      entry.Round,
				ProducedAt: now,
			})
		}
		c.session.Turns = turns
	}
	c.session.Status = StatusCompleted
	c.shutdownLocked()
}

// connectTimedOut fires when no event arrived within the bounded wait.
// With a fallback configured the run is retried as a single-shot call;
// otherwise the session fails.
func (c *Controller) connectTimedOut(ctx context.Context, gen int, req *DebateRequest) {
	c.mu.Lock()
	if gen != c.gen || c.session.Status != StatusConnecting {
		c.mu.Unlock()
		return
	}
	c.shutdownLocked()
	if c.fallback == nil {
		c.session.Status = StatusFailed
		c.session.LastError = "timed out waiting for debate stream"
		c.mu.Unlock()
		c.notify()
		return
	}
	c.mu.Unlock()

	log.Printf("controller: stream connect timed out, falling back to single-shot run")
	ev, err := c.fallback.RunOnce(ctx, req)

	c.mu.Lock()
	if gen != c.gen || c.session.Status != StatusConnecting {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.session.Status = StatusFailed
		c.session.LastError = "fallback run failed: " + err.Error()
	} else {
		c.applyCompleteLocked(ev)
	}
	c.mu.Unlock()
	c.notify()
}

// idleTimedOut fails a streaming session that has gone quiet so it is
// never left open indefinitely.
func (c *Controller) idleTimedOut(gen int) {
	c.mu.Lock()
	if gen != c.gen || c.session.Status != StatusStreaming {
		c.mu.Unlock()
		return
	}
	c.shutdownLocked()
	c.session.Status = StatusFailed
	c.session.LastError = "debate stream went idle"
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) armIdleTimerLocked(gen int) {
	if c.idleTimeout <= 0 {
		return
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleTimer = time.AfterFunc(c.idleTimeout, func() { c.idleTimedOut(gen) })
}

func (c *Controller) stopConnectTimerLocked() {
	if c.connectTimer != nil {
		c.connectTimer.Stop()
		c.connectTimer = nil
	}
}

// shutdownLocked closes the transport handle and stops both timers.
// Idempotent.
func (c *Controller) shutdownLocked() {
	c.stopConnectTimerLocked()
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	if c.handle != nil {
		c.handle.Close()
		c.handle = nil
	}
}
