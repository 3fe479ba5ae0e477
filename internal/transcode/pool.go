// Package transcode manages the bounded pool of live FFmpeg sessions.
package transcode

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/vidarr/internal/ffmpeg"
	"github.com/jmylchreest/vidarr/internal/observability"
)

// ErrPoolBusy means no session slot became free within the acquire timeout.
// The HTTP layer maps it to 503.
var ErrPoolBusy = errors.New("transcode pool at capacity")

// Session is a live transcode owned by the pool.
type Session struct {
	ID        string
	Cmd       *ffmpeg.Command
	StartedAt time.Time
}

// StartFunc launches the FFmpeg process for a session and returns its
// command handle. It runs while the permit is already held; returning an
// error hands the permit straight back.
type StartFunc func() (*ffmpeg.Command, error)

// Pool bounds the number of concurrent live transcodes.
type Pool struct {
	permits        chan struct{}
	acquireTimeout time.Duration
	sessionTimeout time.Duration
	sweepInterval  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	logger  *slog.Logger
	metrics *observability.Metrics

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPool creates a session pool with the given limits and starts its
// background sweeper.
func NewPool(maxSessions int, acquireTimeout, sessionTimeout, sweepInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		permits:        make(chan struct{}, maxSessions),
		acquireTimeout: acquireTimeout,
		sessionTimeout: sessionTimeout,
		sweepInterval:  sweepInterval,
		sessions:       make(map[string]*Session),
		logger:         logger.With(slog.String("component", "transcode-pool")),
		metrics:        metrics,
		stopCh:         make(chan struct{}),
	}
	go p.sweepLoop()
	return p
}

// Acquire claims a session slot, waiting up to the acquire timeout, then
// runs start. On success the session is registered under sessionID. If no
// slot frees in time it returns ErrPoolBusy without ever queueing the
// request behind the timeout.
func (p *Pool) Acquire(ctx context.Context, sessionID string, start StartFunc) error {
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case p.permits <- struct{}{}:
	case <-timer.C:
		if p.metrics != nil {
			p.metrics.SessionsRejected.Inc()
		}
		return ErrPoolBusy
	case <-ctx.Done():
		return ctx.Err()
	}

	cmd, err := start()
	if err != nil {
		<-p.permits
		return err
	}

	session := &Session{
		ID:        sessionID,
		Cmd:       cmd,
		StartedAt: time.Now(),
	}

	p.mu.Lock()
	p.sessions[sessionID] = session
	active := len(p.sessions)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.ActiveSessions.Set(float64(active))
	}

	p.logger.Debug("session started",
		slog.String("session_id", sessionID),
		slog.Int("active", active),
	)
	return nil
}

// Release ends a session: the process is killed if still running, the slot
// is freed, and the session duration is recorded. Releasing an unknown or
// already-released session is a no-op, so disconnect handlers and the
// sweeper can race safely.
func (p *Pool) Release(sessionID string) {
	p.mu.Lock()
	session, ok := p.sessions[sessionID]
	if ok {
		delete(p.sessions, sessionID)
	}
	active := len(p.sessions)
	p.mu.Unlock()

	if !ok {
		return
	}

	if session.Cmd != nil && session.Cmd.IsRunning() {
		if err := session.Cmd.Kill(); err != nil {
			p.logger.Warn("killing transcode process",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	<-p.permits

	duration := time.Since(session.StartedAt)
	if p.metrics != nil {
		p.metrics.ActiveSessions.Set(float64(active))
		p.metrics.SessionDuration.Observe(duration.Seconds())
	}

	p.logger.Debug("session released",
		slog.String("session_id", sessionID),
		slog.Duration("duration", duration),
		slog.Int("active", active),
	)
}

// ActiveCount returns the number of registered sessions.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Shutdown stops the sweeper and force-releases every session.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})

	for _, id := range p.sessionIDs() {
		p.Release(id)
	}
}

func (p *Pool) sessionIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (p *Pool) sweepLoop() {
	if p.sweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// sweep releases sessions whose process already exited (slot leak) and
// force-releases sessions older than the session timeout.
func (p *Pool) sweep() {
	p.mu.Lock()
	var stale []string
	for id, session := range p.sessions {
		dead := session.Cmd == nil || !session.Cmd.IsRunning()
		expired := time.Since(session.StartedAt) > p.sessionTimeout
		if dead || expired {
			stale = append(stale, id)
			if expired && !dead {
				p.logger.Warn("session exceeded timeout, terminating",
					slog.String("session_id", id),
					slog.Duration("age", time.Since(session.StartedAt)),
				)
			}
		}
	}
	p.mu.Unlock()

	for _, id := range stale {
		p.Release(id)
	}
}
