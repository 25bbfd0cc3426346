// Package session holds the single injected session object: who the current
// owner is and whether the network is currently reachable. Components
// receive it by reference instead of reading ambient globals.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agrotrack/fieldsync/internal/logging"
)

// Pinger is the reachability probe, satisfied by the gateway.
type Pinger interface {
	Ping(ctx context.Context) error
}

// pingTimeout bounds a single reachability probe.
const pingTimeout = 3 * time.Second

type Session struct {
	mu     sync.RWMutex
	owner  string
	online atomic.Bool
	log    logging.Logger
}

func New(log logging.Logger) *Session {
	return &Session{log: log}
}

// Init binds the session to an owner. Called on login/screen entry.
func (s *Session) Init(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

// Teardown clears the owner and resets connectivity.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = ""
	s.online.Store(false)
}

// Owner returns the current owner id, or "" when nobody is identified.
func (s *Session) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Online reports the last observed reachability state.
func (s *Session) Online() bool {
	return s.online.Load()
}

// SetOnline records a reachability observation and logs transitions.
func (s *Session) SetOnline(online bool) {
	if s.online.Swap(online) != online {
		if online {
			s.log.Info(context.Background(), "switched to online mode")
		} else {
			s.log.Info(context.Background(), "switched to offline mode")
		}
	}
}

// StartWatcher probes reachability on the given interval until ctx is done,
// flipping the session's online flag after each probe. Run it in its own
// goroutine.
func (s *Session) StartWatcher(ctx context.Context, pinger Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			err := pinger.Ping(probeCtx)
			cancel()
			s.SetOnline(err == nil)

		case <-ctx.Done():
			return
		}
	}
}
