// Package monitor keeps the latest status snapshot of a running simulation
// and periodically writes it to a status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/blasternet/combatsync/internal/dispatcher"
	"github.com/blasternet/combatsync/pkg/core"
)

// DefaultInterval is how often the status file is rewritten.
const DefaultInterval = time.Second

// Status is one snapshot taken on the tick goroutine.
type Status struct {
	Time       time.Time                   `json:"time"`
	ServerTime time.Duration               `json:"serverTime"`
	MatchKey   string                      `json:"matchKey,omitempty"`
	State      core.MatchState             `json:"state"`
	Countdown  time.Duration               `json:"countdown"`
	Players    int                         `json:"players"`
	Weapons    int                         `json:"weapons"`
	Queued     int                         `json:"queued"`
	InFlight   int                         `json:"inFlight"`
	Skipped    uint64                      `json:"skipped"`
	Failed     uint64                      `json:"failed"`
	Scores     map[core.PlayerID]int       `json:"scores,omitempty"`
	Dispatch   map[string]dispatcher.Stats `json:"dispatch,omitempty"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger   *slog.Logger
	Path     string // status file, empty to only log
	Interval time.Duration
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	latest    Status
	published bool
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Publish replaces the latest snapshot.
func (s *Service) Publish(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = st
	s.published = true
}

// Latest returns the newest published snapshot.
func (s *Service) Latest() (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.published
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.Path != "" {
		f, err := os.Create(s.deps.Path)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("create status file: %w", err)
		}
		statusFile = f
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				s.flush(statusFile)
				return
			case <-ticker.C:
				s.flush(statusFile)
			}
		}
	}()
	return nil
}

func (s *Service) flush(f *os.File) {
	st, ok := s.Latest()
	if !ok {
		return
	}
	s.deps.Logger.Debug("Status", "state", st.State, "serverTime", st.ServerTime,
		"players", st.Players, "queued", st.Queued, "inFlight", st.InFlight)
	if f == nil {
		return
	}
	if err := WriteStatus(f, st); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}
}

// WriteStatus overwrites f with st as indented JSON.
func WriteStatus(f *os.File, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Stop stops the status monitor and waits for the last write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
