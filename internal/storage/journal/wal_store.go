// Package journal persists an append-only audit trail of trading cycles.
// The journal is never read back at startup; it exists so every financial
// action the bot took can be reviewed after the fact.
package journal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/temazzz/autotrader/internal/domain"
)

const (
	// DefaultDir is where cycle events are journaled unless configured.
	DefaultDir = "./wal/cycles"

	segmentLimit = 100
	maxSegments  = 10

	cycleKeyPrefix = "cycle_"
)

// WALStore persists cycle events in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed cycle journal.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "cycle_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init cycle journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Save appends one cycle event to the journal.
func (s *WALStore) Save(event domain.CycleEvent) error {
	if s == nil || s.wal == nil {
		return errors.New("cycle journal is not initialized")
	}
	if event.Cycle == 0 {
		return errors.New("cycle event must carry a cycle number")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal cycle event")
	}

	key := cycleKeyPrefix + event.Query

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// EventsAfter returns all cycle events written after the provided WAL index.
func (s *WALStore) EventsAfter(index uint64) ([]domain.CycleEventRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("cycle journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.CycleEventRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(key, cycleKeyPrefix) {
			continue
		}

		var event domain.CycleEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrap(err, "decode cycle event")
		}
		records = append(records, domain.CycleEventRecord{Index: idx, Event: event})
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("cycle journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
