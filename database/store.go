package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"forum-reminder-bot/models"
)

// Store owns the three persisted records: the reminder opt-out set, the
// per-guild reminder channel overrides and the closed thread timestamps.
// Every mutation is followed by a save of the whole record it touched.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	optOut   map[string]struct{}
	channels map[string]string
	closed   map[string]time.Time
}

// NewStore returns an empty store on top of backend. Call Load to restore.
func NewStore(backend Backend) *Store {
	return &Store{
		backend:  backend,
		optOut:   make(map[string]struct{}),
		channels: make(map[string]string),
		closed:   make(map[string]time.Time),
	}
}

// Open builds the backend named in cfg and loads every record.
func Open(cfg models.StateConfig) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "", "json":
		backend, err = NewFileBackend(cfg.Dir)
	case "sqlite":
		backend, err = InitDB(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	s := NewStore(backend)
	s.Load()
	return s, nil
}

// Load restores all records. A missing record starts empty; an unreadable
// one is logged and reset to empty. Load never fails.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.optOut = s.loadOptOut()
	s.channels = s.loadChannels()
	s.closed = s.loadClosed()
	log.Printf("State loaded: %d opted-out users, %d reminder channel overrides, %d closed threads",
		len(s.optOut), len(s.channels), len(s.closed))
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) read(name string) (*json.Decoder, bool) {
	data, err := s.backend.Read(name)
	if errors.Is(err, ErrRecordMissing) {
		return nil, false
	}
	if err != nil {
		log.Printf("Could not read %s, starting empty: %v", name, err)
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec, true
}

func (s *Store) loadOptOut() map[string]struct{} {
	out := make(map[string]struct{})
	dec, ok := s.read(RecordOptOut)
	if !ok {
		return out
	}
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		log.Printf("Corrupt %s record, resetting: %v", RecordOptOut, err)
		return out
	}
	for _, v := range raw {
		if id, ok := NormalizeID(v); ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func (s *Store) loadChannels() map[string]string {
	out := make(map[string]string)
	dec, ok := s.read(RecordReminderChannels)
	if !ok {
		return out
	}
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		log.Printf("Corrupt %s record, resetting: %v", RecordReminderChannels, err)
		return out
	}
	for k, v := range raw {
		gid, ok1 := NormalizeID(k)
		cid, ok2 := NormalizeID(v)
		if !ok1 || !ok2 {
			log.Printf("Dropping malformed reminder channel entry %q", k)
			continue
		}
		out[gid] = cid
	}
	return out
}

func (s *Store) loadClosed() map[string]time.Time {
	out := make(map[string]time.Time)
	dec, ok := s.read(RecordClosedThreads)
	if !ok {
		return out
	}
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		log.Printf("Corrupt %s record, resetting: %v", RecordClosedThreads, err)
		return out
	}
	for k, v := range raw {
		id, ok := NormalizeID(k)
		if !ok {
			continue
		}
		at, err := parseClosure(v)
		if err != nil {
			log.Printf("Dropping closed thread %s: %v", k, err)
			continue
		}
		out[id] = at
	}
	return out
}

func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return s.backend.Write(name, data)
}

func (s *Store) saveOptOut() error {
	ids := make([]string, 0, len(s.optOut))
	for id := range s.optOut {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = encodeID(id)
	}
	return s.write(RecordOptOut, out)
}

func (s *Store) saveChannels() error {
	out := make(map[string]any, len(s.channels))
	for gid, cid := range s.channels {
		out[gid] = encodeID(cid)
	}
	return s.write(RecordReminderChannels, out)
}

func (s *Store) saveClosed() error {
	out := make(map[string]string, len(s.closed))
	for id, at := range s.closed {
		out[id] = formatClosure(at)
	}
	return s.write(RecordClosedThreads, out)
}

// OptedOut reports whether the user declined reminder pings.
func (s *Store) OptedOut(userID string) bool {
	id, ok := NormalizeID(userID)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := s.optOut[id]
	return found
}

// SetOptOut adds or removes the user from the opt-out set. changed is false
// when the user was already in the requested state, in which case nothing is
// written.
func (s *Store) SetOptOut(userID string, optOut bool) (changed bool, err error) {
	id, ok := NormalizeID(userID)
	if !ok {
		return false, fmt.Errorf("invalid user id %q", userID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, present := s.optOut[id]
	if present == optOut {
		return false, nil
	}
	if optOut {
		s.optOut[id] = struct{}{}
	} else {
		delete(s.optOut, id)
	}
	return true, s.saveOptOut()
}

// OptOutIDs returns the opted-out user IDs in ascending order.
func (s *Store) OptOutIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.optOut))
	for id := range s.optOut {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReminderChannel returns the override for the guild, if any.
func (s *Store) ReminderChannel(guildID string) (string, bool) {
	gid, ok := NormalizeID(guildID)
	if !ok {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cid, found := s.channels[gid]
	return cid, found
}

// SetReminderChannel stores the override for the guild.
func (s *Store) SetReminderChannel(guildID, channelID string) error {
	gid, ok1 := NormalizeID(guildID)
	cid, ok2 := NormalizeID(channelID)
	if !ok1 || !ok2 {
		return fmt.Errorf("invalid guild %q or channel %q", guildID, channelID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[gid] = cid
	return s.saveChannels()
}

// ClearReminderChannel drops the override. removed is false when none was set.
func (s *Store) ClearReminderChannel(guildID string) (removed bool, err error) {
	gid, ok := NormalizeID(guildID)
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.channels[gid]; !found {
		return false, nil
	}
	delete(s.channels, gid)
	return true, s.saveChannels()
}

// ClosedAt returns when the thread was recorded as closed.
func (s *Store) ClosedAt(threadID string) (time.Time, bool) {
	id, ok := NormalizeID(threadID)
	if !ok {
		return time.Time{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	at, found := s.closed[id]
	return at, found
}

// MarkClosed records the closure time of a thread.
func (s *Store) MarkClosed(threadID string, at time.Time) error {
	id, ok := NormalizeID(threadID)
	if !ok {
		return fmt.Errorf("invalid thread id %q", threadID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Persisted with second precision; keep memory identical to disk.
	s.closed[id] = at.UTC().Truncate(time.Second)
	return s.saveClosed()
}

// ForgetClosed drops a thread's record. removed is false when none existed.
func (s *Store) ForgetClosed(threadID string) (removed bool, err error) {
	id, ok := NormalizeID(threadID)
	if !ok {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.closed[id]; !found {
		return false, nil
	}
	delete(s.closed, id)
	return true, s.saveClosed()
}

// ClosedThreads returns a copy of the closure map.
func (s *Store) ClosedThreads() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.closed))
	for id, at := range s.closed {
		out[id] = at
	}
	return out
}
