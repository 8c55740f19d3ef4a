package session

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"relay/pkg/llm"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// filenameSafeRegex strips anything that could escape the storage directory
// or break the filesystem when a session ID becomes a filename.
var filenameSafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// Store is the durable conversation store: one append-only JSONL file per
// session, one message per line. Appends go straight to disk so a crash
// never loses an acknowledged message. Store is safe for concurrent use.
type Store struct {
	dir   string
	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// NewStore creates the storage directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "data/sessions"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// sessionLock returns the per-session mutex, creating it on first use.
// Writers for different sessions never block each other.
func (s *Store) sessionLock(safeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[safeID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[safeID] = l
	}
	return l
}

func (s *Store) path(safeID string) string {
	return filepath.Join(s.dir, safeID+".jsonl")
}

// SanitizeID normalizes an arbitrary session identifier into a safe filename
// stem. Distinct raw IDs may collapse to the same file; callers that need
// isolation must use filesystem-safe IDs to begin with.
func SanitizeID(sessionID string) string {
	return filenameSafeRegex.ReplaceAllString(sessionID, "_")
}

// Append serializes the message and appends it as one line to the session
// log. The write is flushed before Append returns.
func (s *Store) Append(sessionID string, msg llm.Message) error {
	safeID := SanitizeID(sessionID)
	lock := s.sessionLock(safeID)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal session message: %w", err)
	}

	f, err := os.OpenFile(s.path(safeID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append session message: %w", err)
	}
	return nil
}

// Load reads the full history of a session in insertion order. A missing
// log file is an empty conversation, not an error. Corrupt lines are
// skipped with a warning so one bad record never poisons the session.
func (s *Store) Load(sessionID string) ([]llm.Message, error) {
	safeID := SanitizeID(sessionID)
	lock := s.sessionLock(safeID)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(s.path(safeID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	var messages []llm.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg llm.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			slog.Warn("Skipping corrupt session record", "session", safeID, "line", lineNo, "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return messages, fmt.Errorf("failed to read session log: %w", err)
	}
	return messages, nil
}

// Sessions lists the IDs of all sessions present on disk.
func (s *Store) Sessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list session dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".jsonl") {
			ids = append(ids, strings.TrimSuffix(name, ".jsonl"))
		}
	}
	return ids, nil
}
