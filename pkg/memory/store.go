package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"relay/pkg/utils"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is one remembered fact with its embedding vector.
type Entry struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Vector    []float32      `json:"vector"`
	CreatedAt int64          `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Service is the long-term memory surface the agent consumes.
type Service interface {
	// Add embeds and persists one fact.
	Add(ctx context.Context, text string, metadata map[string]any) error
	// Search returns the top-k entries ranked by cosine similarity.
	Search(ctx context.Context, query string, k int) ([]Entry, error)
}

// Store is an embedding-backed memory: entries live in one append-only
// JSONL file and are ranked in memory by cosine similarity. Safe for
// concurrent use.
type Store struct {
	path     string
	embedder Embedder

	mu      sync.RWMutex
	entries []Entry
}

// NewStore loads existing memories from dir (creating it if needed).
// Corrupt records are skipped with a warning.
func NewStore(dir string, embedder Embedder) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if dir == "" {
		dir = "data/memory"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory dir: %w", err)
	}

	s := &Store{
		path:     filepath.Join(dir, "memories.jsonl"),
		embedder: embedder,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open memory file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			slog.Warn("Skipping corrupt memory record", "line", lineNo, "error", err)
			continue
		}
		s.entries = append(s.entries, e)
	}
	return scanner.Err()
}

// Add implements Service.
func (s *Store) Add(ctx context.Context, text string, metadata map[string]any) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty memory text")
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed memory: %w", err)
	}

	entry := Entry{
		ID:        utils.GenerateID(),
		Text:      text,
		Vector:    vector,
		CreatedAt: time.Now().Unix(),
		Metadata:  metadata,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal memory entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open memory file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append memory entry: %w", err)
	}

	s.entries = append(s.entries, entry)
	return nil
}

// Search implements Service.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Entry, error) {
	if k <= 0 {
		k = 3
	}

	s.mu.RLock()
	empty := len(s.entries) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type scored struct {
		entry Entry
		score float64
	}

	s.mu.RLock()
	ranked := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		ranked = append(ranked, scored{entry: e, score: cosineSimilarity(queryVec, e.Vector)})
	}
	s.mu.RUnlock()

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]Entry, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.entry)
	}
	return out, nil
}

// Len reports how many entries are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
