package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ErrChainBroken is returned by Verify when a journal has been altered.
var ErrChainBroken = errors.New("audit chain broken")

// GenesisHash is the previous hash of the first entry in every chain.
var GenesisHash = strings.Repeat("0", 64)

// LogEntry represents a single audit log entry
type LogEntry struct {
	Sequence     uint64 `json:"sequence"`
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previous_hash"`
	Payload      string `json:"payload"`
	Hash         string `json:"hash"`
}

// ChainLogger provides a tamper-evident journal using hash chaining. When
// constructed with a writer, every entry is also emitted as one JSON line.
type ChainLogger struct {
	mu           sync.Mutex
	previousHash string
	sequence     uint64
	enc          *json.Encoder
	now          func() time.Time
}

// NewChainLogger creates a new ChainLogger initialized with the genesis
// hash. w may be nil to keep only the running head.
func NewChainLogger(w io.Writer) *ChainLogger {
	c := &ChainLogger{
		previousHash: GenesisHash,
		now:          time.Now,
	}
	if w != nil {
		c.enc = json.NewEncoder(w)
	}
	return c
}

// Append adds a new log entry to the chain.
func (c *ChainLogger) Append(payload string) (*LogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &LogEntry{
		Sequence:     c.sequence + 1,
		Timestamp:    c.now().UTC().Format(time.RFC3339Nano),
		PreviousHash: c.previousHash,
		Payload:      payload,
	}
	entry.Hash = entryHash(entry)

	if c.enc != nil {
		if err := c.enc.Encode(entry); err != nil {
			return nil, fmt.Errorf("write audit entry %d: %w", entry.Sequence, err)
		}
	}

	c.sequence = entry.Sequence
	c.previousHash = entry.Hash
	return entry, nil
}

// Head returns the hash of the latest entry, or GenesisHash when empty.
func (c *ChainLogger) Head() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previousHash
}

// Len returns the number of appended entries.
func (c *ChainLogger) Len() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sequence
}

// VerifyChain checks if a slice of entries forms a valid hash chain
// starting at the genesis hash.
func VerifyChain(entries []*LogEntry) bool {
	prevHash := GenesisHash
	for i, entry := range entries {
		if entry.PreviousHash != prevHash || entry.Sequence != uint64(i+1) {
			return false
		}
		if entryHash(entry) != entry.Hash {
			return false
		}
		prevHash = entry.Hash
	}
	return true
}

// ReadEntries decodes a JSON-lines journal written by ChainLogger.
func ReadEntries(r io.Reader) ([]*LogEntry, error) {
	var entries []*LogEntry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("decode audit line %d: %w", line, err)
		}
		entries = append(entries, &entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit journal: %w", err)
	}
	return entries, nil
}

// Verify reads a JSON-lines journal and checks its chain. It returns the
// number of entries and the head hash of an intact journal.
func Verify(r io.Reader) (int, string, error) {
	entries, err := ReadEntries(r)
	if err != nil {
		return 0, "", err
	}
	if !VerifyChain(entries) {
		return len(entries), "", ErrChainBroken
	}
	head := GenesisHash
	if len(entries) > 0 {
		head = entries[len(entries)-1].Hash
	}
	return len(entries), head, nil
}

func entryHash(e *LogEntry) string {
	hashInput := fmt.Sprintf("%d|%s|%s|%s", e.Sequence, e.PreviousHash, e.Timestamp, e.Payload)
	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}
