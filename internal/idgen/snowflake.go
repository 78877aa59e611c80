// Package idgen implements a mutex-guarded monotonic id generator and a
// prefixed transaction-reference generator, grounded on
// anthonyalando8-pxyz/shared/utils/id/id.generator.go. Per SPEC_FULL.md §9's
// "global mutable state" redesign note, Snowflake is an explicitly constructed
// value (held by banking.System) rather than a package-level singleton.
// Transaction references come from the stateless
// GenerateTransactionReference function, which the journal writer calls
// directly; the writer is not given a Snowflake.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const epoch int64 = 1700000000000 // ms, arbitrary custom epoch

// Snowflake generates k-sortable 64-bit-ish numeric ids: 41 bits of
// millisecond timestamp since a custom epoch, 10 bits of node id, 12 bits of
// per-millisecond sequence.
type Snowflake struct {
	mu        sync.Mutex
	nodeID    int64
	timestamp int64
	sequence  int64
}

func NewSnowflake(nodeID int64) (*Snowflake, error) {
	if nodeID < 0 || nodeID > 1023 {
		return nil, fmt.Errorf("idgen: node id %d out of range [0,1023]", nodeID)
	}
	return &Snowflake{nodeID: nodeID}, nil
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & 0xFFF
		if s.sequence == 0 {
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}
	s.timestamp = now

	return ((now - epoch) << 22) | (s.nodeID << 12) | s.sequence
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateTransactionReference produces a short human-legible reference like
// "DE-0412abcd": prefix, the current timestamp's trailing 4 digits, and 4
// random base36 characters. Used for Transaction.Reference (SPEC_FULL.md §3:
// "DE"=deposit, "WI"=withdrawal).
func GenerateTransactionReference(prefix string) string {
	ms := time.Now().UnixMilli() % 10000
	suffix := randomBase36(4)
	return fmt.Sprintf("%s-%04d%s", prefix, ms, suffix)
}

func randomBase36(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is practically unreachable; fall back to
			// a fixed character rather than panicking on id generation.
			out[i] = base36Alphabet[0]
			continue
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out)
}
