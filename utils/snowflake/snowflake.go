package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	// Epoch is the custom epoch (January 1, 2024 00:00:00 UTC)
	Epoch int64 = 1704067200000 // milliseconds

	workerIDBits uint8 = 10
	sequenceBits uint8 = 12

	workerIDMask = -1 ^ (-1 << workerIDBits)
	sequenceMask = -1 ^ (-1 << sequenceBits)

	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

var (
	ErrInvalidWorkerID     = errors.New("worker ID exceeds maximum value")
	ErrClockMovedBackwards = errors.New("clock moved backwards")
)

// Generator produces unique int64 IDs using the Snowflake layout:
// 41 bits of milliseconds since Epoch, 10 bits of worker ID and a
// 12 bit per-millisecond sequence. Join-event rows use these as
// primary keys so insertion order is recoverable from the ID alone.
type Generator struct {
	mu sync.Mutex

	workerID      int64
	sequence      int64
	lastTimestamp int64
}

// NewGenerator creates a Snowflake generator for the given worker.
func NewGenerator(workerID int64) (*Generator, error) {
	if workerID < 0 || workerID > workerIDMask {
		return nil, ErrInvalidWorkerID
	}
	return &Generator{workerID: workerID, lastTimestamp: -1}, nil
}

// NextID generates the next unique ID.
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	timestamp := g.currentTimestamp()
	if timestamp < g.lastTimestamp {
		return 0, ErrClockMovedBackwards
	}

	if timestamp == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & sequenceMask
		if g.sequence == 0 {
			// Sequence exhausted within this millisecond, spin to the next one
			for timestamp <= g.lastTimestamp {
				timestamp = g.currentTimestamp()
			}
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = timestamp

	id := ((timestamp - Epoch) << timestampShift) |
		(g.workerID << workerIDShift) |
		g.sequence
	return id, nil
}

// MustNextID generates the next ID and panics on clock drift. Intended
// for callers that already guard against backwards clocks.
func (g *Generator) MustNextID() int64 {
	id, err := g.NextID()
	if err != nil {
		panic(err)
	}
	return id
}

// Timestamp extracts the creation time encoded in an ID.
func Timestamp(id int64) time.Time {
	ms := (id >> timestampShift) + Epoch
	return time.UnixMilli(ms)
}

func (g *Generator) currentTimestamp() int64 {
	return time.Now().UnixMilli()
}
