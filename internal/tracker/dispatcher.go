package tracker

import (
	"sync"

	"github.com/twmb/murmur3"
	"go.uber.org/zap"
)

// Dispatcher fans gateway events out to a fixed set of workers, one
// queue per shard. A guild always hashes to the same shard, so all of
// one guild's events are processed strictly in arrival order — two
// concurrent joins can never diff against the same stale snapshot.
type Dispatcher struct {
	shards  []chan Event
	handler func(Event)
	logger  *zap.Logger

	wg   sync.WaitGroup
	quit chan struct{}
}

func NewDispatcher(shardCount, queueSize int, handler func(Event), logger *zap.Logger) *Dispatcher {
	if shardCount <= 0 {
		shardCount = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	shards := make([]chan Event, shardCount)
	for i := range shards {
		shards[i] = make(chan Event, queueSize)
	}
	return &Dispatcher{
		shards:  shards,
		handler: handler,
		logger:  logger,
		quit:    make(chan struct{}),
	}
}

// Start launches one worker goroutine per shard.
func (d *Dispatcher) Start() {
	for i, ch := range d.shards {
		d.wg.Add(1)
		go func(shard int, events <-chan Event) {
			defer d.wg.Done()
			for {
				select {
				case ev := <-events:
					d.run(shard, ev)
				case <-d.quit:
					return
				}
			}
		}(i, ch)
	}
	d.logger.Info("dispatcher started", zap.Int("shards", len(d.shards)))
}

// run executes the handler with a recover guard so a single bad event
// cannot take a shard worker down.
func (d *Dispatcher) run(shard int, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panic",
				zap.Int("shard", shard),
				zap.String("guild_id", ev.GuildID),
				zap.String("event_type", string(ev.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	d.handler(ev)
}

// Submit routes an event to its guild's shard. Blocks when the shard
// queue is full rather than dropping the event.
func (d *Dispatcher) Submit(ev Event) {
	idx := murmur3.Sum32([]byte(ev.GuildID)) % uint32(len(d.shards))
	d.shards[idx] <- ev
}

// Stop signals all workers and waits for them to exit. Events still
// queued are discarded.
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.wg.Wait()
}
