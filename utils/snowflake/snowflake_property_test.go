package snowflake

import (
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProperty_SnowflakeIDUniqueness(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all generated IDs are unique", prop.ForAll(
		func(count int) bool {
			g, err := NewGenerator(1)
			if err != nil {
				return false
			}

			ids := make(map[int64]bool)
			for range count {
				id, err := g.NextID()
				if err != nil {
					return false
				}
				if ids[id] {
					return false
				}
				ids[id] = true
			}

			return len(ids) == count
		},
		gen.IntRange(100, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SnowflakeIDUniqueness_Concurrent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("IDs generated concurrently are unique", prop.ForAll(
		func(goroutines int, idsPerGoroutine int) bool {
			g, err := NewGenerator(1)
			if err != nil {
				return false
			}

			idChan := make(chan int64, goroutines*idsPerGoroutine)

			var wg sync.WaitGroup
			for range goroutines {
				wg.Go(func() {
					for range idsPerGoroutine {
						id, err := g.NextID()
						if err != nil {
							return
						}
						idChan <- id
					}
				})
			}
			wg.Wait()
			close(idChan)

			ids := make(map[int64]bool)
			for id := range idChan {
				if ids[id] {
					return false
				}
				ids[id] = true
			}
			return len(ids) == goroutines*idsPerGoroutine
		},
		gen.IntRange(2, 8),
		gen.IntRange(50, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
