// Command bench drives the buffer pool with a Zipf-skewed page access
// trace and reports throughput and the pool's final residency stats — a
// way to see the eviction policy's behavior under the kind of hot/cold
// skew a real workload produces, instead of the uniform access patterns
// the unit tests use. The buffer pool's own hit rate is not measured.
//
// It also runs a ristretto admission-count cache alongside the buffer
// pool, tracking which page ids ristretto's TinyLFU sketch would predict
// as hot, and reports that cache's hit count and rate; the core itself
// never uses ristretto for eviction (see DESIGN.md — ristretto's
// probabilistic eviction is incompatible with the buffer pool's
// unique-residency and pin invariants), but it's a reasonable tool for
// an operator sanity-checking whether the real cache is behaving the way
// an independent hotness estimate says it should.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"

	"bpstore/storage_engine/bufferpool"
	diskmanager "bpstore/storage_engine/disk_manager"
	"bpstore/storage_engine/page"
)

func main() {
	poolSize := flag.Int("pool-size", 64, "number of frames in the buffer pool")
	numPages := flag.Int("pages", 2000, "number of distinct pages to pre-allocate")
	ops := flag.Int("ops", 200_000, "number of fetch/unpin operations to run")
	zipfS := flag.Float64("zipf-s", 1.2, "zipf skew parameter (>1, higher = more skewed)")
	zipfV := flag.Float64("zipf-v", 1, "zipf v parameter (offset of the low end of the range)")
	flag.Parse()

	disk := diskmanager.NewMemDiskManager()
	pool := bufferpool.NewPool(*poolSize, disk)

	ids := make([]page.ID, *numPages)
	for i := range ids {
		fr, err := pool.NewPage()
		if err != nil {
			log.Fatalf("pre-allocating page %d: %v", i, err)
		}
		ids[i] = fr.ID()
		pool.UnpinPage(fr.ID(), false)
	}

	hotness, err := ristretto.NewCache(&ristretto.Config[page.ID, struct{}]{
		NumCounters: int64(*numPages) * 10,
		MaxCost:     int64(*numPages),
		BufferItems: 64,
	})
	if err != nil {
		log.Fatalf("building hotness cache: %v", err)
	}
	defer hotness.Close()

	rng := rand.New(rand.NewSource(1))
	zipf := rand.NewZipf(rng, *zipfS, *zipfV, uint64(len(ids)-1))

	start := time.Now()
	var hotnessHits int
	for i := 0; i < *ops; i++ {
		id := ids[zipf.Uint64()]

		if _, found := hotness.Get(id); found {
			hotnessHits++
		}
		hotness.Set(id, struct{}{}, 1)

		if _, err := pool.FetchPage(id); err != nil {
			log.Fatalf("op %d: FetchPage(%d): %v", i, id, err)
		}
		pool.UnpinPage(id, false)
	}
	elapsed := time.Since(start)
	hotness.Wait()

	stats := pool.GetStats()
	throughput := float64(*ops) / elapsed.Seconds()
	fmt.Fprintf(os.Stdout, "ops=%s elapsed=%s throughput=%s ops/s\n",
		humanize.Comma(int64(*ops)), elapsed.Round(time.Millisecond), humanize.Commaf(throughput))
	fmt.Fprintf(os.Stdout, "buffer pool: %s\n", stats)
	fmt.Fprintf(os.Stdout, "hotness-cache predicted-hot hits=%d (%.1f%%) — compare against buffer pool dirty/pinned counts above\n",
		hotnessHits, 100*float64(hotnessHits)/float64(*ops))
}
