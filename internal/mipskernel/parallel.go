package mipskernel

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallelize runs fn(i) for every i in [0,n) across a fixed worker pool
// sized to GOMAXPROCS, the work-sharing loop primitive every index's build
// and search paths use for their data-parallel loops (per-table hashing in
// ALSH, per-subspace k-means in subspace quantization, per-query search
// everywhere). Grounded on pkg/hnsw/batch.go's worker-pool-over-channel
// pattern, generalized and fronted with errgroup so a worker panic turns
// into a returned error instead of taking down the process.
func Parallelize(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = panicError{r}
				}
			}()
			for i := range jobs {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	return fmt.Sprintf("mipskernel: worker panic recovered: %v", p.v)
}
