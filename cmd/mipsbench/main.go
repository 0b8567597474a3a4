// Command mipsbench is a benchmark driver over the four index packages,
// grounded on original_source/src/bench.cpp's train/add/search/evaluate
// pipeline and the teacher's cmd/cli/main.go flag-parsing style (a single
// flat command, stdlib flag, no subcommand tree — there is nothing here
// to subcommand).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/alsh"
	"github.com/devraj-iyer/mipsindex/pkg/hkmeans"
	"github.com/devraj-iyer/mipsindex/pkg/ivf"
	"github.com/devraj-iyer/mipsindex/pkg/mipsio"
	"github.com/devraj-iyer/mipsindex/pkg/subpq"
	"github.com/google/uuid"
)

func main() {
	var (
		kind        = flag.String("kind", "hkmeans", "index kind: hkmeans, alsh, subpq, ivfflat")
		trainPath   = flag.String("train", "", "training vectors file (required)")
		basePath    = flag.String("base", "", "database vectors file to add after training (required)")
		queryPath   = flag.String("query", "", "query vectors file (required)")
		gtPath      = flag.String("groundtruth", "", "ground-truth neighbor ids file, .ivecs (required)")
		k           = flag.Int("k", 100, "number of results per query")
		seed        = flag.Int64("seed", 1, "random seed")
		layers      = flag.Int("layers", 2, "hkmeans: number of clustering layers")
		openedTrees = flag.Int("opened-trees", 4, "hkmeans: beam width per layer")
		tables      = flag.Int("tables", 8, "alsh: number of metahash tables")
		hashes      = flag.Int("hashes", 4, "alsh: hashes combined per metahash")
		bucketWidth = flag.Float64("bucket-width", 4.0, "alsh: hash bucket width")
		subspaces   = flag.Int("subspaces", 8, "subpq: number of subspaces")
		centroids   = flag.Int("centroids", 256, "subpq/ivfflat: number of centroids")
		nprobe      = flag.Int("nprobe", 8, "ivfflat: number of cells probed per query")
	)
	flag.Parse()

	if *trainPath == "" || *basePath == "" || *queryPath == "" || *gtPath == "" {
		fmt.Fprintln(os.Stderr, "mipsbench: -train, -base, -query, and -groundtruth are all required")
		flag.Usage()
		os.Exit(1)
	}

	runID := uuid.New().String()
	fmt.Printf("run %s: kind=%s k=%d seed=%d\n", runID, *kind, *k, *seed)

	train, err := loadMatrix(*trainPath)
	must(err, "loading train set")
	base, err := loadMatrix(*basePath)
	must(err, "loading database")
	queries, err := loadMatrix(*queryPath)
	must(err, "loading queries")
	gt, err := mipsio.ReadIvecs(*gtPath)
	must(err, "loading ground truth")

	idx, searchFn, err := newBenchIndex(*kind, benchParams{
		Seed:        *seed,
		Layers:      *layers,
		OpenedTrees: *openedTrees,
		Tables:      *tables,
		Hashes:      *hashes,
		BucketWidth: float32(*bucketWidth),
		Subspaces:   *subspaces,
		Centroids:   *centroids,
		Nprobe:      *nprobe,
	})
	must(err, "constructing index")

	trainStart := time.Now()
	must(idx.Build(train), "training index")
	trainTime := time.Since(trainStart)

	// Assumes -train and -base name disjoint files, as in the siftsmall
	// layout (separate learn/base vecs): Build already indexes the train
	// set, so Add appends the rest of the corpus without duplicating it.
	addStart := time.Now()
	must(idx.Add(base), "adding database")
	addTime := time.Since(addStart)

	searchStart := time.Now()
	_, ids, err := searchFn(idx, queries, *k)
	must(err, "searching")
	searchTime := time.Since(searchStart)

	r1, r10, r100, intersection := evaluate(ids, gt, *k)

	fmt.Printf("Train time = %.6f\n", trainTime.Seconds())
	fmt.Printf("Add time = %.6f\n", addTime.Seconds())
	fmt.Printf("Search time = %.6f\n", searchTime.Seconds())
	fmt.Printf("R@1 = %.4f\n", r1)
	fmt.Printf("R@10 = %.4f\n", r10)
	fmt.Printf("R@100 = %.4f\n", r100)
	fmt.Printf("Intersection = %.4f\n", intersection)
}

func must(err error, action string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "mipsbench: %s: %v\n", action, err)
		os.Exit(1)
	}
}

func loadMatrix(path string) (*mipskernel.Matrix, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fvecs":
		return mipsio.ReadFvecs(path)
	case ".ivecs":
		return mipsio.ReadIvecs(path)
	default:
		return mipsio.ReadText(path)
	}
}

type benchParams struct {
	Seed        int64
	Layers      int
	OpenedTrees int
	Tables      int
	Hashes      int
	BucketWidth float32
	Subspaces   int
	Centroids   int
	Nprobe      int
}

type benchIndex interface {
	Build(vectors *mipskernel.Matrix) error
	Add(vectors *mipskernel.Matrix) error
}

type searchFunc func(idx benchIndex, queries *mipskernel.Matrix, k int) ([][]float32, [][]int, error)

func newBenchIndex(kind string, p benchParams) (benchIndex, searchFunc, error) {
	switch kind {
	case "hkmeans":
		idx := hkmeans.New(hkmeans.Config{
			Layers:           p.Layers,
			OpenedTrees:      p.OpenedTrees,
			AugmentationKind: mipskernel.Shrivastava,
			M:                3,
			U:                0.75,
			Seed:             p.Seed,
		})
		return idx, func(idx benchIndex, q *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
			return idx.(*hkmeans.Index).Search(q, k)
		}, nil
	case "alsh":
		idx := alsh.New(alsh.Config{
			Tables:           p.Tables,
			HashesPerTable:   p.Hashes,
			BucketWidth:      p.BucketWidth,
			AugmentationKind: mipskernel.Shrivastava,
			M:                3,
			U:                0.75,
			Seed:             p.Seed,
		})
		return idx, func(idx benchIndex, q *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
			return idx.(*alsh.Index).Search(q, k)
		}, nil
	case "subpq":
		idx := subpq.New(subpq.Config{
			Subspaces: p.Subspaces,
			Centroids: p.Centroids,
			Seed:      p.Seed,
		})
		return idx, func(idx benchIndex, q *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
			return idx.(*subpq.Index).Search(q, k)
		}, nil
	case "ivfflat":
		idx := ivf.New(ivf.Config{NumCentroids: p.Centroids, Seed: p.Seed})
		nprobe := p.Nprobe
		return idx, func(idx benchIndex, q *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
			return idx.(*ivf.IVFFlat).Search(q, k, nprobe)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown index kind %q", kind)
	}
}

// evaluate reports R@1, R@10, R@100 (whether the ground truth's nearest
// neighbor appears within the first 1/10/100 returned ids, matching
// original_source/src/bench.cpp's n_1/n_10/n_100 counters) plus
// Intersection, the mean fraction of the top-100 ground-truth set
// recovered anywhere in the top-100 returned ids.
func evaluate(ids [][]int, gt *mipskernel.Matrix, k int) (r1, r10, r100, intersection float64) {
	nq := len(ids)
	if nq == 0 {
		return 0, 0, 0, 0
	}

	var hit1, hit10, hit100 int
	var intersectionSum float64

	gtWidth := gt.Dim
	top := k
	if top > 100 {
		top = 100
	}

	for i := 0; i < nq; i++ {
		row := ids[i]
		gtNN := int(gt.At(i, 0))

		if contains(row, gtNN, min(1, len(row))) {
			hit1++
		}
		if contains(row, gtNN, min(10, len(row))) {
			hit10++
		}
		if contains(row, gtNN, min(100, len(row))) {
			hit100++
		}

		truth := make(map[int]struct{}, min(100, gtWidth))
		for j := 0; j < gtWidth && j < 100; j++ {
			truth[int(gt.At(i, j))] = struct{}{}
		}
		var matched int
		for j := 0; j < top; j++ {
			if _, ok := truth[row[j]]; ok {
				matched++
			}
		}
		intersectionSum += float64(matched) / float64(len(truth))
	}

	return float64(hit1) / float64(nq),
		float64(hit10) / float64(nq),
		float64(hit100) / float64(nq),
		intersectionSum / float64(nq)
}

func contains(ids []int, target int, limit int) bool {
	for i := 0; i < limit; i++ {
		if ids[i] == target {
			return true
		}
	}
	return false
}
