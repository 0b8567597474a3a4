package grpc

import (
	"fmt"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/alsh"
	"github.com/devraj-iyer/mipsindex/pkg/hkmeans"
	"github.com/devraj-iyer/mipsindex/pkg/ivf"
	"github.com/devraj-iyer/mipsindex/pkg/mipsconfig"
	"github.com/devraj-iyer/mipsindex/pkg/subpq"
)

// indexHandle is the shape every index package in this module already
// exposes (Build/Add/Search/Dim/Built/Reset). The server holds one of
// these per (namespace, kind) pair instead of a single concrete type, so
// the four index packages stay decoupled from the transport layer.
type indexHandle interface {
	Build(vectors *mipskernel.Matrix) error
	Add(vectors *mipskernel.Matrix) error
	Search(queries *mipskernel.Matrix, k int) ([][]float32, [][]int, error)
	Dim() int
	Built() bool
	Reset()
}

// ivfAdapter closes over the nprobe that ivf.IVFFlat.Search takes as a
// third argument, so it satisfies indexHandle alongside the other three
// index types.
type ivfAdapter struct {
	*ivf.IVFFlat
	nprobe int
}

func (a *ivfAdapter) Search(queries *mipskernel.Matrix, k int) ([][]float32, [][]int, error) {
	nprobe := a.nprobe
	if nprobe <= 0 {
		nprobe = 1
	}
	return a.IVFFlat.Search(queries, k, nprobe)
}

// augmentationKind maps the config package's string augmentation name to
// mipskernel.AugmentationKind. mipsconfig.Validate already rejected any
// value other than the four named here, so an unrecognized string reaching
// this point is a caller bug (a Config built by hand, bypassing Validate).
func augmentationKind(name string) (mipskernel.AugmentationKind, error) {
	switch name {
	case "shrivastava":
		return mipskernel.Shrivastava, nil
	case "neyshabur":
		return mipskernel.Neyshabur, nil
	case "none", "":
		return mipskernel.None, nil
	case "normalize":
		return mipskernel.Normalize, nil
	default:
		return 0, fmt.Errorf("mipsapi: unknown augmentation kind %q", name)
	}
}

// newIndex constructs a fresh, untrained index of kind, parameterized from
// cfg. An unrecognized kind is a caller bug, not a runtime condition worth
// a typed error.
func newIndex(kind IndexKind, cfg *mipsconfig.Config) (indexHandle, error) {
	switch kind {
	case KindHKMeans:
		aug, err := augmentationKind(cfg.HKMeans.AugmentationKind)
		if err != nil {
			return nil, err
		}
		return hkmeans.New(hkmeans.Config{
			Layers:           cfg.HKMeans.Layers,
			OpenedTrees:      cfg.HKMeans.OpenedTrees,
			AugmentationKind: aug,
			M:                cfg.HKMeans.M,
			U:                float32(cfg.HKMeans.U),
		}), nil
	case KindALSH:
		aug, err := augmentationKind(cfg.ALSH.AugmentationKind)
		if err != nil {
			return nil, err
		}
		return alsh.New(alsh.Config{
			Tables:           cfg.ALSH.Tables,
			HashesPerTable:   cfg.ALSH.HashesPerTable,
			BucketWidth:      float32(cfg.ALSH.BucketWidth),
			AugmentationKind: aug,
			M:                cfg.ALSH.M,
			U:                float32(cfg.ALSH.U),
		}), nil
	case KindSubPQ:
		return subpq.New(subpq.Config{
			Subspaces: cfg.SubPQ.Subspaces,
			Centroids: cfg.SubPQ.Centroids,
		}), nil
	case KindIVFFlat:
		return &ivfAdapter{
			IVFFlat: ivf.New(ivf.Config{NumCentroids: cfg.IVFFlat.NumCentroids}),
			nprobe:  cfg.IVFFlat.Nprobe,
		}, nil
	default:
		return nil, fmt.Errorf("mipsapi: unknown index kind %q", kind)
	}
}
