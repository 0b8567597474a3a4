package grpc

import (
	"context"
	"testing"

	"github.com/devraj-iyer/mipsindex/pkg/mipsconfig"
)

func testConfig() *mipsconfig.Config {
	cfg := mipsconfig.Default()
	cfg.HKMeans.Layers = 1
	cfg.HKMeans.OpenedTrees = 2
	cfg.ALSH.Tables = 2
	cfg.ALSH.HashesPerTable = 2
	cfg.SubPQ.Subspaces = 2
	cfg.SubPQ.Centroids = 2
	cfg.IVFFlat.NumCentroids = 2
	cfg.IVFFlat.Nprobe = 2
	return cfg
}

func unitVectors() [][]float32 {
	return [][]float32{
		{1, 0},
		{0, 1},
		{-1, 0},
		{0, -1},
	}
}

func TestBuildAddSearchRoundTrip(t *testing.T) {
	for _, kind := range []IndexKind{KindHKMeans, KindALSH, KindSubPQ, KindIVFFlat} {
		t.Run(string(kind), func(t *testing.T) {
			srv, err := NewServer(testConfig(), nil, nil)
			if err != nil {
				t.Fatalf("NewServer: %v", err)
			}

			buildResp, err := srv.Build(context.Background(), &BuildRequest{
				Namespace: "default",
				Kind:      kind,
				Vectors:   unitVectors(),
			})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if buildResp.VectorCount != 4 {
				t.Fatalf("VectorCount = %d, want 4", buildResp.VectorCount)
			}

			addResp, err := srv.Add(context.Background(), &AddRequest{
				Namespace: "default",
				Kind:      kind,
				Vectors:   [][]float32{{1, 1}},
			})
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			if addResp.VectorCount != 1 {
				t.Fatalf("Add VectorCount = %d, want 1", addResp.VectorCount)
			}

			searchResp, err := srv.Search(context.Background(), &SearchRequest{
				Namespace: "default",
				Kind:      kind,
				Queries:   [][]float32{{1, 0}},
				K:         2,
			})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(searchResp.Results) != 1 {
				t.Fatalf("Results length = %d, want 1", len(searchResp.Results))
			}
			if len(searchResp.Results[0].Ids) != 2 {
				t.Fatalf("Ids length = %d, want 2", len(searchResp.Results[0].Ids))
			}
		})
	}
}

func TestSearchBeforeBuildFails(t *testing.T) {
	srv, err := NewServer(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	_, err = srv.Search(context.Background(), &SearchRequest{
		Namespace: "default",
		Kind:      KindHKMeans,
		Queries:   [][]float32{{1, 0}},
		K:         1,
	})
	if err == nil {
		t.Fatal("expected error searching before build")
	}
}

func TestResetClearsIndex(t *testing.T) {
	srv, err := NewServer(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	if _, err := srv.Build(context.Background(), &BuildRequest{
		Namespace: "default",
		Kind:      KindHKMeans,
		Vectors:   unitVectors(),
	}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := srv.Reset(context.Background(), &ResetRequest{Namespace: "default", Kind: KindHKMeans}); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	_, err = srv.Search(context.Background(), &SearchRequest{
		Namespace: "default",
		Kind:      KindHKMeans,
		Queries:   [][]float32{{1, 0}},
		K:         1,
	})
	if err == nil {
		t.Fatal("expected error searching a reset index")
	}
}

func TestBuildRejectsEmptyNamespace(t *testing.T) {
	srv, err := NewServer(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	_, err = srv.Build(context.Background(), &BuildRequest{Kind: KindHKMeans, Vectors: unitVectors()})
	if err == nil {
		t.Fatal("expected error for empty namespace")
	}
}
