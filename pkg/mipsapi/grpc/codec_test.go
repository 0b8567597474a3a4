package grpc

import "testing"

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	want := &SearchRequest{Namespace: "ns", Kind: KindALSH, Queries: [][]float32{{1, 2}}, K: 5}

	data, err := c.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got := &SearchRequest{}
	if err := c.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Namespace != want.Namespace || got.Kind != want.Kind || got.K != want.K {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if len(got.Queries) != 1 || got.Queries[0][0] != 1 || got.Queries[0][1] != 2 {
		t.Fatalf("queries mismatch: %+v", got.Queries)
	}
}

func TestJSONCodecName(t *testing.T) {
	if (jsonCodec{}).Name() != "json" {
		t.Fatalf("Name() = %q, want json", (jsonCodec{}).Name())
	}
}
