package dataset

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/pkg/errors"
)

func labeledDataset(t *testing.T, n, features int) *Dataset {
	t.Helper()
	x := mat.NewDense(n, features, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < features; j++ {
			x.Set(i, j, float64(i*features+j))
		}
		y.Set(i, 0, float64(i%2))
	}
	ds, err := FromMatrices(x, y)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestFromMatrices(t *testing.T) {
	tests := []struct {
		name    string
		x       mat.Matrix
		y       mat.Matrix
		wantErr bool
	}{
		{name: "labeled", x: mat.NewDense(3, 2, nil), y: mat.NewDense(3, 1, nil), wantErr: false},
		{name: "unlabeled", x: mat.NewDense(3, 2, nil), y: nil, wantErr: false},
		{name: "row mismatch", x: mat.NewDense(3, 2, nil), y: mat.NewDense(4, 1, nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := FromMatrices(tt.x, tt.y)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromMatrices() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ds.HasLabels() != (tt.y != nil) {
				t.Errorf("HasLabels() = %v", ds.HasLabels())
			}
		})
	}
}

func TestFromMatricesCopies(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	ds, err := FromMatrices(x, nil)
	if err != nil {
		t.Fatal(err)
	}
	x.Set(0, 0, 99)

	batch, err := ds.Batches(2).Next()
	if err != nil {
		t.Fatal(err)
	}
	if got := batch.X.At(0, 0); got != 1 {
		t.Errorf("dataset saw caller mutation: got %v, want 1", got)
	}
}

func TestBatches(t *testing.T) {
	ds := labeledDataset(t, 10, 3)

	tests := []struct {
		name      string
		batchSize int
		wantSizes []int
	}{
		{name: "even split", batchSize: 5, wantSizes: []int{5, 5}},
		{name: "remainder batch", batchSize: 4, wantSizes: []int{4, 4, 2}},
		{name: "oversized clamps to n", batchSize: 100, wantSizes: []int{10}},
		{name: "non-positive clamps to n", batchSize: 0, wantSizes: []int{10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := ds.Batches(tt.batchSize)
			var sizes []int
			for {
				batch, err := it.Next()
				if err != nil {
					if !errors.Is(err, errors.ErrOutOfRange) {
						t.Fatalf("Next() error = %v", err)
					}
					break
				}
				r, c := batch.X.Dims()
				if c != 3 {
					t.Errorf("batch features = %d, want 3", c)
				}
				ry, _ := batch.Y.Dims()
				if ry != r {
					t.Errorf("label rows = %d, want %d", ry, r)
				}
				if batch.Index != len(sizes) {
					t.Errorf("batch.Index = %d, want %d", batch.Index, len(sizes))
				}
				sizes = append(sizes, r)
			}
			if len(sizes) != len(tt.wantSizes) {
				t.Fatalf("got %d batches, want %d", len(sizes), len(tt.wantSizes))
			}
			for i, want := range tt.wantSizes {
				if sizes[i] != want {
					t.Errorf("batch %d size = %d, want %d", i, sizes[i], want)
				}
			}
		})
	}
}

func TestIteratorExhaustionIsSticky(t *testing.T) {
	ds := labeledDataset(t, 4, 2)
	it := ds.Batches(4)
	if _, err := it.Next(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := it.Next(); !errors.Is(err, errors.ErrOutOfRange) {
			t.Fatalf("Next() after exhaustion = %v, want ErrOutOfRange", err)
		}
	}
}

func TestShuffled(t *testing.T) {
	ds := labeledDataset(t, 20, 2)

	a := ds.Shuffled(7)
	b := ds.Shuffled(7)
	c := ds.Shuffled(8)

	batchA, _ := a.Batches(20).Next()
	batchB, _ := b.Batches(20).Next()
	batchC, _ := c.Batches(20).Next()

	if !mat.EqualApprox(batchA.X, batchB.X, 1e-15) {
		t.Error("same seed should produce the same permutation")
	}
	if mat.EqualApprox(batchA.X, batchC.X, 1e-15) {
		t.Error("different seeds should produce different permutations")
	}

	// Row contents survive: each original row must appear exactly once, with
	// its label still attached.
	seen := make(map[float64]bool)
	for i := 0; i < 20; i++ {
		first := batchA.X.At(i, 0)
		seen[first] = true
		wantLabel := float64(int(first/2) % 2)
		if got := batchA.Y.At(i, 0); got != wantLabel {
			t.Errorf("row %d: label = %v, want %v", i, got, wantLabel)
		}
	}
	if len(seen) != 20 {
		t.Errorf("shuffle lost rows: saw %d distinct rows, want 20", len(seen))
	}
}

func TestStream(t *testing.T) {
	ds := labeledDataset(t, 10, 2)

	t.Run("drains all batches", func(t *testing.T) {
		var count, rows int
		for batch := range ds.Stream(context.Background(), 3) {
			r, _ := batch.X.Dims()
			rows += r
			count++
		}
		if count != 4 || rows != 10 {
			t.Errorf("got %d batches with %d rows, want 4 batches with 10 rows", count, rows)
		}
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ch := ds.Stream(ctx, 1)
		<-ch
		cancel()
		// The channel must close; draining must not hang.
		for range ch {
		}
	})
}
