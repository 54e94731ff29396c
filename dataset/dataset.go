// Package dataset provides in-memory batch sources for training, evaluation
// and prediction.
//
// A Dataset wraps a feature matrix and, optionally, a label matrix. Training
// loops consume it through an Iterator, whose Next returns
// errors.ErrOutOfRange once the data is exhausted, which is expected control flow
// that ends the epoch, not a failure. A context-aware channel Stream is
// provided for streaming consumers.
package dataset

import (
	"context"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/pkg/errors"
)

// Batch is one mini-batch of data. Y is nil for predict-only datasets.
type Batch struct {
	X mat.Matrix
	Y mat.Matrix
	// Index is the zero-based position of the batch within its epoch.
	Index int
}

// Dataset is an in-memory collection of (features, labels) rows. Labels are
// optional; a dataset without labels serves Predict only.
type Dataset struct {
	x        *mat.Dense
	y        *mat.Dense
	n        int
	features int
}

// FromMatrices builds a dataset from a feature matrix and an optional label
// matrix. y may be nil for predict-only data; otherwise its row count must
// match X. Inputs are copied into dense form, so callers may mutate their
// matrices afterwards.
func FromMatrices(X, y mat.Matrix) (*Dataset, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset.FromMatrices")
	}
	d := &Dataset{n: r, features: c}
	d.x = denseCopy(X)

	if y != nil {
		ry, cy := y.Dims()
		if ry != r {
			return nil, errors.NewDimensionError("dataset.FromMatrices", r, ry, 0)
		}
		if cy == 0 {
			return nil, errors.Wrap(errors.ErrEmptyData, "dataset.FromMatrices: labels")
		}
		d.y = denseCopy(y)
	}
	return d, nil
}

func denseCopy(m mat.Matrix) *mat.Dense {
	if dm, ok := m.(*mat.Dense); ok {
		var out mat.Dense
		out.CloneFrom(dm)
		return &out
	}
	errors.Warn(errors.NewDataConversionWarning(
		fmt.Sprintf("%T", m), "*mat.Dense", "dataset requires dense row storage"))
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(m)
	return out
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return d.n }

// NumFeatures returns the number of feature columns.
func (d *Dataset) NumFeatures() int { return d.features }

// HasLabels reports whether the dataset carries labels.
func (d *Dataset) HasLabels() bool { return d.y != nil }

// Shuffled returns a new dataset with rows permuted by the given seed. The
// receiver is unchanged.
func (d *Dataset) Shuffled(seed int64) *Dataset {
	rnd := rand.New(rand.NewSource(seed))
	perm := rnd.Perm(d.n)

	x := mat.NewDense(d.n, d.features, nil)
	var y *mat.Dense
	if d.y != nil {
		_, cy := d.y.Dims()
		y = mat.NewDense(d.n, cy, nil)
	}
	for to, from := range perm {
		x.SetRow(to, d.x.RawRowView(from))
		if y != nil {
			y.SetRow(to, d.y.RawRowView(from))
		}
	}
	return &Dataset{x: x, y: y, n: d.n, features: d.features}
}

// Batches returns a one-shot iterator over mini-batches of the given size.
// The final batch may be smaller than batchSize.
func (d *Dataset) Batches(batchSize int) *Iterator {
	if batchSize <= 0 || batchSize > d.n {
		batchSize = d.n
	}
	return &Iterator{d: d, batchSize: batchSize}
}

// Iterator yields successive mini-batches from a dataset. It is single-use:
// create a fresh one for each epoch.
type Iterator struct {
	d         *Dataset
	batchSize int
	pos       int
	index     int
}

// Next returns the next batch, or errors.ErrOutOfRange once the dataset is
// exhausted.
func (it *Iterator) Next() (*Batch, error) {
	if it.pos >= it.d.n {
		return nil, errors.ErrOutOfRange
	}
	end := it.pos + it.batchSize
	if end > it.d.n {
		end = it.d.n
	}
	batch := &Batch{
		X:     it.d.x.Slice(it.pos, end, 0, it.d.features),
		Index: it.index,
	}
	if it.d.y != nil {
		_, cy := it.d.y.Dims()
		batch.Y = it.d.y.Slice(it.pos, end, 0, cy)
	}
	it.pos = end
	it.index++
	return batch, nil
}

// Stream sends mini-batches on a channel until the dataset is exhausted or
// ctx is canceled, then closes the channel.
func (d *Dataset) Stream(ctx context.Context, batchSize int) <-chan *Batch {
	out := make(chan *Batch)
	go func() {
		defer close(out)
		it := d.Batches(batchSize)
		for {
			batch, err := it.Next()
			if err != nil {
				return
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
