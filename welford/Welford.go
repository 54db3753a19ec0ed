// Package welford implements online estimation of the mean and
// variance of a stream of vector observations using Welford's
// algorithm. Statistics are updated one observation at a time without
// storing the stream.
package welford

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Estimator tracks the running mean and variance of a stream of
// equal-length vectors. The zero count state reports a zero mean and
// zero variance in each dimension.
type Estimator struct {
	count float64
	mean  *mat.VecDense
	m2    *mat.VecDense

	dims int
}

// New returns a new Estimator for a stream of vectors with dims
// dimensions.
func New(dims int) (*Estimator, error) {
	if dims < 1 {
		return nil, fmt.Errorf("new: dims must be positive \n\thave(%v)",
			dims)
	}

	return &Estimator{
		count: 0,
		mean:  mat.NewVecDense(dims, nil),
		m2:    mat.NewVecDense(dims, nil),
		dims:  dims,
	}, nil
}

// NewFromBatch returns a new Estimator whose statistics have been
// seeded with each vector in the batch.
func NewFromBatch(batch []*mat.VecDense) (*Estimator, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("newFromBatch: batch cannot be empty")
	}

	e, err := New(batch[0].Len())
	if err != nil {
		return nil, fmt.Errorf("newFromBatch: %v", err)
	}

	for _, v := range batch {
		if err := e.Update(v); err != nil {
			return nil, fmt.Errorf("newFromBatch: %v", err)
		}
	}
	return e, nil
}

// Update folds a single observation into the running statistics.
func (e *Estimator) Update(x *mat.VecDense) error {
	if x.Len() != e.dims {
		return fmt.Errorf("update: invalid number of dimensions "+
			"\n\twant(%v) \n\thave(%v)", e.dims, x.Len())
	}

	e.count++
	for i := 0; i < e.dims; i++ {
		delta := x.AtVec(i) - e.mean.AtVec(i)
		e.mean.SetVec(i, e.mean.AtVec(i)+delta/e.count)
		delta2 := x.AtVec(i) - e.mean.AtVec(i)
		e.m2.SetVec(i, e.m2.AtVec(i)+delta*delta2)
	}
	return nil
}

// Reset discards all accumulated statistics, returning the Estimator
// to its zero count state.
func (e *Estimator) Reset() {
	e.count = 0
	e.mean.Zero()
	e.m2.Zero()
}

// Count returns the number of observations folded into the statistics.
func (e *Estimator) Count() int {
	return int(e.count)
}

// Mean returns the running mean of the stream.
func (e *Estimator) Mean() *mat.VecDense {
	mean := mat.NewVecDense(e.dims, nil)
	mean.CopyVec(e.mean)
	return mean
}

// Variance returns the running population variance of the stream. A
// stream of a single observation has zero variance.
func (e *Estimator) Variance() *mat.VecDense {
	variance := mat.NewVecDense(e.dims, nil)
	if e.count == 0 {
		return variance
	}

	variance.ScaleVec(1/e.count, e.m2)
	return variance
}

// StdDev returns the running population standard deviation of the
// stream.
func (e *Estimator) StdDev() *mat.VecDense {
	std := e.Variance()
	for i := 0; i < e.dims; i++ {
		std.SetVec(i, math.Sqrt(std.AtVec(i)))
	}
	return std
}

// Normalize returns x standardized by the running mean and standard
// deviation. A small offset stabilizes the division in dimensions
// with near zero variance.
func (e *Estimator) Normalize(x *mat.VecDense) (*mat.VecDense, error) {
	const stabilizer float64 = 1e-10

	if x.Len() != e.dims {
		return nil, fmt.Errorf("normalize: invalid number of dimensions "+
			"\n\twant(%v) \n\thave(%v)", e.dims, x.Len())
	}

	std := e.StdDev()
	norm := mat.NewVecDense(e.dims, nil)
	for i := 0; i < e.dims; i++ {
		norm.SetVec(i, (x.AtVec(i)-e.mean.AtVec(i))/(std.AtVec(i)+stabilizer))
	}
	return norm, nil
}
