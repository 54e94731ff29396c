// Package metrics provides the evaluation metrics used by model lifecycle
// operations: classification accuracy, log loss, and mean squared error.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gomodelkit/modelkit/pkg/errors"
)

// Accuracy computes the fraction of rows where the argmax of yPred equals
// the label in yTrue. yTrue is an n×1 matrix of class indices; yPred is an
// n×k matrix of class scores (k >= 1). For k == 1, scores are thresholded at
// 0.5.
func Accuracy(yTrue, yPred mat.Matrix) (float64, error) {
	n, cTrue := yTrue.Dims()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty matrix")
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("Accuracy", "labels must be a column vector (n×1 matrix)")
	}
	nPred, k := yPred.Dims()
	if nPred != n {
		return 0, errors.NewDimensionError("Accuracy", n, nPred, 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		predicted := argmaxRow(yPred, i, k)
		if predicted == int(yTrue.At(i, 0)) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

func argmaxRow(m mat.Matrix, row, cols int) int {
	if cols == 1 {
		if m.At(row, 0) >= 0.5 {
			return 1
		}
		return 0
	}
	best := 0
	bestVal := m.At(row, 0)
	for j := 1; j < cols; j++ {
		if v := m.At(row, j); v > bestVal {
			best = j
			bestVal = v
		}
	}
	return best
}

// LogLoss computes the mean negative log likelihood of the true classes
// under the predicted probability rows. yTrue is n×1 class indices; yProba
// is n×k probabilities. Probabilities are clipped to [eps, 1-eps] to keep
// the loss finite.
func LogLoss(yTrue, yProba mat.Matrix) (float64, error) {
	const eps = 1e-15

	n, cTrue := yTrue.Dims()
	if n == 0 {
		return 0, errors.NewValueError("LogLoss", "empty matrix")
	}
	if cTrue != 1 {
		return 0, errors.NewValueError("LogLoss", "labels must be a column vector (n×1 matrix)")
	}
	nProba, k := yProba.Dims()
	if nProba != n {
		return 0, errors.NewDimensionError("LogLoss", n, nProba, 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		class := int(yTrue.At(i, 0))
		if class < 0 || class >= k {
			return 0, errors.NewValueError("LogLoss", "label out of range for probability columns")
		}
		p := yProba.At(i, class)
		if p < eps {
			p = eps
		}
		if p > 1-eps {
			p = 1 - eps
		}
		sum -= math.Log(p)
	}
	return sum / float64(n), nil
}

// MSE computes the mean squared error between two equally shaped matrices.
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	r, c := yTrue.Dims()
	if r == 0 || c == 0 {
		return 0, errors.NewValueError("MSE", "empty matrix")
	}
	rPred, cPred := yPred.Dims()
	if rPred != r {
		return 0, errors.NewDimensionError("MSE", r, rPred, 0)
	}
	if cPred != c {
		return 0, errors.NewDimensionError("MSE", c, cPred, 1)
	}

	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff := yTrue.At(i, j) - yPred.At(i, j)
			sum += diff * diff
		}
	}
	return sum / float64(r*c), nil
}
