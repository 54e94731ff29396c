package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.Dense
		yPred   *mat.Dense
		want    float64
		wantErr bool
	}{
		{
			name:  "multiclass argmax",
			yTrue: mat.NewDense(3, 1, []float64{0, 1, 2}),
			yPred: mat.NewDense(3, 3, []float64{
				0.8, 0.1, 0.1,
				0.2, 0.7, 0.1,
				0.3, 0.4, 0.3,
			}),
			want: 2.0 / 3.0,
		},
		{
			name:  "binary threshold",
			yTrue: mat.NewDense(4, 1, []float64{0, 1, 1, 0}),
			yPred: mat.NewDense(4, 1, []float64{0.2, 0.9, 0.4, 0.6}),
			want:  0.5,
		},
		{
			name:    "empty",
			yTrue:   &mat.Dense{},
			yPred:   &mat.Dense{},
			wantErr: true,
		},
		{
			name:    "row mismatch",
			yTrue:   mat.NewDense(3, 1, nil),
			yPred:   mat.NewDense(2, 2, nil),
			wantErr: true,
		},
		{
			name:    "labels not a column",
			yTrue:   mat.NewDense(2, 2, nil),
			yPred:   mat.NewDense(2, 2, nil),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Accuracy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogLoss(t *testing.T) {
	t.Run("perfect prediction approaches zero", func(t *testing.T) {
		yTrue := mat.NewDense(2, 1, []float64{0, 1})
		yProba := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		got, err := LogLoss(yTrue, yProba)
		if err != nil {
			t.Fatal(err)
		}
		if got > 1e-10 {
			t.Errorf("LogLoss() = %v, want ~0", got)
		}
	})

	t.Run("uniform prediction is log k", func(t *testing.T) {
		yTrue := mat.NewDense(2, 1, []float64{0, 1})
		yProba := mat.NewDense(2, 2, []float64{0.5, 0.5, 0.5, 0.5})
		got, err := LogLoss(yTrue, yProba)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-math.Log(2)) > 1e-12 {
			t.Errorf("LogLoss() = %v, want log(2)", got)
		}
	})

	t.Run("zero probability stays finite", func(t *testing.T) {
		yTrue := mat.NewDense(1, 1, []float64{1})
		yProba := mat.NewDense(1, 2, []float64{1, 0})
		got, err := LogLoss(yTrue, yProba)
		if err != nil {
			t.Fatal(err)
		}
		if math.IsInf(got, 0) || math.IsNaN(got) {
			t.Errorf("LogLoss() = %v, want finite", got)
		}
	})

	t.Run("label out of range", func(t *testing.T) {
		yTrue := mat.NewDense(1, 1, []float64{5})
		yProba := mat.NewDense(1, 2, []float64{0.5, 0.5})
		if _, err := LogLoss(yTrue, yProba); err == nil {
			t.Fatal("out-of-range label should fail")
		}
	})
}

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.Dense
		yPred   *mat.Dense
		want    float64
		wantErr bool
	}{
		{
			name:  "identical",
			yTrue: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			yPred: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
			want:  0,
		},
		{
			name:  "constant offset",
			yTrue: mat.NewDense(2, 1, []float64{1, 2}),
			yPred: mat.NewDense(2, 1, []float64{3, 4}),
			want:  4,
		},
		{
			name:    "shape mismatch",
			yTrue:   mat.NewDense(2, 1, nil),
			yPred:   mat.NewDense(2, 2, nil),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSaveLossPlot(t *testing.T) {
	t.Run("empty history fails", func(t *testing.T) {
		if err := SaveLossPlot(nil, "t", "out.png"); err == nil {
			t.Fatal("empty history should fail")
		}
	})

	t.Run("writes a file", func(t *testing.T) {
		history := map[string][]float64{
			"loss":     {0.9, 0.5, 0.3, 0.2},
			"accuracy": {0.5, 0.7, 0.8, 0.9},
		}
		path := t.TempDir() + "/loss.png"
		if err := SaveLossPlot(history, "training", path); err != nil {
			t.Fatalf("SaveLossPlot() error = %v", err)
		}
	})
}
