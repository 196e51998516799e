package stats

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/vk/neurogrid/internal/iface"
)

// NewExtractMetrics computes the average and population standard deviation
// of a list of floats.
func NewExtractMetrics() *iface.Func {
	return iface.NewFunc("extract_metrics",
		iface.Spec{
			{Name: "in_list", Kind: iface.KindFloats, Mandatory: true, Desc: "Input floats"},
		},
		iface.Spec{
			{Name: "avg", Kind: iface.KindFloat, Mandatory: true, Desc: "The average"},
			{Name: "std", Kind: iface.KindFloat, Mandatory: true, Desc: "The standard deviation"},
		},
		extractMetrics,
	)
}

func extractMetrics(_ context.Context, _ *iface.Runtime, in iface.Inputs) (iface.Outputs, error) {
	values := in["in_list"].([]float64)
	if len(values) == 0 {
		return nil, errors.New("cannot compute metrics of an empty list")
	}
	avg, std := Metrics(values)
	return iface.Outputs{"avg": avg, "std": std}, nil
}

// Metrics returns the mean and the population standard deviation of values.
func Metrics(values []float64) (avg, std float64) {
	avg = stat.Mean(values, nil)
	// The second central moment is the population variance.
	std = math.Sqrt(stat.Moment(2, values, nil))
	return avg, std
}
