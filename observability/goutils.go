package observability

import (
	gometrics "github.com/xraph/go-utils/metrics"
)

// goUtilsFactory adapts a go-utils metric factory, such as the metrics
// collector of a forge app.
type goUtilsFactory struct {
	m gometrics.MetricFactory
}

// NewGoUtilsFactory returns a MetricFactory backed by m.
func NewGoUtilsFactory(m gometrics.MetricFactory) MetricFactory {
	return goUtilsFactory{m: m}
}

func (f goUtilsFactory) Counter(name string) Counter { return f.m.Counter(name) }

func (f goUtilsFactory) Histogram(name string) Histogram { return f.m.Histogram(name) }
