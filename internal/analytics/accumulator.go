package analytics

// accumulator keeps raw sums during a fold. Averages are taken once, after
// the fold, so no intermediate mean is ever rounded.
type accumulator struct {
	count      int64
	sum        float64
	high       int64
	suspicious int64
	safe       int64
}

func (a *accumulator) add(confidence float64, risk RiskLevel) {
	a.count++
	a.sum += confidence
	switch risk {
	case RiskHigh:
		a.high++
	case RiskSuspicious:
		a.suspicious++
	default:
		a.safe++
	}
}

func (a *accumulator) average() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

func (a *accumulator) category(label string) CategoryBucket {
	return CategoryBucket{
		Label:             label,
		Count:             a.count,
		AverageConfidence: a.average(),
	}
}

func (a *accumulator) day(date string) DayBucket {
	return DayBucket{
		Date:              date,
		Count:             a.count,
		AverageConfidence: a.average(),
		HighRiskCount:     a.high,
		SuspiciousCount:   a.suspicious,
		SafeCount:         a.safe,
	}
}

// groups is a label-keyed set of accumulators.
type groups map[string]*accumulator

func (g groups) get(label string) *accumulator {
	acc, ok := g[label]
	if !ok {
		acc = &accumulator{}
		g[label] = acc
	}
	return acc
}

func (g groups) categories() map[string]CategoryBucket {
	out := make(map[string]CategoryBucket, len(g))
	for label, acc := range g {
		out[label] = acc.category(label)
	}
	return out
}
