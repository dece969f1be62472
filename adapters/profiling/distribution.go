package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"cohortprep/domain/profiling"
)

// normalityAlpha is the significance level for the normality check
const normalityAlpha = 0.05

// summarize computes location and spread statistics over observed values
func summarize(observed []float64) (*profiling.SummaryStats, error) {
	mean, err := stats.Mean(observed)
	if err != nil {
		return nil, err
	}

	stdDev, err := stats.StandardDeviationPopulation(observed)
	if err != nil {
		return nil, err
	}

	min, err := stats.Min(observed)
	if err != nil {
		return nil, err
	}

	max, err := stats.Max(observed)
	if err != nil {
		return nil, err
	}

	median, err := stats.Median(observed)
	if err != nil {
		return nil, err
	}

	// Quartiles; montanaflynn needs at least 3 values for percentiles
	q25, q75 := median, median
	if len(observed) >= 3 {
		if q, err := stats.Percentile(observed, 25); err == nil {
			q25 = q
		}
		if q, err := stats.Percentile(observed, 75); err == nil {
			q75 = q
		}
	}

	return &profiling.SummaryStats{
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Median: median,
		Q25:    q25,
		Q75:    q75,
	}, nil
}

// analyzeDistribution computes shape statistics and a Jarque-Bera
// normality check over the observed values
func analyzeDistribution(observed []float64, mean, stdDev float64) profiling.DistributionStats {
	skewness := calculateSkewness(observed, mean, stdDev)
	kurtosis := calculateKurtosis(observed, mean, stdDev)
	isNormal, p := testNormality(observed, skewness, kurtosis)

	return profiling.DistributionStats{
		Skewness: skewness,
		Kurtosis: kurtosis,
		IsNormal: isNormal,
		NormalP:  p,
	}
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n

	// Bias correction for sample skewness
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return skewness * correction
}

// calculateKurtosis computes sample excess kurtosis
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumFourthDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumFourthDeviations += deviation * deviation * deviation * deviation
	}

	return sumFourthDeviations/n - 3
}

// testNormality runs a Jarque-Bera test: the statistic is asymptotically
// chi-squared with 2 degrees of freedom under normality
func testNormality(data []float64, skewness, kurtosis float64) (bool, float64) {
	n := float64(len(data))
	if n < 8 {
		// Too few observations for the asymptotics to mean anything
		return true, 1.0
	}

	jb := n / 6 * (skewness*skewness + kurtosis*kurtosis/4)

	chi2 := distuv.ChiSquared{K: 2}
	p := 1 - chi2.CDF(jb)

	return p > normalityAlpha, p
}
