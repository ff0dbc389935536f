package service

import (
	"math"
	"sort"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// minBaselineSamples is the smallest series the baseline estimator will
// trust. Below it the baseline is reported as zero rather than an error so
// that alerts on young corpora evaluate cleanly.
const minBaselineSamples = 3

// kmeansMaxIterations bounds the Lloyd iteration loop.
const kmeansMaxIterations = 50

// Baseline holds summary statistics over a baseline window.
type Baseline struct {
	Mean       float64
	StdDev     float64
	SampleSize int
}

// estimateBaseline computes mean and standard deviation over the given
// counts. Fewer than minBaselineSamples points yields a zero baseline.
func estimateBaseline(counts []float64) Baseline {
	if len(counts) < minBaselineSamples {
		return Baseline{SampleSize: len(counts)}
	}

	var sum float64
	for _, v := range counts {
		sum += v
	}
	mean := sum / float64(len(counts))

	var variance float64
	for _, v := range counts {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(counts))

	return Baseline{
		Mean:       mean,
		StdDev:     math.Sqrt(variance),
		SampleSize: len(counts),
	}
}

// baselineOfNormal returns the mean of the points not flagged as anomalous.
// When every point is flagged it falls back to the mean of the full series.
func baselineOfNormal(counts []float64, flags []bool) float64 {
	var sum float64
	var n int
	for i, v := range counts {
		if i < len(flags) && flags[i] {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		if len(counts) == 0 {
			return 0
		}
		for _, v := range counts {
			sum += v
		}
		return sum / float64(len(counts))
	}
	return sum / float64(n)
}

// detectDBSCAN runs one-dimensional density clustering over counts.
// Points that end up in no cluster (noise) are flagged as anomalies.
// Returns a flag and a cluster label per point; noise points carry label -1.
// The result is deterministic in the input order and identical values always
// share a cluster.
func detectDBSCAN(counts []float64, eps float64, minSamples int) (flags []bool, labels []int) {
	n := len(counts)
	flags = make([]bool, n)
	labels = make([]int, n)
	if n == 0 {
		return flags, labels
	}
	if minSamples < 1 {
		minSamples = 1
	}

	for i := range labels {
		labels[i] = -1
	}

	// In one dimension neighbourhoods are intervals, so working over the
	// sorted order keeps the scan linear.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] < counts[order[b]] })

	neighbors := func(idx int) []int {
		var out []int
		v := counts[idx]
		for _, j := range order {
			if math.Abs(counts[j]-v) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	visited := make([]bool, n)
	cluster := 0
	for _, i := range order {
		if visited[i] {
			continue
		}
		visited[i] = true

		seeds := neighbors(i)
		if len(seeds) < minSamples {
			continue
		}

		labels[i] = cluster
		for k := 0; k < len(seeds); k++ {
			j := seeds[k]
			if labels[j] == -1 {
				labels[j] = cluster
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			more := neighbors(j)
			if len(more) >= minSamples {
				seeds = append(seeds, more...)
			}
		}
		cluster++
	}

	for i := range labels {
		flags[i] = labels[i] == -1
	}
	return flags, labels
}

// detectKMeans clusters counts with k-means over one dimension and flags
// points whose distance to their centroid exceeds sensitivity times the
// average intra-cluster distance. Initial centroids are spaced evenly over
// [min, max] so the result is deterministic. The effective k never exceeds
// the number of distinct values.
func detectKMeans(counts []float64, k int, sensitivity float64) (flags []bool, labels []int) {
	n := len(counts)
	flags = make([]bool, n)
	labels = make([]int, n)
	if n == 0 {
		return flags, labels
	}

	distinct := make(map[float64]struct{}, n)
	min, max := counts[0], counts[0]
	for _, v := range counts {
		distinct[v] = struct{}{}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if k > len(distinct) {
		k = len(distinct)
	}
	if k < 1 {
		k = 1
	}
	if k == 1 || min == max {
		// One cluster: every point sits with the mean, distances below.
		centroid := 0.0
		for _, v := range counts {
			centroid += v
		}
		centroid /= float64(n)
		flagOutliers(counts, labels, []float64{centroid}, sensitivity, flags)
		return flags, labels
	}

	centroids := make([]float64, k)
	step := (max - min) / float64(k-1)
	for c := range centroids {
		centroids[c] = min + step*float64(c)
	}

	for iter := 0; iter < kmeansMaxIterations; iter++ {
		moved := false

		for i, v := range counts {
			labels[i] = nearestCentroid(v, centroids)
		}

		sums := make([]float64, k)
		sizes := make([]int, k)
		for i, v := range counts {
			sums[labels[i]] += v
			sizes[labels[i]]++
		}
		for c := range centroids {
			if sizes[c] == 0 {
				continue
			}
			next := sums[c] / float64(sizes[c])
			if next != centroids[c] {
				centroids[c] = next
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	for i, v := range counts {
		labels[i] = nearestCentroid(v, centroids)
	}
	flagOutliers(counts, labels, centroids, sensitivity, flags)
	return flags, labels
}

func nearestCentroid(v float64, centroids []float64) int {
	best := 0
	bestDist := math.Abs(v - centroids[0])
	for c := 1; c < len(centroids); c++ {
		d := math.Abs(v - centroids[c])
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// flagOutliers marks points whose centroid distance exceeds sensitivity
// times the mean centroid distance across all points. A zero mean distance
// means the series is flat and nothing is flagged.
func flagOutliers(counts []float64, labels []int, centroids []float64, sensitivity float64, flags []bool) {
	if sensitivity <= 0 {
		sensitivity = 1
	}

	dists := make([]float64, len(counts))
	var total float64
	for i, v := range counts {
		dists[i] = math.Abs(v - centroids[labels[i]])
		total += dists[i]
	}
	avg := total / float64(len(counts))
	if avg == 0 {
		return
	}

	threshold := sensitivity * avg
	for i := range counts {
		flags[i] = dists[i] > threshold
	}
}

// anomalyScores reports per-point deviation from the baseline in standard
// deviation units. A zero standard deviation uses the raw deviation.
func anomalyScores(counts []float64, base Baseline) []float64 {
	scores := make([]float64, len(counts))
	for i, v := range counts {
		d := math.Abs(v - base.Mean)
		if base.StdDev > 0 {
			d /= base.StdDev
		}
		scores[i] = d
	}
	return scores
}

// classifyAnomaly names the anomaly for one bucket. A bucket inside a
// stretch where the whole source went quiet is a data gap, not a behaviour
// change. Otherwise the sign and size of the deviation from baseline decide:
// more than +50% is a spike, less than -50% is a silence, anything else is
// an unusual pattern.
func classifyAnomaly(count, baselineMean float64, sourceEmpty, prevSourceEmpty bool) string {
	if sourceEmpty && prevSourceEmpty {
		return domain.AnomalyDataGap
	}
	if baselineMean <= 0 {
		if count > 0 {
			return domain.AnomalySpike
		}
		return domain.AnomalyUnusualPattern
	}

	changePct := (count - baselineMean) / baselineMean * 100
	switch {
	case changePct > 50:
		return domain.AnomalySpike
	case changePct < -50:
		return domain.AnomalySilence
	default:
		return domain.AnomalyUnusualPattern
	}
}
