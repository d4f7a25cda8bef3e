// Package iforest implements the Isolation Forest algorithm for anomaly detection.
//
// Scores follow the common convention for isolation forests: ScoreSamples is
// the negated anomaly score 2^(-E[h(x)]/c(n)), DecisionFunction subtracts the
// fitted offset, and Predict marks samples with a negative decision value as
// outliers.
package iforest

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/kshitij1706/fraud-anomaly-detection/pkg/detectors"
)

// autoOffset is the decision offset used when contamination is not set.
const autoOffset = -0.5

const eulerGamma = 0.5772156649015329

var _ detectors.Detector = (*IsolationForest)(nil)

// IsolationForest implements unsupervised anomaly detection using isolation trees.
type IsolationForest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	rng           *rand.Rand

	// Trained model
	trees     []iTree
	trained   bool
	nFeatures int
	maxDepth  int

	// avgPathLength is c(psi) for the effective subsample size.
	avgPathLength float64
	offset        float64
}

// iTree is a single isolation tree stored as a flat node list; Nodes[0] is the root.
type iTree struct {
	Nodes []node
}

// node is a node in the isolation tree. Left and Right are indices into the
// tree's node list, -1 for leaves.
type node struct {
	Feature int
	Split   float64
	Left    int
	Right   int
	// Size is the number of training samples that reached a leaf.
	Size int
}

func (n node) isLeaf() bool { return n.Left < 0 && n.Right < 0 }

// Option configures an IsolationForest.
type Option func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *IsolationForest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *IsolationForest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies.
// Zero keeps the fixed -0.5 offset.
func WithContamination(c float64) Option {
	return func(f *IsolationForest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *IsolationForest) {
		f.rng = rand.New(rand.NewSource(seed))
	}
}

// WithConfig applies a detectors.Config.
func WithConfig(cfg detectors.Config) Option {
	return func(f *IsolationForest) {
		f.nTrees = cfg.Trees
		f.sampleSize = cfg.SampleSize
		f.contamination = cfg.Contamination
		f.rng = rand.New(rand.NewSource(cfg.RandomSeed))
	}
}

// New creates a new IsolationForest with the given options.
func New(opts ...Option) *IsolationForest {
	f := &IsolationForest{
		nTrees:     100,
		sampleSize: 256,
		offset:     autoOffset,
		rng:        rand.New(rand.NewSource(42)),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fit trains the Isolation Forest on the provided data.
func (f *IsolationForest) Fit(data [][]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(data) == 0 {
		return errors.New("empty training data")
	}
	if f.nTrees <= 0 || f.sampleSize <= 0 {
		return errors.New("trees and sample size must be positive")
	}

	nSamples := len(data)
	nFeatures := len(data[0])
	if nFeatures == 0 {
		return errors.New("training data has no features")
	}
	if err := detectors.CheckWidth(nFeatures, data); err != nil {
		return err
	}

	// Adjust sample size if needed
	sampleSize := f.sampleSize
	if sampleSize > nSamples {
		sampleSize = nSamples
	}
	f.maxDepth = int(math.Ceil(math.Log2(math.Max(float64(sampleSize), 2))))

	f.trees = make([]iTree, f.nTrees)
	for i := 0; i < f.nTrees; i++ {
		// Sample without replacement
		indices := f.rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}

		var t iTree
		t.grow(f, sample, nFeatures, 0)
		f.trees[i] = t
	}

	f.nFeatures = nFeatures
	f.avgPathLength = averagePathLength(float64(sampleSize))
	f.trained = true

	f.offset = autoOffset
	if f.contamination > 0 {
		scores := f.scoreSamples(data)
		f.offset = percentile(scores, 100*f.contamination)
	}

	return nil
}

// grow appends the subtree built from data and returns its index.
func (t *iTree) grow(f *IsolationForest, data [][]float64, nFeatures, depth int) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, node{Left: -1, Right: -1, Size: len(data)})

	// Terminal conditions
	if depth >= f.maxDepth || len(data) <= 1 {
		return idx
	}

	feature, minVal, maxVal, ok := pickFeature(f.rng, data, nFeatures)
	if !ok {
		// Every feature is constant: nothing left to isolate.
		return idx
	}

	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	left := t.grow(f, leftData, nFeatures, depth+1)
	right := t.grow(f, rightData, nFeatures, depth+1)
	t.Nodes[idx] = node{Feature: feature, Split: splitValue, Left: left, Right: right}

	return idx
}

// pickFeature draws features in random order until one is not constant over
// data and returns it with its range.
func pickFeature(rng *rand.Rand, data [][]float64, nFeatures int) (feature int, minVal, maxVal float64, ok bool) {
	for _, feature = range rng.Perm(nFeatures) {
		minVal, maxVal = data[0][feature], data[0][feature]
		for _, row := range data[1:] {
			if row[feature] < minVal {
				minVal = row[feature]
			}
			if row[feature] > maxVal {
				maxVal = row[feature]
			}
		}
		if minVal < maxVal {
			return feature, minVal, maxVal, true
		}
	}
	return 0, 0, 0, false
}

// ScoreSamples returns the negated anomaly score of each sample, in [-1, 0].
func (f *IsolationForest) ScoreSamples(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.ready(data); err != nil {
		return nil, err
	}
	return f.scoreSamples(data), nil
}

// DecisionFunction returns ScoreSamples minus the fitted offset.
func (f *IsolationForest) DecisionFunction(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.ready(data); err != nil {
		return nil, err
	}
	return f.decisionFunction(data), nil
}

// Predict returns detectors.Outlier for samples with a negative decision value.
func (f *IsolationForest) Predict(data [][]float64) ([]detectors.Label, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if err := f.ready(data); err != nil {
		return nil, err
	}

	decisions := f.decisionFunction(data)
	labels := make([]detectors.Label, len(decisions))
	for i, d := range decisions {
		labels[i] = detectors.Inlier
		if d < 0 {
			labels[i] = detectors.Outlier
		}
	}
	return labels, nil
}

func (f *IsolationForest) ready(data [][]float64) error {
	if !f.trained {
		return detectors.ErrNotTrained
	}
	return detectors.CheckWidth(f.nFeatures, data)
}

func (f *IsolationForest) decisionFunction(data [][]float64) []float64 {
	scores := f.scoreSamples(data)
	for i := range scores {
		scores[i] -= f.offset
	}
	return scores
}

func (f *IsolationForest) scoreSamples(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = -f.anomalyScore(sample)
	}
	return scores
}

// anomalyScore returns 2^(-E[h(x)] / c(psi)); higher is more anomalous.
func (f *IsolationForest) anomalyScore(sample []float64) float64 {
	var totalPath float64
	for i := range f.trees {
		totalPath += f.trees[i].pathLength(sample)
	}
	avgPath := totalPath / float64(len(f.trees))

	// A single-sample forest has c(1) = 0 and every path is 0.
	norm := f.avgPathLength
	if norm == 0 {
		norm = 1
	}
	return math.Pow(2, -avgPath/norm)
}

// pathLength calculates the path length for a sample in a tree.
func (t *iTree) pathLength(sample []float64) float64 {
	depth := 0
	n := t.Nodes[0]
	for !n.isLeaf() {
		if sample[n.Feature] < n.Split {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
		depth++
	}
	// Leaf node: add expected path length for remaining isolation
	return float64(depth) + averagePathLength(float64(n.Size))
}

// averagePathLength returns the average path length of unsuccessful search in BST.
func averagePathLength(n float64) float64 {
	switch {
	case n <= 1:
		return 0
	case n <= 2:
		return 1
	}
	// c(n) = 2*H(n-1) - 2*(n-1)/n, with H(i) ~ ln(i) + Euler-Mascheroni
	return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
}

// NFeatures returns the number of features seen during Fit.
func (f *IsolationForest) NFeatures() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nFeatures
}

// Offset returns the decision offset.
func (f *IsolationForest) Offset() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.offset
}

// Config returns the forest parameters. RandomSeed is not retained and is zero.
func (f *IsolationForest) Config() detectors.Config {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return detectors.Config{
		Trees:         f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
	}
}

// snapshot is the gob-encoded form of a trained forest.
type snapshot struct {
	Trees         int
	SampleSize    int
	Contamination float64
	NFeatures     int
	MaxDepth      int
	AvgPathLength float64
	Offset        float64
	Forest        []iTree
}

// Save serializes the trained model.
func (f *IsolationForest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, detectors.ErrNotTrained
	}

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Trees:         f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
		NFeatures:     f.nFeatures,
		MaxDepth:      f.maxDepth,
		AvgPathLength: f.avgPathLength,
		Offset:        f.offset,
		Forest:        f.trees,
	})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (f *IsolationForest) Load(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	if len(s.Forest) == 0 || s.NFeatures <= 0 {
		return errors.New("model has no trees or features")
	}
	for _, t := range s.Forest {
		if err := t.validate(s.NFeatures); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nTrees = s.Trees
	f.sampleSize = s.SampleSize
	f.contamination = s.Contamination
	f.nFeatures = s.NFeatures
	f.maxDepth = s.MaxDepth
	f.avgPathLength = s.AvgPathLength
	f.offset = s.Offset
	f.trees = s.Forest
	f.trained = true

	return nil
}

// validate rejects trees whose indices or features would fault at scoring time.
func (t iTree) validate(nFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.isLeaf() {
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return errors.New("tree node references out of range")
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return errors.New("tree node feature out of range")
		}
	}
	return nil
}

// percentile calculates the p-th percentile of data with linear interpolation.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	pos := float64(len(sorted)-1) * p / 100
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
