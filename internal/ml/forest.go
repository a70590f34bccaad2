// Package ml implements the variance-reduction regression forest used for
// energy prediction, plus its gob artifact codec.
package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// ForestConfig carries the fitting hyperparameters.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	Seed     uint64
}

// Forest is a bagged ensemble of regression trees. Fields are exported for
// gob serialization; treat instances as immutable after fitting.
type Forest struct {
	Trees       []*Node
	NumFeatures int
}

// Node is one tree node. Leaves carry Value; interior nodes split on
// Feature <= Threshold.
type Node struct {
	Leaf      bool
	Value     float64
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node
}

// FitForest trains cfg.Trees bootstrap trees over the sample matrix. Fitting
// is deterministic for a fixed seed regardless of scheduling: every tree
// derives its own source from Seed and its index. Trees fit concurrently.
func FitForest(features [][]float64, targets []float64, cfg ForestConfig) (*Forest, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("ml: no training samples")
	}
	if len(features) != len(targets) {
		return nil, fmt.Errorf("ml: %d feature rows vs %d targets", len(features), len(targets))
	}
	width := len(features[0])
	if width == 0 {
		return nil, fmt.Errorf("ml: empty feature rows")
	}
	for i, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("ml: row %d has %d features, want %d", i, len(row), width)
		}
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 10
	}

	forest := &Forest{
		Trees:       make([]*Node, cfg.Trees),
		NumFeatures: width,
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Trees; i++ {
		wg.Add(1)
		go func(tree int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(cfg.Seed + uint64(tree)))
			idx := bootstrap(len(features), rnd)
			forest.Trees[tree] = grow(features, targets, idx, 0, cfg.MaxDepth)
		}(i)
	}
	wg.Wait()

	return forest, nil
}

// Predict averages the per-tree estimates for one feature row.
func (f *Forest) Predict(row []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, root := range f.Trees {
		sum += root.predict(row)
	}
	return sum / float64(len(f.Trees))
}

func (n *Node) predict(row []float64) float64 {
	for !n.Leaf {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// Encode serializes the forest for artifact storage.
func (f *Forest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeForest reverses Encode.
func DecodeForest(data []byte) (*Forest, error) {
	var f Forest
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if len(f.Trees) == 0 || f.NumFeatures == 0 {
		return nil, fmt.Errorf("decode forest: artifact is empty")
	}
	return &f, nil
}

func bootstrap(n int, rnd *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rnd.Intn(n)
	}
	return idx
}

// grow builds a node over the samples selected by idx using recursive
// variance-reduction splits.
func grow(features [][]float64, targets []float64, idx []int, depth, maxDepth int) *Node {
	ys := make([]float64, len(idx))
	for i, j := range idx {
		ys[i] = targets[j]
	}
	mean := stat.Mean(ys, nil)

	if depth >= maxDepth || len(idx) < 2 || stat.Variance(ys, nil) == 0 {
		return &Node{Leaf: true, Value: mean}
	}

	feature, threshold, ok := bestSplit(features, targets, idx)
	if !ok {
		return &Node{Leaf: true, Value: mean}
	}

	var left, right []int
	for _, j := range idx {
		if features[j][feature] <= threshold {
			left = append(left, j)
		} else {
			right = append(right, j)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &Node{Leaf: true, Value: mean}
	}

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      grow(features, targets, left, depth+1, maxDepth),
		Right:     grow(features, targets, right, depth+1, maxDepth),
	}
}

// bestSplit scans every feature for the threshold minimizing the summed
// squared error of the two halves, using prefix sums over the sorted column.
func bestSplit(features [][]float64, targets []float64, idx []int) (int, float64, bool) {
	width := len(features[idx[0]])
	n := len(idx)

	bestScore := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	found := false

	totalSum := 0.0
	totalSq := 0.0
	for _, j := range idx {
		totalSum += targets[j]
		totalSq += targets[j] * targets[j]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	order := make([]int, n)
	for feature := 0; feature < width; feature++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][feature] < features[order[b]][feature]
		})

		leftSum, leftSq := 0.0, 0.0
		for i := 0; i < n-1; i++ {
			y := targets[order[i]]
			leftSum += y
			leftSq += y * y

			v, next := features[order[i]][feature], features[order[i+1]][feature]
			if v == next {
				continue
			}

			nl, nr := float64(i+1), float64(n-i-1)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)

			if gain := parentSSE - sse; gain > bestScore {
				bestScore = gain
				bestFeature = feature
				bestThreshold = (v + next) / 2
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, found
}
