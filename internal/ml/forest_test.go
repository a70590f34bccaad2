package ml

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// irradianceSet builds rows whose target is 0.5 * feature[4], the same shape
// the trainer's synthetic fallback uses.
func irradianceSet(n int, seed uint64) ([][]float64, []float64) {
	rnd := rand.New(rand.NewSource(seed))
	features := make([][]float64, n)
	targets := make([]float64, n)
	for i := range features {
		row := []float64{
			rnd.Float64() * 40,
			rnd.Float64() * 100,
			rnd.Float64() * 20,
			rnd.Float64() * 100,
			rnd.Float64() * 1000,
			rnd.Float64() * 50,
		}
		features[i] = row
		targets[i] = row[4] * 0.5
	}
	return features, targets
}

func TestFitForestValidatesInput(t *testing.T) {
	_, err := FitForest(nil, nil, ForestConfig{})
	require.Error(t, err)

	_, err = FitForest([][]float64{{1, 2}}, []float64{1, 2}, ForestConfig{})
	require.Error(t, err)

	_, err = FitForest([][]float64{{1, 2}, {1}}, []float64{1, 2}, ForestConfig{})
	require.Error(t, err)
}

func TestForestLearnsIrradianceSignal(t *testing.T) {
	features, targets := irradianceSet(400, 7)
	forest, err := FitForest(features, targets, ForestConfig{Trees: 50, MaxDepth: 10, Seed: 42})
	require.NoError(t, err)

	for _, i := range []int{0, 57, 123, 399} {
		got := forest.Predict(features[i])
		require.InDelta(t, targets[i], got, 30, "row %d", i)
	}

	// Higher irradiance must predict higher output.
	low := forest.Predict([]float64{20, 50, 5, 30, 100, 0})
	high := forest.Predict([]float64{20, 50, 5, 30, 900, 0})
	require.Greater(t, high, low)
}

func TestForestIsDeterministicForAFixedSeed(t *testing.T) {
	features, targets := irradianceSet(200, 11)

	a, err := FitForest(features, targets, ForestConfig{Trees: 20, MaxDepth: 8, Seed: 42})
	require.NoError(t, err)
	b, err := FitForest(features, targets, ForestConfig{Trees: 20, MaxDepth: 8, Seed: 42})
	require.NoError(t, err)

	probe := []float64{25, 60, 3, 40, 550, 1}
	require.Equal(t, a.Predict(probe), b.Predict(probe))
}

func TestForestConstantTargetPredictsConstant(t *testing.T) {
	features, _ := irradianceSet(50, 3)
	targets := make([]float64, len(features))
	for i := range targets {
		targets[i] = 7.25
	}

	forest, err := FitForest(features, targets, ForestConfig{Trees: 10, MaxDepth: 10, Seed: 1})
	require.NoError(t, err)
	require.Equal(t, 7.25, forest.Predict(features[0]))
}

func TestForestDepthOneIsACoarseSplit(t *testing.T) {
	features, targets := irradianceSet(200, 5)
	forest, err := FitForest(features, targets, ForestConfig{Trees: 5, MaxDepth: 1, Seed: 9})
	require.NoError(t, err)

	for _, root := range forest.Trees {
		if root.Leaf {
			continue
		}
		require.True(t, root.Left.Leaf)
		require.True(t, root.Right.Leaf)
	}
}

func TestForestGobRoundTrip(t *testing.T) {
	features, targets := irradianceSet(120, 21)
	forest, err := FitForest(features, targets, ForestConfig{Trees: 15, MaxDepth: 6, Seed: 42})
	require.NoError(t, err)

	data, err := forest.Encode()
	require.NoError(t, err)

	decoded, err := DecodeForest(data)
	require.NoError(t, err)
	require.Equal(t, forest.NumFeatures, decoded.NumFeatures)

	probe := []float64{15, 30, 2, 10, 640, 0}
	require.Equal(t, forest.Predict(probe), decoded.Predict(probe))
}

func TestDecodeForestRejectsGarbage(t *testing.T) {
	_, err := DecodeForest([]byte("not a gob artifact"))
	require.Error(t, err)

	empty := &Forest{}
	data, err := empty.Encode()
	require.NoError(t, err)
	_, err = DecodeForest(data)
	require.Error(t, err)
}
