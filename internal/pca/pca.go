// Package pca fits principal components to a feature set and caches the
// fitted model next to the feature file.
package pca

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"time"

	"specimen-prep/internal/features"
	"specimen-prep/internal/logger"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	component    = "PCA"
	modelVersion = 1
)

var ErrFitFailed = errors.New("principal components analysis failed")

// Model is a fitted PCA. Components holds one direction per column.
type Model struct {
	Mean       []float64
	Components *mat.Dense
	Variances  []float64
	// TotalVariance is the variance over all components, including dropped ones.
	TotalVariance float64
}

type Options struct {
	// Components is the number of components to keep. Zero keeps all.
	Components int
	Logger     logger.Logger
}

// ModelPath returns the sidecar for dataPath and a component count.
func ModelPath(dataPath string, components int) string {
	if components == 0 {
		return dataPath + ".pca.bin"
	}
	return fmt.Sprintf("%s.pca_%d.bin", dataPath, components)
}

// Train returns the model stored next to dataPath when it is newer than the
// data file, and fits and stores a new one otherwise. An empty dataPath
// disables the sidecar.
func Train(set *features.Set, dataPath string, opts Options) (*Model, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("%w: empty feature set", ErrFitFailed)
	}
	if opts.Components < 0 {
		return nil, fmt.Errorf("invalid component count %d", opts.Components)
	}

	var modelPath string
	if dataPath != "" {
		modelPath = ModelPath(dataPath, opts.Components)
		if sidecarIsFresh(modelPath, dataPath) {
			log.Info(component, "loading PCA model", map[string]interface{}{"path": modelPath})
			m, err := loadModel(modelPath, set.Dims())
			if err == nil {
				return m, nil
			}
			log.Warning(component, "failed to load PCA model, refitting", map[string]interface{}{
				"path":  modelPath,
				"error": err.Error(),
			})
		}
	}

	log.Info(component, "fitting PCA", map[string]interface{}{
		"rows":       set.Len(),
		"dims":       set.Dims(),
		"components": opts.Components,
	})
	start := time.Now()
	m, err := Fit(set.X, opts.Components)
	if err != nil {
		return nil, err
	}
	log.Info(component, "PCA fitted", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if modelPath != "" {
		log.Info(component, "saving PCA model", map[string]interface{}{"path": modelPath})
		if err := saveModel(modelPath, m); err != nil {
			log.Error(component, "failed to save PCA model", err, map[string]interface{}{"path": modelPath})
		}
	}

	return m, nil
}

// Fit computes the principal components of the rows of x, keeping the first
// k (all when k is zero).
func Fit(x mat.Matrix, k int) (*Model, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrFitFailed, n)
	}
	maxK := min(n, d)
	if k == 0 {
		k = maxK
	}
	if k > maxK {
		return nil, fmt.Errorf("%w: %d components requested, at most %d available", ErrFitFailed, k, maxK)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, ErrFitFailed
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	components := mat.DenseCopyOf(vecs.Slice(0, d, 0, k))

	mean := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		mean[j] = stat.Mean(col, nil)
	}

	return &Model{
		Mean:          mean,
		Components:    components,
		Variances:     append([]float64(nil), vars[:k]...),
		TotalVariance: floats.Sum(vars),
	}, nil
}

// Dims returns the input dimension and the number of components.
func (m *Model) Dims() (in, out int) {
	return m.Components.Dims()
}

// ExplainedVarianceRatio returns each kept component's share of the total
// variance.
func (m *Model) ExplainedVarianceRatio() []float64 {
	ratios := make([]float64, len(m.Variances))
	if m.TotalVariance == 0 {
		return ratios
	}
	for i, v := range m.Variances {
		ratios[i] = v / m.TotalVariance
	}
	return ratios
}

// Transform projects the rows of x onto the components.
func (m *Model) Transform(x mat.Matrix) (*mat.Dense, error) {
	n, d := x.Dims()
	in, out := m.Dims()
	if d != in {
		return nil, fmt.Errorf("input has %d columns, model expects %d", d, in)
	}

	centered := mat.DenseCopyOf(x)
	for i := 0; i < n; i++ {
		row := centered.RawRowView(i)
		floats.Sub(row, m.Mean)
	}

	projected := mat.NewDense(n, out, nil)
	projected.Mul(centered, m.Components)
	return projected, nil
}

type modelFile struct {
	Version       int
	Mean          []float64
	Components    *mat.Dense
	Variances     []float64
	TotalVariance float64
}

func saveModel(path string, m *Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create PCA model file: %w", err)
	}
	err = gob.NewEncoder(f).Encode(modelFile{
		Version:       modelVersion,
		Mean:          m.Mean,
		Components:    m.Components,
		Variances:     m.Variances,
		TotalVariance: m.TotalVariance,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write PCA model: %w", err)
	}
	return nil
}

func loadModel(path string, dims int) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var mf modelFile
	if err := gob.NewDecoder(f).Decode(&mf); err != nil {
		return nil, fmt.Errorf("failed to decode PCA model: %w", err)
	}
	if mf.Version != modelVersion {
		return nil, fmt.Errorf("unsupported PCA model version %d", mf.Version)
	}
	if mf.Components == nil {
		return nil, fmt.Errorf("PCA model has no components")
	}
	if r, c := mf.Components.Dims(); r != dims || r != len(mf.Mean) || c != len(mf.Variances) {
		return nil, fmt.Errorf("PCA model shape %dx%d does not match %d features", r, c, dims)
	}

	return &Model{
		Mean:          mf.Mean,
		Components:    mf.Components,
		Variances:     mf.Variances,
		TotalVariance: mf.TotalVariance,
	}, nil
}

func sidecarIsFresh(modelPath, dataPath string) bool {
	model, err := os.Stat(modelPath)
	if err != nil {
		return false
	}
	data, err := os.Stat(dataPath)
	if err != nil {
		return false
	}
	return model.ModTime().After(data.ModTime())
}
