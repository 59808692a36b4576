package pipeline

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"specimen-prep/internal/config"
	"specimen-prep/internal/logger"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGrayPNG(t *testing.T, path string, h, w int, dark image.Rectangle) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255)
			if image.Pt(x, y).In(dark) {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, imaging.Save(img, path))
}

func TestCoordinatorRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")

	writeGrayPNG(t, filepath.Join(in, "square.png"), 30, 30, image.Rect(8, 5, 18, 15))
	writeGrayPNG(t, filepath.Join(in, "blank.png"), 10, 10, image.Rectangle{})
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.png"), []byte("not an image"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0o644))

	cfg := testConfig()
	cfg.Pipeline.Alpha = config.AlphaBinary
	cfg.Pipeline.OutputDir = out

	c, err := NewCoordinator(cfg, logger.Nop())
	require.NoError(t, err)

	stats, err := c.Run(context.Background(), []string{in})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.NoForeground)
	assert.Equal(t, 0, stats.Refined)

	canvas, err := imaging.Open(filepath.Join(out, "square.png"))
	require.NoError(t, err)
	assert.Equal(t, 20, canvas.Bounds().Dx())
	assert.Equal(t, 20, canvas.Bounds().Dy())

	alpha, err := imaging.Open(filepath.Join(out, "square_alpha.png"))
	require.NoError(t, err)
	assert.Equal(t, 10, alpha.Bounds().Dx())
	assert.Equal(t, 10, alpha.Bounds().Dy())

	assert.FileExists(t, filepath.Join(out, "blank.png"))
	assert.NoFileExists(t, filepath.Join(out, "broken.png"))

	assert.Equal(t, 3, c.Metrics().Count(StageLoad))
}

func TestCoordinatorRunCancelled(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "a.png"), 10, 10, image.Rect(2, 2, 5, 5))

	cfg := testConfig()
	cfg.Pipeline.OutputDir = filepath.Join(dir, "out")
	c, err := NewCoordinator(cfg, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Run(ctx, []string{dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCoordinatorShutdownWithoutRun(t *testing.T) {
	c, err := NewCoordinator(testConfig(), logger.Nop())
	require.NoError(t, err)
	assert.NotPanics(t, c.Shutdown)
}

func TestCoordinatorMirrorsDirectoryLayout(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "batch")
	out := filepath.Join(dir, "out")

	// Same base name, different classes and extents.
	writeGrayPNG(t, filepath.Join(in, "copepoda", "123.png"), 30, 30, image.Rect(8, 5, 18, 15))
	writeGrayPNG(t, filepath.Join(in, "diatom", "123.png"), 30, 30, image.Rect(0, 0, 4, 6))

	cfg := testConfig()
	cfg.Pipeline.Alpha = config.AlphaBinary
	cfg.Pipeline.OutputDir = out

	c, err := NewCoordinator(cfg, logger.Nop())
	require.NoError(t, err)

	stats, err := c.Run(context.Background(), []string{in})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)

	copepod, err := imaging.Open(filepath.Join(out, "copepoda", "123_alpha.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(10, 10), copepod.Bounds().Size())

	diatom, err := imaging.Open(filepath.Join(out, "diatom", "123_alpha.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(4, 6), diatom.Bounds().Size())

	assert.FileExists(t, filepath.Join(out, "copepoda", "123.png"))
	assert.FileExists(t, filepath.Join(out, "diatom", "123.png"))
	assert.NoFileExists(t, filepath.Join(out, "123.png"))
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "notes.txt", filepath.Join("sub", "c.webp")} {
		touch(t, filepath.Join(dir, name))
	}
	extra := filepath.Join(t.TempDir(), "readme.txt")
	touch(t, extra)

	// a.JPG is reached twice and kept once.
	files, err := ExpandInputs([]string{dir, extra, filepath.Join(dir, "a.JPG")})
	require.NoError(t, err)
	assert.Equal(t, []Input{
		{Path: filepath.Join(dir, "a.JPG"), Name: "a"},
		{Path: filepath.Join(dir, "b.png"), Name: "b"},
		{Path: extra, Name: "readme"},
		{Path: filepath.Join(dir, "sub", "c.webp"), Name: "sub/c"},
	}, files)

	assert.Equal(t, filepath.Join("out", "sub", "c_alpha.png"), files[3].OutputPath("out", "_alpha"))

	_, err = ExpandInputs(nil)
	assert.Error(t, err)

	_, err = ExpandInputs([]string{filepath.Join(dir, "missing.png")})
	assert.Error(t, err)
}

func TestExpandInputsRejectsOutputCollisions(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		args  func(dir string) []string
	}{
		{
			name:  "same stem in one directory",
			files: []string{"123.png", "123.jpg"},
			args:  func(dir string) []string { return []string{dir} },
		},
		{
			name:  "same base name given directly",
			files: []string{filepath.Join("copepoda", "123.png"), filepath.Join("diatom", "123.jpg")},
			args: func(dir string) []string {
				return []string{filepath.Join(dir, "copepoda", "123.png"), filepath.Join(dir, "diatom", "123.jpg")}
			},
		},
		{
			name:  "two roots with the same layout",
			files: []string{filepath.Join("a", "x", "1.png"), filepath.Join("b", "x", "1.png")},
			args: func(dir string) []string {
				return []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(dir, f))
			}
			_, err := ExpandInputs(tt.args(dir))
			assert.ErrorIs(t, err, ErrDuplicateOutput)
		})
	}
}
