// Package optimizer produces a reduced copy of an avatar hierarchy: resampled vertices, stripped
// attributes, narrowed indices and downscaled textures. The source hierarchy is never modified.
package optimizer

import (
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-vrm/common"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"

	"github.com/tiendc/go-deepcopy"
	"golang.org/x/image/draw"
)

// DefaultMaxTextureSize is the largest texture edge kept by default.
const DefaultMaxTextureSize = 1024

// minVertices is the floor of vertex resampling.
const minVertices = 3

// ErrInvalidRatio is returned for a simplify ratio outside (0, 1].
var ErrInvalidRatio = errors.New("optimizer: simplify ratio must be in (0, 1]")

// essentialAttributes are the extra vertex attributes kept by stripping. Positions, normals and the first
// uv set live in dedicated channels and are always kept.
var essentialAttributes = []string{model.AttributeJoints0, model.AttributeWeights0}

// Options controls Optimize.
type Options struct {
	// SimplifyRatio is the fraction of vertices to keep, in (0, 1]. 1 disables resampling.
	SimplifyRatio float64
	// OptimizeTextures enables texture downscaling.
	OptimizeTextures bool
	// MaxTextureSize is the largest edge a texture may keep. Zero selects DefaultMaxTextureSize.
	MaxTextureSize int
	// FileSize is the byte size of the source file, used for the size estimate.
	FileSize int64
}

// DefaultOptions returns options that keep every vertex and cap textures at DefaultMaxTextureSize.
//
// Returns:
//   - Options: the default options
func DefaultOptions() Options {
	return Options{
		SimplifyRatio:    1,
		OptimizeTextures: true,
		MaxTextureSize:   DefaultMaxTextureSize,
	}
}

// Result describes an optimization run.
type Result struct {
	// Root is the optimized, detached copy.
	Root *scene.Node

	OriginalVertices  int
	OptimizedVertices int
	OriginalFileSize  int64
	EstimatedFileSize int64
	// ReductionPercentage is the rounded vertex reduction, 0 to 100.
	ReductionPercentage int
	TexturesResized     int
}

// Optimize copies the hierarchy under root and reduces the copy.
//
// Resampling keeps floor(n*ratio) vertices, at least 3, picked at a uniform stride, and drops the index
// buffer, so the copy is a preview rather than a faithful simplification. The estimated file size scales
// the original size by the vertex ratio.
//
// Parameters:
//   - root: the hierarchy to optimize
//   - opts: the optimization options
//
// Returns:
//   - *Result: the optimized copy and its summary
//   - error: ErrInvalidRatio, or an error if the copy or a texture re-encode fails
func Optimize(root *scene.Node, opts Options) (*Result, error) {
	if math.IsNaN(opts.SimplifyRatio) || opts.SimplifyRatio <= 0 || opts.SimplifyRatio > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRatio, opts.SimplifyRatio)
	}
	if opts.MaxTextureSize <= 0 {
		opts.MaxTextureSize = DefaultMaxTextureSize
	}
	if root == nil {
		return nil, errors.New("optimizer: nil root")
	}

	clone, err := root.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to copy hierarchy: %w", err)
	}
	res := &Result{Root: clone, OriginalFileSize: opts.FileSize}

	geometries := make(map[*model.Geometry]bool)
	materials := make(map[*model.Material]*model.Material)
	textures := make(map[*model.Texture]*model.Texture)

	for leaf := range scene.Leaves(clone) {
		if g := leaf.Geometry; !geometries[g] {
			geometries[g] = true
			res.OriginalVertices += g.VertexCount()
			if opts.SimplifyRatio < 1 {
				resample(g, opts.SimplifyRatio)
			}
			stripAttributes(g)
			narrowIndices(g)
			res.OptimizedVertices += g.VertexCount()
		}

		if !opts.OptimizeTextures {
			continue
		}
		for i, m := range leaf.Materials {
			if m == nil {
				continue
			}
			mc, err := optimizeMaterial(m, opts.MaxTextureSize, materials, textures, &res.TexturesResized)
			if err != nil {
				return nil, err
			}
			leaf.Materials[i] = mc
		}
	}

	if res.OriginalVertices > 0 {
		ratio := float64(res.OptimizedVertices) / float64(res.OriginalVertices)
		res.ReductionPercentage = int(math.Round((1 - ratio) * 100))
		res.EstimatedFileSize = int64(math.Round(float64(opts.FileSize) * ratio))
	} else {
		res.EstimatedFileSize = opts.FileSize
	}
	return res, nil
}

// resample keeps floor(n*ratio) vertices at a uniform stride and drops the index buffer.
func resample(g *model.Geometry, ratio float64) {
	n := g.VertexCount()
	target := max(minVertices, int(math.Floor(float64(n)*ratio)))
	if target >= n {
		return
	}
	step := float64(n) / float64(target)
	pick := func(i int) int { return int(math.Floor(float64(i) * step)) }

	g.Positions = sample(g.Positions, n, target, pick)
	g.Normals = sample(g.Normals, n, target, pick)
	g.UVs = sample(g.UVs, n, target, pick)
	for name, values := range g.Attributes {
		g.Attributes[name] = sample(values, n, target, pick)
	}
	g.Indices = nil
	g.IndexWidth = 0
}

// sample picks target elements from a channel of length n. Channels of any other length are dropped.
func sample[T any](values []T, n, target int, pick func(int) int) []T {
	if len(values) != n {
		return nil
	}
	out := make([]T, target)
	for i := range out {
		out[i] = values[pick(i)]
	}
	return out
}

func stripAttributes(g *model.Geometry) {
	for name := range g.Attributes {
		if !slices.Contains(essentialAttributes, name) {
			delete(g.Attributes, name)
		}
	}
}

// narrowIndices stores 32-bit indices as 16-bit when every index fits.
func narrowIndices(g *model.Geometry) {
	if g.IndexWidth != 4 {
		return
	}
	for _, idx := range g.Indices {
		if idx > math.MaxUint16 {
			return
		}
	}
	g.IndexWidth = 2
}

// optimizeMaterial returns m, or a copy of m bound to downscaled textures. Copies are cached so shared
// materials and textures stay shared in the result.
func optimizeMaterial(m *model.Material, maxSize int, materials map[*model.Material]*model.Material, textures map[*model.Texture]*model.Texture, resized *int) (*model.Material, error) {
	if mc, ok := materials[m]; ok {
		return mc, nil
	}

	changed := false
	bound := make([]*model.Texture, len(m.Textures))
	for i, t := range m.Textures {
		tc, ok := textures[t]
		if !ok {
			var err error
			tc, err = downscale(t, maxSize)
			if err != nil {
				return nil, err
			}
			if tc != t {
				*resized++
			}
			textures[t] = tc
		}
		bound[i] = tc
		changed = changed || tc != t
	}

	mc := m
	if changed {
		mc = &model.Material{
			Name:      m.Name,
			Kind:      m.Kind,
			BaseColor: m.BaseColor,
			Metallic:  m.Metallic,
			Roughness: m.Roughness,
			Textures:  bound,
		}
	}
	materials[m] = mc
	return mc, nil
}

// downscale returns t when it fits in maxSize, otherwise a PNG copy scaled to fit with its aspect ratio kept.
func downscale(t *model.Texture, maxSize int) (*model.Texture, error) {
	if t == nil || (t.Width <= maxSize && t.Height <= maxSize) {
		return t, nil
	}

	src, err := common.DecodeRGBA(t.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %q: %w", t.Name, err)
	}
	bounds := src.Bounds()
	scale := min(float64(maxSize)/float64(bounds.Dx()), float64(maxSize)/float64(bounds.Dy()))
	width := max(1, int(math.Floor(float64(bounds.Dx())*scale)))
	height := max(1, int(math.Floor(float64(bounds.Dy())*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	data, err := common.EncodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode texture %q: %w", t.Name, err)
	}

	out := &model.Texture{}
	if err := deepcopy.Copy(out, t); err != nil {
		return nil, fmt.Errorf("failed to copy texture %q: %w", t.Name, err)
	}
	out.Data = data
	out.MimeType = "image/png"
	out.Width, out.Height = width, height
	return out, nil
}
