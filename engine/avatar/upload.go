package avatar

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-vrm/common"
	"github.com/Carmen-Shannon/oxy-vrm/engine/gpu"
	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// DefaultUploadBatchSize is the number of geometries and textures uploaded per install slice.
const DefaultUploadBatchSize = 8

// uploadItem is one geometry or one texture.
type uploadItem struct {
	geometry *model.Geometry
	texture  *model.Texture
}

// uploadTask creates the GPU resources of a decoded hierarchy a batch of items per frame.
// On error the resources created so far stay attached to their owners, so disposing the root releases them.
type uploadTask struct {
	uploader gpu.Uploader
	items    []uploadItem
	next     int
	batch    int
}

// newUploadTask lists every geometry and texture under root, each once, in traversal order.
func newUploadTask(u gpu.Uploader, root *scene.Node, batch int) *uploadTask {
	if batch <= 0 {
		batch = DefaultUploadBatchSize
	}
	t := &uploadTask{uploader: u, batch: batch}
	geometries := make(map[*model.Geometry]bool)
	textures := make(map[*model.Texture]bool)
	for leaf := range scene.Leaves(root) {
		if g := leaf.Geometry; !geometries[g] {
			geometries[g] = true
			t.items = append(t.items, uploadItem{geometry: g})
		}
		for _, m := range leaf.Materials {
			if m == nil {
				continue
			}
			for _, tex := range m.Textures {
				if tex == nil || textures[tex] {
					continue
				}
				textures[tex] = true
				t.items = append(t.items, uploadItem{texture: tex})
			}
		}
	}
	return t
}

// ResumeOneBatch uploads up to one batch of items and returns how many it uploaded.
// After an error the task is done and the remaining items are skipped.
func (t *uploadTask) ResumeOneBatch() (int, error) {
	end := min(t.next+t.batch, len(t.items))
	uploaded := 0
	for _, item := range t.items[t.next:end] {
		var err error
		if item.geometry != nil {
			err = uploadGeometry(t.uploader, item.geometry)
		} else {
			err = uploadTexture(t.uploader, item.texture)
		}
		if err != nil {
			t.items, t.next = nil, 0
			return uploaded, err
		}
		uploaded++
	}
	t.next = end
	if t.Done() {
		t.items, t.next = nil, 0
	}
	return uploaded, nil
}

// Done reports whether every item has been uploaded.
func (t *uploadTask) Done() bool {
	return t.next >= len(t.items)
}

func uploadGeometry(u gpu.Uploader, g *model.Geometry) error {
	res, err := u.UploadMesh(g.Name, g.PackVertices(), g.PackIndices(), len(g.Indices))
	if err != nil {
		return fmt.Errorf("failed to upload geometry %q: %w", g.Name, err)
	}
	g.SetGPU(res)
	return nil
}

// uploadTexture sends the pixels decoded by decodePixels and drops them once the GPU holds a copy.
func uploadTexture(u gpu.Uploader, t *model.Texture) error {
	staging := t.Staging()
	if staging == nil {
		return fmt.Errorf("texture %q has no decoded pixels", t.Name)
	}
	res, err := u.UploadTexture(t.Name, *staging, t.Sampler)
	if err != nil {
		return fmt.Errorf("failed to upload texture %q: %w", t.Name, err)
	}
	t.SetGPU(res)
	t.SetStaging(nil)
	return nil
}

// decodePixels decodes every texture under root into RGBA staging data. It runs on a decode worker.
func decodePixels(root *scene.Node) error {
	seen := make(map[*model.Texture]bool)
	for leaf := range scene.Leaves(root) {
		for _, m := range leaf.Materials {
			if m == nil {
				continue
			}
			for _, t := range m.Textures {
				if t == nil || seen[t] {
					continue
				}
				seen[t] = true
				rgba, err := common.DecodeRGBA(t.Data)
				if err != nil {
					return fmt.Errorf("failed to decode texture %q: %w", t.Name, err)
				}
				bounds := rgba.Bounds()
				t.SetStaging(&common.TextureStagingData{
					Pixels:        rgba.Pix,
					Width:         uint32(bounds.Dx()),
					Height:        uint32(bounds.Dy()),
					MipLevelCount: 1,
				})
			}
		}
	}
	return nil
}
