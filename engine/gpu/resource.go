package gpu

import (
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// releaseCount counts every GPU resource release performed by this package.
// The profiler reports it alongside frame statistics.
var releaseCount atomic.Int64

// ReleaseCount returns the number of resources released since process start.
//
// Returns:
//   - int64: the number of Release calls that freed a resource
func ReleaseCount() int64 {
	return releaseCount.Load()
}

// meshResource is the unexported implementation of MeshResource.
type meshResource struct {
	// label is a debug label added for convenience.
	label string

	// vertexBuffer is the GPU vertex buffer, or nil if the mesh was never uploaded.
	vertexBuffer *wgpu.Buffer
	// indexBuffer is the GPU index buffer, or nil if the mesh has no indices or was never uploaded.
	indexBuffer *wgpu.Buffer
	// indexCount is the number of indices for draw calls.
	indexCount int

	released bool
}

// MeshResource holds the GPU buffers that back one geometry.
//
// A MeshResource is created by Device.UploadMesh and released exactly once by the
// disposal scheduler after its owning subtree has been detached from the render graph.
type MeshResource interface {
	// Release releases the vertex and index buffers.
	// Calling Release on an already released resource does nothing.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once the buffers have been released
	Released() bool

	// Label returns the debug label for this resource.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// VertexBuffer returns the GPU vertex buffer, or nil if not uploaded.
	//
	// Returns:
	//   - *wgpu.Buffer: the vertex buffer or nil
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the GPU index buffer, or nil if not uploaded.
	//
	// Returns:
	//   - *wgpu.Buffer: the index buffer or nil
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices for draw calls.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int
}

var _ MeshResource = &meshResource{}

// NewMeshResource wraps already created GPU buffers in a MeshResource.
// Either buffer may be nil, which makes the resource usable without a GPU.
//
// Parameters:
//   - label: the debug label
//   - vertexBuffer: the vertex buffer or nil
//   - indexBuffer: the index buffer or nil
//   - indexCount: the number of indices
//
// Returns:
//   - MeshResource: the wrapped resource
func NewMeshResource(label string, vertexBuffer, indexBuffer *wgpu.Buffer, indexCount int) MeshResource {
	return &meshResource{
		label:        label,
		vertexBuffer: vertexBuffer,
		indexBuffer:  indexBuffer,
		indexCount:   indexCount,
	}
}

func (m *meshResource) Label() string {
	return m.label
}

func (m *meshResource) VertexBuffer() *wgpu.Buffer {
	return m.vertexBuffer
}

func (m *meshResource) IndexBuffer() *wgpu.Buffer {
	return m.indexBuffer
}

func (m *meshResource) IndexCount() int {
	return m.indexCount
}

func (m *meshResource) Released() bool {
	return m.released
}

func (m *meshResource) Release() {
	if m.released {
		return
	}
	m.released = true
	releaseCount.Add(1)

	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
		m.indexBuffer = nil
	}
}

// textureResource is the unexported implementation of TextureResource.
type textureResource struct {
	label string

	texture     *wgpu.Texture
	textureView *wgpu.TextureView
	sampler     *wgpu.Sampler

	released bool
}

// TextureResource holds the GPU texture, its view and its sampler.
type TextureResource interface {
	// Release releases the view, sampler and texture.
	// Calling Release on an already released resource does nothing.
	Release()

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once the texture has been released
	Released() bool

	// Label returns the debug label for this resource.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// TextureView returns the GPU texture view, or nil if not uploaded.
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView() *wgpu.TextureView

	// Sampler returns the GPU sampler, or nil if not created.
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler() *wgpu.Sampler
}

var _ TextureResource = &textureResource{}

// NewTextureResource wraps already created GPU texture objects in a TextureResource.
// Any handle may be nil.
//
// Parameters:
//   - label: the debug label
//   - texture: the texture or nil
//   - view: the texture view or nil
//   - sampler: the sampler or nil
//
// Returns:
//   - TextureResource: the wrapped resource
func NewTextureResource(label string, texture *wgpu.Texture, view *wgpu.TextureView, sampler *wgpu.Sampler) TextureResource {
	return &textureResource{
		label:       label,
		texture:     texture,
		textureView: view,
		sampler:     sampler,
	}
}

func (t *textureResource) Label() string {
	return t.label
}

func (t *textureResource) TextureView() *wgpu.TextureView {
	return t.textureView
}

func (t *textureResource) Sampler() *wgpu.Sampler {
	return t.sampler
}

func (t *textureResource) Released() bool {
	return t.released
}

func (t *textureResource) Release() {
	if t.released {
		return
	}
	t.released = true
	releaseCount.Add(1)

	if t.textureView != nil {
		t.textureView.Release()
		t.textureView = nil
	}
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}
