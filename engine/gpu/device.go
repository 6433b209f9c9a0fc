package gpu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrm/common"

	"github.com/cogentcore/webgpu/wgpu"
)

var errDeviceReleased = errors.New("gpu device has been released")

// device is the implementation of the Device interface.
type device struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	label                string
	forceFallbackAdapter bool
}

// Uploader creates the GPU resources that back avatar geometry and textures.
// The avatar manager depends only on this half of Device so it can run without a GPU.
type Uploader interface {
	// UploadMesh creates vertex and index buffers and writes the given data into them.
	//
	// Parameters:
	//   - label: debug label used for the created buffers
	//   - vertexData: the packed vertex data
	//   - indexData: the packed index data, may be empty
	//   - indexCount: the number of indices in indexData
	//
	// Returns:
	//   - MeshResource: the created buffers
	//   - error: error if buffer creation fails
	UploadMesh(label string, vertexData, indexData []byte, indexCount int) (MeshResource, error)

	// UploadTexture creates a texture, writes the RGBA pixels into mip level 0 and creates a view and sampler.
	//
	// Parameters:
	//   - label: debug label used for the created objects
	//   - staging: the RGBA pixels and dimensions
	//   - sampler: the sampler configuration
	//
	// Returns:
	//   - TextureResource: the created texture objects
	//   - error: error if creation fails
	UploadTexture(label string, staging common.TextureStagingData, sampler common.SamplerStagingData) (TextureResource, error)
}

// Device owns the WebGPU instance, adapter, device and queue.
type Device interface {
	Uploader

	// Release releases the queue, device, adapter, surface and instance.
	Release()
}

var _ Device = &device{}
var _ Uploader = &device{}

// NewDevice creates the WebGPU instance and requests an adapter and device.
// When surfaceDescriptor is nil no surface is created and any adapter is accepted.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor from the window, or nil
//   - options: functional options for device configuration
//
// Returns:
//   - Device: the created device
//   - error: error if no adapter or device could be obtained
func NewDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &device{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
		label:    "Avatar Device",
	}
	for _, opt := range options {
		opt(d)
	}

	if surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	return d, nil
}

func (d *device) UploadMesh(label string, vertexData, indexData []byte, indexCount int) (MeshResource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil, errDeviceReleased
	}

	var vertexBuffer, indexBuffer *wgpu.Buffer
	if len(vertexData) > 0 {
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            label + " Vertex Buffer",
			Size:             alignBufferSize(len(vertexData)),
			Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex buffer for %q: %w", label, err)
		}
		d.queue.WriteBuffer(buf, 0, padToAlignment(vertexData))
		vertexBuffer = buf
	}

	if len(indexData) > 0 {
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label:            label + " Index Buffer",
			Size:             alignBufferSize(len(indexData)),
			Usage:            wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		})
		if err != nil {
			if vertexBuffer != nil {
				vertexBuffer.Release()
			}
			return nil, fmt.Errorf("failed to create index buffer for %q: %w", label, err)
		}
		d.queue.WriteBuffer(buf, 0, padToAlignment(indexData))
		indexBuffer = buf
	}

	return NewMeshResource(label, vertexBuffer, indexBuffer, indexCount), nil
}

func (d *device) UploadTexture(label string, staging common.TextureStagingData, sampler common.SamplerStagingData) (TextureResource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return nil, errDeviceReleased
	}
	if staging.Width == 0 || staging.Height == 0 {
		return nil, fmt.Errorf("texture %q has zero size", label)
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: common.Coalesce(staging.MipLevelCount, 1),
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for %q: %w", label, err)
	}

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(sampler.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(sampler.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(sampler.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(sampler.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(sampler.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(sampler.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(sampler.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(sampler.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(sampler.MaxAnisotropy, 1),
		Compare:       sampler.Compare,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("failed to create sampler for %q: %w", label, err)
	}

	return NewTextureResource(label, tex, view, samp), nil
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// alignBufferSize rounds a byte length up to the 4-byte multiple that queue writes require.
func alignBufferSize(n int) uint64 {
	return uint64((n + 3) &^ 3)
}

// padToAlignment returns data unchanged when already 4-byte aligned, otherwise a zero padded copy.
func padToAlignment(data []byte) []byte {
	aligned := int(alignBufferSize(len(data)))
	if aligned == len(data) {
		return data
	}
	padded := make([]byte, aligned)
	copy(padded, data)
	return padded
}
