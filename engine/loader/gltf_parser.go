package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errExternalURI        = errors.New("external URIs are not supported for in-memory avatars")
	errNoDocument         = errors.New("no document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	document       *gltfDocument
	glbBinaryChunk []byte
	isGLB          bool
}

// gltfParser parses glTF/GLB bytes and provides typed, bounds-checked accessor reads.
// This is internal to the loader package.
type gltfParser interface {
	// ParseBytes parses a GLB container or a glTF JSON document.
	// The container kind is detected from the leading bytes.
	//
	// Parameters:
	//   - data: the file contents
	//
	// Returns:
	//   - error: *FormatError if the bytes are not a glTF 2.0 container, *DecodeError if the container is malformed
	ParseBytes(data []byte) error

	// Document returns the parsed glTF document, or nil before a successful parse.
	//
	// Returns:
	//   - *gltfDocument: the parsed document or nil
	Document() *gltfDocument

	// IsGLB reports whether the parsed input was a binary container.
	//
	// Returns:
	//   - bool: true for GLB input
	IsGLB() bool

	// ReadAccessorFloats reads an accessor of any component type as a flat float slice.
	// Integer components are normalized when the accessor is flagged normalized.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []float32: Count*components values
	//   - int: the number of components per element
	//   - error: error if the accessor is out of range or its data exceeds the buffer
	ReadAccessorFloats(accessorIndex int) ([]float32, int, error)

	// ReadVec2Accessor reads a VEC2 accessor.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][2]float32: the vec2 data
	//   - error: error if reading fails
	ReadVec2Accessor(accessorIndex int) ([][2]float32, error)

	// ReadVec3Accessor reads a VEC3 accessor.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][3]float32: the vec3 data
	//   - error: error if reading fails
	ReadVec3Accessor(accessorIndex int) ([][3]float32, error)

	// ReadVec4Accessor reads a VEC4 accessor. Narrower accessors are widened with zeros.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][4]float32: the vec4 data
	//   - error: error if reading fails
	ReadVec4Accessor(accessorIndex int) ([][4]float32, error)

	// ReadScalarAccessor reads a SCALAR accessor.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []float32: the scalar data
	//   - error: error if reading fails
	ReadScalarAccessor(accessorIndex int) ([]float32, error)

	// ReadIndicesAccessor reads an index accessor as uint32 values.
	// Handles UNSIGNED_BYTE, UNSIGNED_SHORT, and UNSIGNED_INT component types.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the index data
	//   - int: the stored byte width of one index (1, 2 or 4)
	//   - error: error if reading fails
	ReadIndicesAccessor(accessorIndex int) ([]uint32, int, error)

	// ReadBufferView returns a copy of a buffer view's bytes.
	//
	// Parameters:
	//   - bufferViewIndex: the index of the buffer view
	//
	// Returns:
	//   - []byte: the bytes
	//   - error: error if the view is out of range or exceeds its buffer
	ReadBufferView(bufferViewIndex int) ([]byte, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) IsGLB() bool {
	return p.isGLB
}

func (p *gltfParserImpl) ParseBytes(data []byte) error {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		p.isGLB = true
		return p.parseGLB(data)
	}
	trimmed := bytes.TrimLeft(data, jsonLeadingSpace)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return p.parseGLTF(trimmed)
	}
	return &FormatError{Reason: errInvalidGLBMagic.Error()}
}

// parseGLTF parses a glTF JSON document.
func (p *gltfParserImpl) parseGLTF(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return &DecodeError{Stage: "json", Err: err}
	}
	return p.finish(&doc)
}

// parseGLB parses a GLB binary container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func (p *gltfParserImpl) parseGLB(data []byte) error {
	if len(data) < 12 {
		return &FormatError{Reason: "GLB file too small"}
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return &DecodeError{Stage: "container", Err: err}
	}
	if header.Magic != gltfGLBMagic {
		return &FormatError{Reason: errInvalidGLBMagic.Error()}
	}
	if header.Version != gltfGLBVersion {
		return &FormatError{Reason: errInvalidGLBVersion.Error()}
	}

	var jsonData, binData []byte
	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return &DecodeError{Stage: "container", Err: fmt.Errorf("failed to read chunk header: %w", err)}
		}
		if int64(chunkHeader.ChunkLength) > int64(r.Len()) {
			return &DecodeError{Stage: "container", Err: fmt.Errorf("chunk length %d exceeds remaining %d bytes", chunkHeader.ChunkLength, r.Len())}
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return &DecodeError{Stage: "container", Err: fmt.Errorf("failed to read chunk data: %w", err)}
		}

		switch chunkHeader.ChunkType {
		case gltfGLBChunkJSON:
			if jsonData == nil {
				jsonData = chunkData
			}
		case gltfGLBChunkBIN:
			if binData == nil {
				binData = chunkData
			}
		}
	}

	if jsonData == nil {
		return &DecodeError{Stage: "container", Err: errMissingJSONChunk}
	}
	p.glbBinaryChunk = binData

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return &DecodeError{Stage: "json", Err: err}
	}
	return p.finish(&doc)
}

func (p *gltfParserImpl) finish(doc *gltfDocument) error {
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return &FormatError{Reason: errInvalidGLTFVersion.Error()}
	}
	if err := p.loadBuffers(doc); err != nil {
		return &DecodeError{Stage: "buffer", Err: err}
	}
	p.document = doc
	return nil
}

// loadBuffers resolves every buffer from the GLB binary chunk or an embedded data URI.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, _, err := gltfDecodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			return fmt.Errorf("buffer %d (%q): %w", i, buf.URI, errExternalURI)
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// gltfDecodeDataURI decodes a base64 data URI into raw bytes and extracts the MIME type.
// Format: data:[<mediatype>][;base64],<data>
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", errInvalidBufferURI
	}
	header, encoded, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, "", errInvalidBufferURI
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("unsupported data URI encoding: %s", header)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mimeType, nil
}

// --- Accessor Data Reading ---

func (p *gltfParserImpl) accessor(accessorIndex int) (*gltfAccessor, error) {
	if p.document == nil {
		return nil, errNoDocument
	}
	if accessorIndex < 0 || accessorIndex >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}
	return &p.document.Accessors[accessorIndex], nil
}

func (p *gltfParserImpl) ReadAccessorFloats(accessorIndex int) ([]float32, int, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, 0, err
	}
	if acc.Sparse != nil {
		return nil, 0, errors.New("sparse accessors are not supported")
	}

	components := gltfAccessorTypeComponentCount(acc.Type)
	componentSize := gltfComponentTypeSize(acc.ComponentType)
	if components == 0 || componentSize == 0 {
		return nil, 0, fmt.Errorf("accessor %d has unsupported layout %s/%d", accessorIndex, acc.Type, acc.ComponentType)
	}
	if acc.Count < 0 {
		return nil, 0, fmt.Errorf("accessor %d has negative count", accessorIndex)
	}

	out := make([]float32, acc.Count*components)
	// an accessor without a buffer view is all zeros
	if acc.BufferView == nil {
		return out, components, nil
	}

	raw, stride, err := p.accessorBytes(acc, components*componentSize)
	if err != nil {
		return nil, 0, fmt.Errorf("accessor %d: %w", accessorIndex, err)
	}

	for i := 0; i < acc.Count; i++ {
		base := i * stride
		for c := 0; c < components; c++ {
			off := base + c*componentSize
			out[i*components+c] = decodeComponent(raw[off:off+componentSize], acc.ComponentType, acc.Normalized)
		}
	}
	return out, components, nil
}

// accessorBytes returns the slice of the underlying buffer spanned by the accessor and the element stride.
func (p *gltfParserImpl) accessorBytes(acc *gltfAccessor, elementSize int) ([]byte, int, error) {
	bvIndex := *acc.BufferView
	if bvIndex < 0 || bvIndex >= len(p.document.BufferViews) {
		return nil, 0, fmt.Errorf("bufferView index %d out of range", bvIndex)
	}
	bv := &p.document.BufferViews[bvIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return nil, 0, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}
	buf := p.document.Buffers[bv.Buffer].Data

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count == 0 {
		return nil, stride, nil
	}
	end := start + (acc.Count-1)*stride + elementSize
	if start < 0 || end > len(buf) || end > bv.ByteOffset+bv.ByteLength {
		return nil, 0, fmt.Errorf("data range [%d,%d) exceeds bufferView %d", start, end, bvIndex)
	}
	return buf[start:end], stride, nil
}

func decodeComponent(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case gltfComponentTypeFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentTypeUnsignedByte:
		v := float32(b[0])
		if normalized {
			return v / 255
		}
		return v
	case gltfComponentTypeByte:
		v := float32(int8(b[0]))
		if normalized {
			return max(v/127, -1)
		}
		return v
	case gltfComponentTypeUnsignedShort:
		v := float32(binary.LittleEndian.Uint16(b))
		if normalized {
			return v / 65535
		}
		return v
	case gltfComponentTypeShort:
		v := float32(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return max(v/32767, -1)
		}
		return v
	case gltfComponentTypeUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (p *gltfParserImpl) readTyped(accessorIndex int, accessorType string) ([]float32, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, fmt.Errorf("accessor %d is %s, expected %s", accessorIndex, acc.Type, accessorType)
	}
	values, _, err := p.ReadAccessorFloats(accessorIndex)
	return values, err
}

func (p *gltfParserImpl) ReadVec2Accessor(accessorIndex int) ([][2]float32, error) {
	values, err := p.readTyped(accessorIndex, gltfAccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	result := make([][2]float32, len(values)/2)
	for i := range result {
		copy(result[i][:], values[i*2:])
	}
	return result, nil
}

func (p *gltfParserImpl) ReadVec3Accessor(accessorIndex int) ([][3]float32, error) {
	values, err := p.readTyped(accessorIndex, gltfAccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	result := make([][3]float32, len(values)/3)
	for i := range result {
		copy(result[i][:], values[i*3:])
	}
	return result, nil
}

func (p *gltfParserImpl) ReadVec4Accessor(accessorIndex int) ([][4]float32, error) {
	values, components, err := p.ReadAccessorFloats(accessorIndex)
	if err != nil {
		return nil, err
	}
	if components > 4 {
		return nil, fmt.Errorf("accessor %d has %d components, expected at most 4", accessorIndex, components)
	}
	result := make([][4]float32, len(values)/components)
	for i := range result {
		copy(result[i][:components], values[i*components:])
	}
	return result, nil
}

func (p *gltfParserImpl) ReadScalarAccessor(accessorIndex int) ([]float32, error) {
	return p.readTyped(accessorIndex, gltfAccessorTypeScalar)
}

func (p *gltfParserImpl) ReadIndicesAccessor(accessorIndex int) ([]uint32, int, error) {
	acc, err := p.accessor(accessorIndex)
	if err != nil {
		return nil, 0, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, 0, fmt.Errorf("index accessor is not SCALAR: type=%s", acc.Type)
	}
	width := gltfComponentTypeSize(acc.ComponentType)
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte, gltfComponentTypeUnsignedShort, gltfComponentTypeUnsignedInt:
	default:
		return nil, 0, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
	}

	result := make([]uint32, acc.Count)
	if acc.BufferView == nil {
		return result, width, nil
	}
	raw, stride, err := p.accessorBytes(acc, width)
	if err != nil {
		return nil, 0, fmt.Errorf("accessor %d: %w", accessorIndex, err)
	}
	for i := range result {
		b := raw[i*stride:]
		switch width {
		case 1:
			result[i] = uint32(b[0])
		case 2:
			result[i] = uint32(binary.LittleEndian.Uint16(b))
		case 4:
			result[i] = binary.LittleEndian.Uint32(b)
		}
	}
	return result, width, nil
}

func (p *gltfParserImpl) ReadBufferView(bufferViewIndex int) ([]byte, error) {
	if p.document == nil {
		return nil, errNoDocument
	}
	doc := p.document
	if bufferViewIndex < 0 || bufferViewIndex >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", bufferViewIndex)
	}

	bv := &doc.BufferViews[bufferViewIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}

	buf := doc.Buffers[bv.Buffer].Data
	start, end := bv.ByteOffset, bv.ByteOffset+bv.ByteLength
	if start < 0 || end > len(buf) || start > end {
		return nil, fmt.Errorf("bufferView exceeds buffer bounds: offset=%d length=%d bufSize=%d", start, bv.ByteLength, len(buf))
	}

	data := make([]byte, bv.ByteLength)
	copy(data, buf[start:end])
	return data, nil
}

// --- Helper Functions ---

// gltfComponentTypeSize returns the byte size of a component type.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
