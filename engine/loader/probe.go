package loader

import (
	"bytes"
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"

	"github.com/tidwall/gjson"
)

// ProbeResult is the outcome of the preliminary scan that runs before a full decode.
type ProbeResult struct {
	FileSize           int64
	IsGLB              bool
	ValidJSON          bool
	EstimatedMeshes    int
	EstimatedTextures  int
	EstimatedMaterials int
	HasAvatarExtension bool
	SpecVersion        string
	GeneratorName      string
}

// Probe inspects the container header and the JSON chunk without decoding any buffers.
// It never fails: fields it cannot read keep their zero values.
//
// Parameters:
//   - data: the file contents
//
// Returns:
//   - ProbeResult: the scan result
func Probe(data []byte) ProbeResult {
	res := ProbeResult{FileSize: int64(len(data))}

	jsonChunk := probeJSONChunk(data)
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		res.IsGLB = true
	}
	if jsonChunk == nil || !gjson.ValidBytes(jsonChunk) {
		return res
	}
	res.ValidJSON = true

	doc := gjson.ParseBytes(jsonChunk)
	res.EstimatedMeshes = int(doc.Get("meshes.#").Int())
	res.EstimatedTextures = int(doc.Get("images.#").Int())
	res.EstimatedMaterials = int(doc.Get("materials.#").Int())
	res.GeneratorName = doc.Get("asset.generator").String()

	switch {
	case probeHasObject(doc, extVRM1Path):
		res.HasAvatarExtension = true
		res.SpecVersion = model.SpecVersion1
	case probeHasObject(doc, extVRM0Path):
		res.HasAvatarExtension = true
		res.SpecVersion = model.SpecVersion0
	}
	return res
}

// probeHasObject reports whether path holds a non-null value, matching how Decode detects an extension.
func probeHasObject(doc gjson.Result, path string) bool {
	r := doc.Get(path)
	return r.Exists() && r.Type != gjson.Null
}

// gjson paths of the avatar extensions.
const (
	extVRM1Path = "extensions." + extVRM1
	extVRM0Path = "extensions." + extVRM0
)

// probeJSONChunk returns the JSON chunk of a GLB container, or the whole input when it looks like glTF JSON.
func probeJSONChunk(data []byte) []byte {
	if len(data) >= 20 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		length := binary.LittleEndian.Uint32(data[12:16])
		if binary.LittleEndian.Uint32(data[16:20]) != gltfGLBChunkJSON || uint64(length) > uint64(len(data)-20) {
			return nil
		}
		return data[20 : 20+int(length)]
	}
	trimmed := bytes.TrimLeft(data, jsonLeadingSpace)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed
	}
	return nil
}
