package stats

import (
	"fmt"
	"log"
	"strings"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"

	"github.com/dustin/go-humanize"
)

// MeshInfo describes one drawable leaf.
type MeshInfo struct {
	Name     string
	Vertices int
	Faces    int
}

// MaterialInfo describes one distinct material.
type MaterialInfo struct {
	Name string
	Kind model.MaterialKind
}

// TextureInfo describes one distinct texture.
type TextureInfo struct {
	Name      string
	Kind      model.TextureKind
	Width     int
	Height    int
	Mipmapped bool
	// Memory is the estimated GPU byte size, including the mip chain.
	Memory int64
}

// Performance holds the display estimates of an avatar's rendering cost. Memory figures are
// estimates, not allocator-exact.
type Performance struct {
	DrawCalls      int
	TextureMemory  int64
	GeometryMemory int64
	FileSize       int64
}

// Snapshot is the result of one Extract. It is a value: a new load produces a new Snapshot.
type Snapshot struct {
	Meshes        []MeshInfo
	MeshCount     int
	TotalVertices int
	TotalFaces    int

	Materials []MaterialInfo
	Textures  []TextureInfo

	HumanoidBones int
	Expressions   []string

	Performance Performance

	Meta        model.Meta
	FirstPerson bool
	SpecVersion string
}

// MaterialCount returns the number of distinct materials.
func (s Snapshot) MaterialCount() int {
	return len(s.Materials)
}

// TextureCount returns the number of distinct textures.
func (s Snapshot) TextureCount() int {
	return len(s.Textures)
}

// String renders a one-line summary with human-readable sizes.
func (s Snapshot) String() string {
	return fmt.Sprintf("%q (VRM %s) | meshes: %d | vertices: %s | faces: %s | materials: %d | textures: %d (%s) | geometry: %s | draw calls: %d | bones: %d | expressions: %d | file: %s",
		s.Meta.Name, s.SpecVersion, s.MeshCount,
		humanize.Comma(int64(s.TotalVertices)), humanize.Comma(int64(s.TotalFaces)),
		s.MaterialCount(), s.TextureCount(), humanize.IBytes(uint64(s.Performance.TextureMemory)),
		humanize.IBytes(uint64(s.Performance.GeometryMemory)), s.Performance.DrawCalls,
		s.HumanoidBones, len(s.Expressions), humanize.IBytes(uint64(s.Performance.FileSize)))
}

// LogSummary logs the summary line, the permission block, and one line per texture.
func (s Snapshot) LogSummary() {
	log.Printf("[Stats] %s", s)
	log.Printf("[Stats] authors: %s | avatar permission: %s | commercial: %s | modification: %s | redistribution: %t | first person: %t",
		strings.Join(s.Meta.Authors, ", "), s.Meta.AvatarPermission, s.Meta.CommercialUsage,
		s.Meta.Modification, s.Meta.AllowRedistribution, s.FirstPerson)
	for _, t := range s.Textures {
		log.Printf("[Stats] texture %q %s %dx%d (%s)", t.Name, t.Kind, t.Width, t.Height, humanize.IBytes(uint64(t.Memory)))
	}
}
