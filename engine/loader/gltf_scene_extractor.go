package loader

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// gltfSceneExtractorImpl is the implementation of the gltfSceneExtractor interface.
type gltfSceneExtractorImpl struct {
	parser    gltfParser
	materials gltfMaterialExtractor

	nodes      []*scene.Node
	drawables  map[int][]*scene.Node
	geometries map[[2]int]*model.Geometry
}

// gltfSceneExtractor builds the scene.Node hierarchy of the default glTF scene.
type gltfSceneExtractor interface {
	// ExtractScene builds the hierarchy under a single synthetic root.
	//
	// Parameters:
	//   - rootName: the name of the synthetic root node
	//
	// Returns:
	//   - *scene.Node: the root
	//   - error: error if a node, mesh, or material is malformed
	ExtractScene(rootName string) (*scene.Node, error)

	// Node returns the scene node created for a glTF node index, or nil.
	//
	// Parameters:
	//   - nodeIndex: the glTF node index
	//
	// Returns:
	//   - *scene.Node: the node or nil
	Node(nodeIndex int) *scene.Node

	// Drawables returns the drawable nodes created for a glTF node index. A node with a
	// single-primitive mesh is its own drawable; a multi-primitive mesh becomes one child per primitive.
	//
	// Parameters:
	//   - nodeIndex: the glTF node index
	//
	// Returns:
	//   - []*scene.Node: the drawable nodes
	Drawables(nodeIndex int) []*scene.Node

	// NodesWithMesh returns the glTF node indices that instance the given mesh.
	//
	// Parameters:
	//   - meshIndex: the glTF mesh index
	//
	// Returns:
	//   - []int: the node indices
	NodesWithMesh(meshIndex int) []int
}

var _ gltfSceneExtractor = &gltfSceneExtractorImpl{}

// newGLTFSceneExtractor creates a scene extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - materials: the material extractor shared with the rest of the decode
//
// Returns:
//   - gltfSceneExtractor: the scene extractor
func newGLTFSceneExtractor(parser gltfParser, materials gltfMaterialExtractor) gltfSceneExtractor {
	return &gltfSceneExtractorImpl{
		parser:     parser,
		materials:  materials,
		drawables:  make(map[int][]*scene.Node),
		geometries: make(map[[2]int]*model.Geometry),
	}
}

func (e *gltfSceneExtractorImpl) Node(nodeIndex int) *scene.Node {
	if nodeIndex < 0 || nodeIndex >= len(e.nodes) {
		return nil
	}
	return e.nodes[nodeIndex]
}

func (e *gltfSceneExtractorImpl) Drawables(nodeIndex int) []*scene.Node {
	return e.drawables[nodeIndex]
}

func (e *gltfSceneExtractorImpl) NodesWithMesh(meshIndex int) []int {
	var out []int
	for i, n := range e.parser.Document().Nodes {
		if n.Mesh != nil && *n.Mesh == meshIndex {
			out = append(out, i)
		}
	}
	return out
}

func (e *gltfSceneExtractorImpl) ExtractScene(rootName string) (*scene.Node, error) {
	doc := e.parser.Document()
	e.nodes = make([]*scene.Node, len(doc.Nodes))

	for i := range doc.Nodes {
		src := &doc.Nodes[i]
		n := scene.NewNode(src.Name, scene.WithTransform(gltfExtractNodeTransform(src)))
		if n.Name == "" {
			n.Name = fmt.Sprintf("node_%d", i)
		}
		e.nodes[i] = n
	}

	for i := range doc.Nodes {
		if err := e.attachMesh(i); err != nil {
			return nil, err
		}
	}

	for i := range doc.Nodes {
		for _, c := range doc.Nodes[i].Children {
			if c < 0 || c >= len(e.nodes) {
				return nil, fmt.Errorf("node %d: child index %d out of range", i, c)
			}
			if e.nodes[c].Parent() != nil {
				return nil, fmt.Errorf("node %d has more than one parent", c)
			}
			if err := e.nodes[i].AddChild(e.nodes[c]); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
		}
	}

	root := scene.NewNode(rootName)
	for _, idx := range e.sceneRoots() {
		if idx < 0 || idx >= len(e.nodes) {
			return nil, fmt.Errorf("scene root index %d out of range", idx)
		}
		if e.nodes[idx].Parent() != nil {
			continue
		}
		if err := root.AddChild(e.nodes[idx]); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// sceneRoots returns the root node indices of the default scene. Without scenes, every parentless node is a root.
func (e *gltfSceneExtractorImpl) sceneRoots() []int {
	doc := e.parser.Document()
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

func (e *gltfSceneExtractorImpl) attachMesh(nodeIndex int) error {
	doc := e.parser.Document()
	src := &doc.Nodes[nodeIndex]
	if src.Mesh == nil {
		return nil
	}
	meshIndex := *src.Mesh
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return fmt.Errorf("node %d: mesh index %d out of range", nodeIndex, meshIndex)
	}
	mesh := &doc.Meshes[meshIndex]
	node := e.nodes[nodeIndex]

	weights := src.Weights
	if weights == nil {
		weights = mesh.Weights
	}

	for p := range mesh.Primitives {
		prim := &mesh.Primitives[p]
		geo, err := e.geometry(meshIndex, p)
		if err != nil {
			return &DecodeError{Stage: "mesh", Err: fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, p, err)}
		}
		mat, err := e.materials.Material(prim.Material)
		if err != nil {
			return &DecodeError{Stage: "material", Err: err}
		}

		target := node
		if len(mesh.Primitives) > 1 {
			target = scene.NewNode(fmt.Sprintf("%s.primitive_%d", node.Name, p))
			if err := node.AddChild(target); err != nil {
				return err
			}
		}
		scene.WithGeometry(geo, mat)(target)
		for i := range min(len(weights), len(target.MorphWeights)) {
			target.MorphWeights[i] = weights[i]
		}
		e.drawables[nodeIndex] = append(e.drawables[nodeIndex], target)
	}
	return nil
}

// geometry decodes a primitive once; nodes that instance the same mesh share the geometry.
func (e *gltfSceneExtractorImpl) geometry(meshIndex, primIndex int) (*model.Geometry, error) {
	key := [2]int{meshIndex, primIndex}
	if g, ok := e.geometries[key]; ok {
		return g, nil
	}

	doc := e.parser.Document()
	mesh := &doc.Meshes[meshIndex]
	prim := &mesh.Primitives[primIndex]

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}

	g := &model.Geometry{
		Name:             fmt.Sprintf("%s_%d", mesh.Name, primIndex),
		Mode:             model.PrimitiveModeTriangles,
		MorphTargetCount: len(prim.Targets),
	}
	if mesh.Name == "" {
		g.Name = fmt.Sprintf("mesh_%d_%d", meshIndex, primIndex)
	}
	if prim.Mode != nil {
		g.Mode = *prim.Mode
	}

	var err error
	if g.Positions, err = e.parser.ReadVec3Accessor(posAccessor); err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}
	if acc, ok := prim.Attributes["NORMAL"]; ok {
		if g.Normals, err = e.parser.ReadVec3Accessor(acc); err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
	}
	if acc, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if g.UVs, err = e.parser.ReadVec2Accessor(acc); err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
	}

	// deterministic attribute order keeps decode errors stable
	semantics := make([]string, 0, len(prim.Attributes))
	for s := range prim.Attributes {
		semantics = append(semantics, s)
	}
	slices.Sort(semantics)
	for _, s := range semantics {
		switch s {
		case "POSITION", "NORMAL", "TEXCOORD_0":
			continue
		}
		values, err := e.parser.ReadVec4Accessor(prim.Attributes[s])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", strings.ToLower(s), err)
		}
		if g.Attributes == nil {
			g.Attributes = make(map[string][][4]float32)
		}
		g.Attributes[s] = values
	}

	if prim.Indices != nil {
		if g.Indices, g.IndexWidth, err = e.parser.ReadIndicesAccessor(*prim.Indices); err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		for _, idx := range g.Indices {
			if int(idx) >= len(g.Positions) {
				return nil, fmt.Errorf("index %d exceeds vertex count %d", idx, len(g.Positions))
			}
		}
	}

	e.geometries[key] = g
	return g, nil
}

// --- Transform Helpers ---

// gltfExtractNodeTransform extracts the TRS transform from a glTF node.
func gltfExtractNodeTransform(node *gltfNode) model.Transform {
	if node.Matrix != nil {
		return gltfDecomposeMatrix(*node.Matrix)
	}

	t := model.IdentityTransform()
	if node.Translation != nil {
		t.Translation = *node.Translation
	}
	if node.Rotation != nil {
		t.Rotation = *node.Rotation
	}
	if node.Scale != nil {
		t.Scale = *node.Scale
	}
	return t
}

// gltfDecomposeMatrix decomposes a column-major 4x4 matrix into translation, rotation and scale.
// Shear is not represented.
func gltfDecomposeMatrix(m [16]float32) model.Transform {
	var t model.Transform
	t.Translation = [3]float32{m[12], m[13], m[14]}

	sx := vectorLength(m[0], m[1], m[2])
	sy := vectorLength(m[4], m[5], m[6])
	sz := vectorLength(m[8], m[9], m[10])
	t.Scale = [3]float32{sx, sy, sz}

	if sx < 0.0001 {
		sx = 1
	}
	if sy < 0.0001 {
		sy = 1
	}
	if sz < 0.0001 {
		sz = 1
	}

	t.Rotation = rotationToQuaternion([9]float32{
		m[0] / sx, m[1] / sx, m[2] / sx,
		m[4] / sy, m[5] / sy, m[6] / sy,
		m[8] / sz, m[9] / sz, m[10] / sz,
	})
	return t
}

func vectorLength(x, y, z float32) float32 {
	return float32(math.Sqrt(float64(x*x + y*y + z*z)))
}

// rotationToQuaternion converts the three normalized basis columns of a rotation into an (x, y, z, w) quaternion.
// c holds column 0, column 1 and column 2 in order, so c[3*j+i] is row i of column j.
func rotationToQuaternion(c [9]float32) [4]float32 {
	r00, r10, r20 := c[0], c[1], c[2]
	r01, r11, r21 := c[3], c[4], c[5]
	r02, r12, r22 := c[6], c[7], c[8]

	var x, y, z, w float32
	switch trace := r00 + r11 + r22; {
	case trace > 0:
		s := float32(math.Sqrt(float64(trace+1))) * 2
		w = 0.25 * s
		x = (r21 - r12) / s
		y = (r02 - r20) / s
		z = (r10 - r01) / s
	case r00 > r11 && r00 > r22:
		s := float32(math.Sqrt(float64(1+r00-r11-r22))) * 2
		w = (r21 - r12) / s
		x = 0.25 * s
		y = (r01 + r10) / s
		z = (r02 + r20) / s
	case r11 > r22:
		s := float32(math.Sqrt(float64(1+r11-r00-r22))) * 2
		w = (r02 - r20) / s
		x = (r01 + r10) / s
		y = 0.25 * s
		z = (r12 + r21) / s
	default:
		s := float32(math.Sqrt(float64(1+r22-r00-r11))) * 2
		w = (r10 - r01) / s
		x = (r02 + r20) / s
		y = (r12 + r21) / s
		z = 0.25 * s
	}

	if l := float32(math.Sqrt(float64(x*x + y*y + z*z + w*w))); l > 0.0001 {
		x, y, z, w = x/l, y/l, z/l, w/l
	}
	return [4]float32{x, y, z, w}
}
