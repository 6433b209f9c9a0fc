package loader

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-vrm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrm/engine/scene"
)

// vrm0PresetNames maps VRM 0.x blend shape presets onto the VRM 1.0 expression vocabulary.
var vrm0PresetNames = map[string]string{
	"a":         "aa",
	"i":         "ih",
	"u":         "ou",
	"e":         "ee",
	"o":         "oh",
	"joy":       "happy",
	"angry":     "angry",
	"sorrow":    "sad",
	"fun":       "relaxed",
	"blink":     "blink",
	"blink_l":   "blinkLeft",
	"blink_r":   "blinkRight",
	"lookup":    "lookUp",
	"lookdown":  "lookDown",
	"lookleft":  "lookLeft",
	"lookright": "lookRight",
	"neutral":   "neutral",
}

// vrmData is the avatar-specific part of a decoded file.
type vrmData struct {
	version     string
	meta        model.Meta
	humanoid    map[string]*scene.Node
	expressions []Expression
	firstPerson bool
}

// detectVRMVersion reports which avatar extension the document carries. VRM 1.0 wins when both are present.
//
// Parameters:
//   - doc: the parsed document
//
// Returns:
//   - string: model.SpecVersion1, model.SpecVersion0, or "" when neither extension payload is present
func detectVRMVersion(doc *gltfDocument) string {
	switch {
	case hasExtensionData(doc, extVRM1):
		return model.SpecVersion1
	case hasExtensionData(doc, extVRM0):
		return model.SpecVersion0
	}
	return ""
}

// hasExtensionData reports whether the document carries a payload for the named top-level extension.
// A name listed only in extensionsUsed does not count.
func hasExtensionData(doc *gltfDocument, name string) bool {
	raw, ok := doc.Extensions[name]
	if !ok {
		return false
	}
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// vrm0MToonMaterials returns the names of the materials a VRM 0.x extension declares as MToon.
func vrm0MToonMaterials(doc *gltfDocument) map[string]bool {
	raw, ok := doc.Extensions[extVRM0]
	if !ok {
		return nil
	}
	var ext struct {
		MaterialProps []vrm0MaterialProps `json:"materialProperties"`
	}
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil
	}
	out := make(map[string]bool)
	for _, p := range ext.MaterialProps {
		if p.Shader == vrm0MToonShader {
			out[p.Name] = true
		}
	}
	return out
}

// extractVRM decodes the avatar extension for the detected version and binds it to the built scene.
func extractVRM(doc *gltfDocument, version string, scenes gltfSceneExtractor) (*vrmData, error) {
	switch version {
	case model.SpecVersion1:
		var ext vrm1Extension
		if raw, ok := doc.Extensions[extVRM1]; ok {
			if err := json.Unmarshal(raw, &ext); err != nil {
				return nil, &DecodeError{Stage: "vrm", Err: err}
			}
		}
		return extractVRM1(&ext, scenes), nil
	case model.SpecVersion0:
		var ext vrm0Extension
		if raw, ok := doc.Extensions[extVRM0]; ok {
			if err := json.Unmarshal(raw, &ext); err != nil {
				return nil, &DecodeError{Stage: "vrm", Err: err}
			}
		}
		return extractVRM0(&ext, scenes), nil
	}
	return nil, &FormatError{Reason: "no VRMC_vrm or VRM extension"}
}

func extractVRM1(ext *vrm1Extension, scenes gltfSceneExtractor) *vrmData {
	out := &vrmData{
		version:     model.SpecVersion1,
		meta:        vrm1ToMeta(&ext.Meta),
		humanoid:    make(map[string]*scene.Node),
		firstPerson: ext.FirstPerson != nil && len(ext.FirstPerson.MeshAnnotations) > 0,
	}

	for name, bone := range ext.Humanoid.HumanBones {
		if bone.Node == nil {
			continue
		}
		if n := scenes.Node(*bone.Node); n != nil {
			out.humanoid[name] = n
		}
	}

	if ext.Expressions != nil {
		for _, group := range []map[string]vrm1Expression{ext.Expressions.Preset, ext.Expressions.Custom} {
			for _, name := range slices.Sorted(maps.Keys(group)) {
				expr := Expression{Name: name, Binary: group[name].IsBinary}
				for _, b := range group[name].MorphTargetBinds {
					expr.Binds = append(expr.Binds, morphBinds(scenes.Drawables(b.Node), b.Index, b.Weight)...)
				}
				out.expressions = append(out.expressions, expr)
			}
		}
	}
	return out
}

func extractVRM0(ext *vrm0Extension, scenes gltfSceneExtractor) *vrmData {
	out := &vrmData{
		version:  model.SpecVersion0,
		meta:     vrm0ToMeta(&ext.Meta),
		humanoid: make(map[string]*scene.Node),
	}
	if fp := ext.FirstPerson; fp != nil {
		out.firstPerson = len(fp.MeshAnnotations) > 0 || (fp.FirstPersonBone != nil && *fp.FirstPersonBone >= 0)
	}

	for _, bone := range ext.Humanoid.HumanBones {
		if bone.Bone == "" {
			continue
		}
		if n := scenes.Node(bone.Node); n != nil {
			out.humanoid[bone.Bone] = n
		}
	}

	if ext.BlendShapeMaster != nil {
		seen := make(map[string]bool)
		for _, g := range ext.BlendShapeMaster.BlendShapeGroups {
			name := g.Name
			if preset, ok := vrm0PresetNames[strings.ToLower(g.PresetName)]; ok {
				name = preset
			}
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			expr := Expression{Name: name}
			for _, b := range g.Binds {
				for _, nodeIndex := range scenes.NodesWithMesh(b.Mesh) {
					expr.Binds = append(expr.Binds, morphBinds(scenes.Drawables(nodeIndex), b.Index, b.Weight/vrm0WeightScale)...)
				}
			}
			out.expressions = append(out.expressions, expr)
		}
	}
	return out
}

// morphBinds binds a morph target index on every drawable that declares that target.
func morphBinds(drawables []*scene.Node, index int, weight float32) []MorphBind {
	var out []MorphBind
	for _, d := range drawables {
		if index >= 0 && index < len(d.MorphWeights) {
			out = append(out, MorphBind{Node: d, Index: index, Weight: weight})
		}
	}
	return out
}

func vrm1ToMeta(m *vrm1Meta) model.Meta {
	meta := model.DefaultMeta()
	if m.Name != nil && *m.Name != "" {
		meta.Name = *m.Name
	}
	if m.Version != nil && *m.Version != "" {
		meta.Version = *m.Version
	}
	if len(m.Authors) > 0 {
		meta.Authors = append([]string{}, m.Authors...)
	}
	meta.CopyrightInformation = m.CopyrightInformation
	meta.ContactInformation = m.ContactInformation
	if len(m.References) > 0 {
		meta.References = append([]string{}, m.References...)
	}
	meta.ThirdPartyLicenses = m.ThirdPartyLicenses
	if m.ThumbnailImage != nil {
		meta.ThumbnailImage = *m.ThumbnailImage
	}
	meta.LicenseURL = m.LicenseURL
	meta.AvatarPermission = stringOr(m.AvatarPermission, meta.AvatarPermission)
	meta.AllowExcessivelyViolentUsage = m.AllowExcessivelyViolentUsage
	meta.AllowExcessivelySexualUsage = m.AllowExcessivelySexualUsage
	meta.CommercialUsage = stringOr(m.CommercialUsage, meta.CommercialUsage)
	meta.AllowPoliticalOrReligiousUsage = m.AllowPoliticalOrReligiousUsage
	meta.AllowAntisocialOrHateUsage = m.AllowAntisocialOrHateUsage
	meta.CreditNotation = stringOr(m.CreditNotation, meta.CreditNotation)
	meta.AllowRedistribution = m.AllowRedistribution
	meta.Modification = stringOr(m.Modification, meta.Modification)
	meta.OtherLicenseURL = m.OtherLicenseURL
	return meta
}

func vrm0ToMeta(m *vrm0Meta) model.Meta {
	meta := model.DefaultMeta()
	meta.Name = stringOr(m.Title, meta.Name)
	meta.Version = stringOr(m.Version, meta.Version)
	if m.Author != "" {
		meta.Authors = []string{m.Author}
	}
	meta.ContactInformation = m.ContactInformation
	if m.Reference != "" {
		meta.References = []string{m.Reference}
	}
	if m.Texture != nil {
		meta.ThumbnailImage = *m.Texture
	}
	meta.AvatarPermission = stringOr(m.AllowedUserName, meta.AvatarPermission)
	meta.AllowExcessivelyViolentUsage = m.ViolentUssageName == vrm0AllowedValue
	meta.AllowExcessivelySexualUsage = m.SexualUssageName == vrm0AllowedValue
	meta.CommercialUsage = stringOr(m.CommercialUssageName, meta.CommercialUsage)
	meta.Modification = stringOr(m.LicenseName, meta.Modification)
	meta.OtherLicenseURL = m.OtherLicenseURL
	return meta
}

func stringOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
