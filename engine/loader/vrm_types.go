// vrm_types.go contains the VRM extension payloads read from the glTF "extensions" object.
// VRM 1.0: https://github.com/vrm-c/vrm-specification/tree/master/specification/VRMC_vrm-1.0
// VRM 0.x: https://github.com/vrm-c/vrm-specification/tree/master/specification/0.0
package loader

// Extension names.
const (
	extVRM1          = "VRMC_vrm"
	extVRM0          = "VRM"
	extVRMAnimation  = "VRMC_vrm_animation"
	extMToon         = "VRMC_materials_mtoon"
	extUnlit         = "KHR_materials_unlit"
	vrm0MToonShader  = "VRM/MToon"
	vrm0WeightScale  = 100.0
	vrm0AllowedValue = "Allow"
)

// --- VRM 1.0 ---

type vrm1Extension struct {
	SpecVersion string           `json:"specVersion"`
	Meta        vrm1Meta         `json:"meta"`
	Humanoid    vrm1Humanoid     `json:"humanoid"`
	FirstPerson *vrm1FirstPerson `json:"firstPerson,omitempty"`
	Expressions *vrm1Expressions `json:"expressions,omitempty"`
}

// vrm1Meta mirrors the meta object. Pointer fields distinguish absent values from zero values.
type vrm1Meta struct {
	Name                           *string  `json:"name,omitempty"`
	Version                        *string  `json:"version,omitempty"`
	Authors                        []string `json:"authors,omitempty"`
	CopyrightInformation           string   `json:"copyrightInformation,omitempty"`
	ContactInformation             string   `json:"contactInformation,omitempty"`
	References                     []string `json:"references,omitempty"`
	ThirdPartyLicenses             string   `json:"thirdPartyLicenses,omitempty"`
	ThumbnailImage                 *int     `json:"thumbnailImage,omitempty"`
	LicenseURL                     string   `json:"licenseUrl,omitempty"`
	AvatarPermission               *string  `json:"avatarPermission,omitempty"`
	AllowExcessivelyViolentUsage   bool     `json:"allowExcessivelyViolentUsage,omitempty"`
	AllowExcessivelySexualUsage    bool     `json:"allowExcessivelySexualUsage,omitempty"`
	CommercialUsage                *string  `json:"commercialUsage,omitempty"`
	AllowPoliticalOrReligiousUsage bool     `json:"allowPoliticalOrReligiousUsage,omitempty"`
	AllowAntisocialOrHateUsage     bool     `json:"allowAntisocialOrHateUsage,omitempty"`
	CreditNotation                 *string  `json:"creditNotation,omitempty"`
	AllowRedistribution            bool     `json:"allowRedistribution,omitempty"`
	Modification                   *string  `json:"modification,omitempty"`
	OtherLicenseURL                string   `json:"otherLicenseUrl,omitempty"`
}

type vrm1Humanoid struct {
	HumanBones map[string]vrm1HumanBone `json:"humanBones"`
}

type vrm1HumanBone struct {
	Node *int `json:"node"`
}

type vrm1FirstPerson struct {
	MeshAnnotations []struct {
		Node int    `json:"node"`
		Type string `json:"type"`
	} `json:"meshAnnotations,omitempty"`
}

type vrm1Expressions struct {
	Preset map[string]vrm1Expression `json:"preset,omitempty"`
	Custom map[string]vrm1Expression `json:"custom,omitempty"`
}

type vrm1Expression struct {
	MorphTargetBinds []vrm1MorphTargetBind `json:"morphTargetBinds,omitempty"`
	IsBinary         bool                  `json:"isBinary,omitempty"`
}

type vrm1MorphTargetBind struct {
	Node   int     `json:"node"`
	Index  int     `json:"index"`
	Weight float32 `json:"weight"`
}

// --- VRM 0.x ---

type vrm0Extension struct {
	ExporterVersion  string                `json:"exporterVersion,omitempty"`
	Meta             vrm0Meta              `json:"meta"`
	Humanoid         vrm0Humanoid          `json:"humanoid"`
	FirstPerson      *vrm0FirstPerson      `json:"firstPerson,omitempty"`
	BlendShapeMaster *vrm0BlendShapeMaster `json:"blendShapeMaster,omitempty"`
	MaterialProps    []vrm0MaterialProps   `json:"materialProperties,omitempty"`
}

// vrm0Meta keeps the field names of the 0.x schema, including its "Ussage" spelling.
type vrm0Meta struct {
	Title                *string `json:"title,omitempty"`
	Version              *string `json:"version,omitempty"`
	Author               string  `json:"author,omitempty"`
	ContactInformation   string  `json:"contactInformation,omitempty"`
	Reference            string  `json:"reference,omitempty"`
	Texture              *int    `json:"texture,omitempty"`
	AllowedUserName      *string `json:"allowedUserName,omitempty"`
	ViolentUssageName    string  `json:"violentUssageName,omitempty"`
	SexualUssageName     string  `json:"sexualUssageName,omitempty"`
	CommercialUssageName *string `json:"commercialUssageName,omitempty"`
	LicenseName          *string `json:"licenseName,omitempty"`
	OtherLicenseURL      string  `json:"otherLicenseUrl,omitempty"`
}

type vrm0Humanoid struct {
	HumanBones []vrm0HumanBone `json:"humanBones"`
}

type vrm0HumanBone struct {
	Bone string `json:"bone"`
	Node int    `json:"node"`
}

type vrm0FirstPerson struct {
	FirstPersonBone *int `json:"firstPersonBone,omitempty"`
	MeshAnnotations []struct {
		Mesh            int    `json:"mesh"`
		FirstPersonFlag string `json:"firstPersonFlag"`
	} `json:"meshAnnotations,omitempty"`
}

type vrm0BlendShapeMaster struct {
	BlendShapeGroups []vrm0BlendShapeGroup `json:"blendShapeGroups,omitempty"`
}

type vrm0BlendShapeGroup struct {
	Name       string               `json:"name"`
	PresetName string               `json:"presetName,omitempty"`
	Binds      []vrm0BlendShapeBind `json:"binds,omitempty"`
}

// vrm0BlendShapeBind addresses a mesh rather than a node, and weights run 0 to 100.
type vrm0BlendShapeBind struct {
	Mesh   int     `json:"mesh"`
	Index  int     `json:"index"`
	Weight float32 `json:"weight"`
}

type vrm0MaterialProps struct {
	Name   string `json:"name"`
	Shader string `json:"shader"`
}

// --- VRMC_vrm_animation ---

type vrmAnimationExtension struct {
	SpecVersion string       `json:"specVersion"`
	Humanoid    vrm1Humanoid `json:"humanoid"`
}
