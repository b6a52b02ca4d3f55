// vrm_types.go contains the JSON structures of the VRM glTF extensions.
// They are decoded from gltfDocument.Extensions and are internal to the loader package.
// References:
//   - VRM 1.0: https://github.com/vrm-c/vrm-specification/tree/master/specification/VRMC_vrm-1.0
//   - VRM 0.x: https://github.com/vrm-c/vrm-specification/tree/master/specification/0.0
//   - VRMA:    https://github.com/vrm-c/vrm-specification/tree/master/specification/VRMC_vrm_animation-1.0
package loader

// Extension names
const (
	extVRM1          = "VRMC_vrm"
	extVRM0          = "VRM"
	extSpringBone    = "VRMC_springBone"
	extVRMAnimation  = "VRMC_vrm_animation"
	vrmMetaVersionV0 = "0"
	vrmMetaVersionV1 = "1"
)

// --- VRM 1.0 (VRMC_vrm) ---

type vrm1Extension struct {
	SpecVersion string          `json:"specVersion"`
	Meta        vrm1Meta        `json:"meta"`
	Humanoid    vrm1Humanoid    `json:"humanoid"`
	Expressions vrm1Expressions `json:"expressions"`
}

type vrm1Meta struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Authors []string `json:"authors,omitempty"`
}

type vrm1Humanoid struct {
	HumanBones map[string]vrmNodeRef `json:"humanBones"`
}

// vrmNodeRef is the {"node": n} object shared by VRMC_vrm and VRMC_vrm_animation.
type vrmNodeRef struct {
	Node int `json:"node"`
}

type vrm1Expressions struct {
	Preset map[string]vrm1Expression `json:"preset,omitempty"`
	Custom map[string]vrm1Expression `json:"custom,omitempty"`
}

type vrm1Expression struct {
	MorphTargetBinds []vrm1MorphTargetBind `json:"morphTargetBinds,omitempty"`
	IsBinary         bool                  `json:"isBinary,omitempty"`
}

// vrm1MorphTargetBind addresses a morph target through the node that draws the mesh.
type vrm1MorphTargetBind struct {
	Node   int     `json:"node"`
	Index  int     `json:"index"`
	Weight float32 `json:"weight"`
}

// --- VRM 0.x (VRM) ---

type vrm0Extension struct {
	ExporterVersion    string                 `json:"exporterVersion,omitempty"`
	Meta               vrm0Meta               `json:"meta"`
	Humanoid           vrm0Humanoid           `json:"humanoid"`
	BlendShapeMaster   vrm0BlendShapeMaster   `json:"blendShapeMaster"`
	SecondaryAnimation vrm0SecondaryAnimation `json:"secondaryAnimation"`
	MaterialProperties []vrm0MaterialProperty `json:"materialProperties,omitempty"`
}

type vrm0Meta struct {
	Title   string `json:"title,omitempty"`
	Version string `json:"version,omitempty"`
	Author  string `json:"author,omitempty"`
}

type vrm0Humanoid struct {
	HumanBones []vrm0HumanBone `json:"humanBones"`
}

type vrm0HumanBone struct {
	Bone string `json:"bone"`
	Node int    `json:"node"`
}

type vrm0BlendShapeMaster struct {
	BlendShapeGroups []vrm0BlendShapeGroup `json:"blendShapeGroups,omitempty"`
}

type vrm0BlendShapeGroup struct {
	Name       string               `json:"name"`
	PresetName string               `json:"presetName,omitempty"`
	Binds      []vrm0BlendShapeBind `json:"binds,omitempty"`
	IsBinary   bool                 `json:"isBinary,omitempty"`
}

// vrm0BlendShapeBind addresses a morph target by mesh index. Weight is in [0, 100].
type vrm0BlendShapeBind struct {
	Mesh   int     `json:"mesh"`
	Index  int     `json:"index"`
	Weight float32 `json:"weight"`
}

type vrm0SecondaryAnimation struct {
	BoneGroups     []vrm0BoneGroup     `json:"boneGroups,omitempty"`
	ColliderGroups []vrm0ColliderGroup `json:"colliderGroups,omitempty"`
}

// vrm0BoneGroup keeps the historical "stiffiness" spelling of the VRM 0.x schema.
type vrm0BoneGroup struct {
	Stiffness      float32  `json:"stiffiness"`
	GravityPower   float32  `json:"gravityPower"`
	GravityDir     vrm0Vec3 `json:"gravityDir"`
	DragForce      float32  `json:"dragForce"`
	HitRadius      float32  `json:"hitRadius"`
	Bones          []int    `json:"bones"`
	ColliderGroups []int    `json:"colliderGroups,omitempty"`
}

type vrm0ColliderGroup struct {
	Node      int            `json:"node"`
	Colliders []vrm0Collider `json:"colliders"`
}

type vrm0Collider struct {
	Offset vrm0Vec3 `json:"offset"`
	Radius float32  `json:"radius"`
}

type vrm0Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type vrm0MaterialProperty struct {
	Name             string                `json:"name"`
	Shader           string                `json:"shader,omitempty"`
	VectorProperties map[string][]float32 `json:"vectorProperties,omitempty"`
}

// vrm0PresetNames maps VRM 0.x blend shape presets onto VRM 1.0 expression names.
var vrm0PresetNames = map[string]string{
	"blink":     "blink",
	"blink_l":   "blinkLeft",
	"blink_r":   "blinkRight",
	"a":         "aa",
	"i":         "ih",
	"u":         "ou",
	"e":         "ee",
	"o":         "oh",
	"joy":       "happy",
	"angry":     "angry",
	"sorrow":    "sad",
	"fun":       "relaxed",
	"neutral":   "neutral",
	"lookup":    "lookUp",
	"lookdown":  "lookDown",
	"lookleft":  "lookLeft",
	"lookright": "lookRight",
}

// --- VRMC_springBone ---

type springBoneExtension struct {
	SpecVersion    string                    `json:"specVersion"`
	Colliders      []springBoneCollider      `json:"colliders,omitempty"`
	ColliderGroups []springBoneColliderGroup `json:"colliderGroups,omitempty"`
	Springs        []springBoneSpring        `json:"springs,omitempty"`
}

type springBoneCollider struct {
	Node  int                     `json:"node"`
	Shape springBoneColliderShape `json:"shape"`
}

type springBoneColliderShape struct {
	Sphere  *springBoneSphere  `json:"sphere,omitempty"`
	Capsule *springBoneCapsule `json:"capsule,omitempty"`
}

type springBoneSphere struct {
	Offset [3]float32 `json:"offset"`
	Radius float32    `json:"radius"`
}

type springBoneCapsule struct {
	Offset [3]float32 `json:"offset"`
	Radius float32    `json:"radius"`
	Tail   [3]float32 `json:"tail"`
}

type springBoneColliderGroup struct {
	Name      string `json:"name,omitempty"`
	Colliders []int  `json:"colliders"`
}

type springBoneSpring struct {
	Name           string            `json:"name,omitempty"`
	Joints         []springBoneJoint `json:"joints"`
	ColliderGroups []int             `json:"colliderGroups,omitempty"`
}

// springBoneJoint uses pointers so schema defaults apply to omitted fields.
type springBoneJoint struct {
	Node         int         `json:"node"`
	HitRadius    *float32    `json:"hitRadius,omitempty"`
	Stiffness    *float32    `json:"stiffness,omitempty"`
	GravityPower *float32    `json:"gravityPower,omitempty"`
	GravityDir   *[3]float32 `json:"gravityDir,omitempty"`
	DragForce    *float32    `json:"dragForce,omitempty"`
}

// VRMC_springBone joint defaults
const (
	springDefaultStiffness = 1.0
	springDefaultDragForce = 0.5
)

// --- VRMC_vrm_animation ---

type vrmaExtension struct {
	SpecVersion string          `json:"specVersion"`
	Humanoid    vrm1Humanoid    `json:"humanoid"`
	Expressions vrmaExpressions `json:"expressions"`
}

type vrmaExpressions struct {
	Preset map[string]vrmNodeRef `json:"preset,omitempty"`
	Custom map[string]vrmNodeRef `json:"custom,omitempty"`
}
