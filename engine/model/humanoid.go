package model

// HumanBone identifies a bone of the VRM humanoid taxonomy.
// It is a closed enumeration; lookups against an Avatar return (node, ok).
type HumanBone int

const (
	BoneHips HumanBone = iota
	BoneSpine
	BoneChest
	BoneUpperChest
	BoneNeck
	BoneHead
	BoneLeftEye
	BoneRightEye
	BoneJaw

	BoneLeftUpperLeg
	BoneLeftLowerLeg
	BoneLeftFoot
	BoneLeftToes
	BoneRightUpperLeg
	BoneRightLowerLeg
	BoneRightFoot
	BoneRightToes

	BoneLeftShoulder
	BoneLeftUpperArm
	BoneLeftLowerArm
	BoneLeftHand
	BoneRightShoulder
	BoneRightUpperArm
	BoneRightLowerArm
	BoneRightHand

	BoneLeftThumbMetacarpal
	BoneLeftThumbProximal
	BoneLeftThumbDistal
	BoneLeftIndexProximal
	BoneLeftIndexIntermediate
	BoneLeftIndexDistal
	BoneLeftMiddleProximal
	BoneLeftMiddleIntermediate
	BoneLeftMiddleDistal
	BoneLeftRingProximal
	BoneLeftRingIntermediate
	BoneLeftRingDistal
	BoneLeftLittleProximal
	BoneLeftLittleIntermediate
	BoneLeftLittleDistal

	BoneRightThumbMetacarpal
	BoneRightThumbProximal
	BoneRightThumbDistal
	BoneRightIndexProximal
	BoneRightIndexIntermediate
	BoneRightIndexDistal
	BoneRightMiddleProximal
	BoneRightMiddleIntermediate
	BoneRightMiddleDistal
	BoneRightRingProximal
	BoneRightRingIntermediate
	BoneRightRingDistal
	BoneRightLittleProximal
	BoneRightLittleIntermediate
	BoneRightLittleDistal

	// HumanBoneCount is the number of bones in the taxonomy.
	HumanBoneCount
)

var humanBoneNames = [HumanBoneCount]string{
	"hips", "spine", "chest", "upperChest", "neck", "head", "leftEye", "rightEye", "jaw",
	"leftUpperLeg", "leftLowerLeg", "leftFoot", "leftToes",
	"rightUpperLeg", "rightLowerLeg", "rightFoot", "rightToes",
	"leftShoulder", "leftUpperArm", "leftLowerArm", "leftHand",
	"rightShoulder", "rightUpperArm", "rightLowerArm", "rightHand",
	"leftThumbMetacarpal", "leftThumbProximal", "leftThumbDistal",
	"leftIndexProximal", "leftIndexIntermediate", "leftIndexDistal",
	"leftMiddleProximal", "leftMiddleIntermediate", "leftMiddleDistal",
	"leftRingProximal", "leftRingIntermediate", "leftRingDistal",
	"leftLittleProximal", "leftLittleIntermediate", "leftLittleDistal",
	"rightThumbMetacarpal", "rightThumbProximal", "rightThumbDistal",
	"rightIndexProximal", "rightIndexIntermediate", "rightIndexDistal",
	"rightMiddleProximal", "rightMiddleIntermediate", "rightMiddleDistal",
	"rightRingProximal", "rightRingIntermediate", "rightRingDistal",
	"rightLittleProximal", "rightLittleIntermediate", "rightLittleDistal",
}

var humanBoneByName = func() map[string]HumanBone {
	m := make(map[string]HumanBone, HumanBoneCount)
	for i, n := range humanBoneNames {
		m[n] = HumanBone(i)
	}
	return m
}()

// VRM 0.x shifts the thumb chain by one joint relative to VRM 1.0.
var vrm0ThumbRemap = map[string]HumanBone{
	"leftThumbProximal":      BoneLeftThumbMetacarpal,
	"leftThumbIntermediate":  BoneLeftThumbProximal,
	"leftThumbDistal":        BoneLeftThumbDistal,
	"rightThumbProximal":     BoneRightThumbMetacarpal,
	"rightThumbIntermediate": BoneRightThumbProximal,
	"rightThumbDistal":       BoneRightThumbDistal,
}

// String returns the VRM 1.0 name of the bone.
func (b HumanBone) String() string {
	if b < 0 || b >= HumanBoneCount {
		return "unknown"
	}
	return humanBoneNames[b]
}

// Valid reports whether b is a member of the enumeration.
func (b HumanBone) Valid() bool {
	return b >= 0 && b < HumanBoneCount
}

// ParseHumanBone resolves a VRM 1.0 humanoid bone name.
// The VRM 0.x-only name "*ThumbIntermediate" is accepted and mapped to the VRM 1.0 thumb proximal bone.
// Use ParseHumanBoneVRM0 for full VRM 0.x thumb remapping.
//
// Parameters:
//   - name: the humanoid bone name
//
// Returns:
//   - HumanBone: the bone identifier
//   - bool: false if the name is unknown
func ParseHumanBone(name string) (HumanBone, bool) {
	if b, ok := humanBoneByName[name]; ok {
		return b, true
	}
	switch name {
	case "leftThumbIntermediate":
		return BoneLeftThumbProximal, true
	case "rightThumbIntermediate":
		return BoneRightThumbProximal, true
	}
	return 0, false
}

// ParseHumanBoneVRM0 resolves a VRM 0.x humanoid bone name, remapping the thumb chain onto VRM 1.0 bones.
//
// Parameters:
//   - name: the VRM 0.x humanoid bone name
//
// Returns:
//   - HumanBone: the bone identifier
//   - bool: false if the name is unknown
func ParseHumanBoneVRM0(name string) (HumanBone, bool) {
	if b, ok := vrm0ThumbRemap[name]; ok {
		return b, true
	}
	return ParseHumanBone(name)
}

// RequiredHumanBones lists the bones every loadable avatar must provide.
func RequiredHumanBones() []HumanBone {
	return []HumanBone{BoneHips, BoneSpine, BoneHead, BoneLeftUpperArm, BoneRightUpperArm}
}
