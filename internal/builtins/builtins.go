// Package builtins defines the WGSL built-in functions the validator needs
// to know about: their names, categories, the enabling extension, and how
// they access memory through a pointer argument.
//
// Overload resolution is not modelled. A call to a name that is neither a
// user function nor listed here is an unresolved call target.
package builtins

import (
	"github.com/HugoDaniel/wgslcheck/internal/extension"
)

// BuiltinKind identifies categories of builtin functions.
type BuiltinKind uint8

const (
	BuiltinConversion      BuiltinKind = iota // Bit reinterpretation
	BuiltinLogical                            // Logical operations
	BuiltinArray                              // Array operations
	BuiltinNumeric                            // Math functions
	BuiltinDerivative                         // Derivative functions
	BuiltinTexture                            // Texture sampling
	BuiltinAtomic                             // Atomic operations
	BuiltinPacking                            // Data packing/unpacking
	BuiltinSynchronization                    // Barriers and uniform loads
	BuiltinSubgroup                           // Subgroup operations
	BuiltinSubgroupMatrix                     // Subgroup matrix operations
)

// PointerAccess is how a builtin touches the memory behind its pointer
// argument.
type PointerAccess uint8

const (
	// NoAccess means the builtin takes no pointer, or only inspects the
	// pointer without touching memory (arrayLength).
	NoAccess PointerAccess = iota
	// Read means the builtin loads through the pointer.
	Read
	// Write means the builtin stores through the pointer. Read-modify-write
	// atomics count as writes.
	Write
)

func (a PointerAccess) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "none"
	}
}

// Builtin represents a built-in function.
type Builtin struct {
	Name string
	Kind BuiltinKind

	// Access is the memory access performed through argument PointerArg.
	Access     PointerAccess
	PointerArg int

	// Extension that must be enabled to call the builtin, if any.
	Extension extension.Extension
}

// Table maps builtin function names to their definitions.
var Table = make(map[string]*Builtin)

func init() {
	registerConversions()
	registerLogical()
	registerArray()
	registerNumeric()
	registerDerivative()
	registerTexture()
	registerAtomic()
	registerPacking()
	registerSynchronization()
	registerSubgroup()
	registerSubgroupMatrix()
}

// Lookup returns the builtin function with the given name, or nil.
func Lookup(name string) *Builtin {
	return Table[name]
}

// IsBuiltin returns true if the name is a builtin function.
func IsBuiltin(name string) bool {
	return Table[name] != nil
}

// register adds a builtin to the table.
func register(b *Builtin) {
	Table[b.Name] = b
}

func registerAll(kind BuiltinKind, names ...string) {
	for _, name := range names {
		register(&Builtin{Name: name, Kind: kind})
	}
}

// ----------------------------------------------------------------------------
// Value-only builtins
// ----------------------------------------------------------------------------

func registerConversions() {
	registerAll(BuiltinConversion, "bitcast")
}

func registerLogical() {
	registerAll(BuiltinLogical, "all", "any", "select")
}

func registerArray() {
	// arrayLength takes a pointer to a runtime-sized array but only reads
	// the buffer binding's size, not its contents.
	register(&Builtin{Name: "arrayLength", Kind: BuiltinArray, Access: NoAccess})
}

func registerNumeric() {
	registerAll(BuiltinNumeric,
		"sin", "cos", "tan", "asin", "acos", "atan", "sinh", "cosh", "tanh", "asinh", "acosh", "atanh",
		"atan2", "exp", "exp2", "log", "log2", "pow", "sqrt", "inverseSqrt",
		"abs", "sign", "floor", "ceil", "round", "trunc", "fract", "min", "max", "clamp", "saturate",
		"mix", "step", "smoothstep", "fma", "dot", "cross", "length", "distance", "normalize",
		"reflect", "refract", "faceForward",
		"countOneBits", "countLeadingZeros", "countTrailingZeros", "reverseBits",
		"firstLeadingBit", "firstTrailingBit", "extractBits", "insertBits",
		"transpose", "determinant", "ldexp", "frexp", "modf", "quantizeToF16",
		"degrees", "radians", "dot4I8Packed", "dot4U8Packed",
	)
}

func registerDerivative() {
	registerAll(BuiltinDerivative,
		"dpdx", "dpdy", "fwidth", "dpdxCoarse", "dpdyCoarse", "fwidthCoarse", "dpdxFine", "dpdyFine", "fwidthFine",
	)
}

func registerTexture() {
	registerAll(BuiltinTexture,
		"textureSample", "textureSampleBias", "textureSampleCompare", "textureSampleCompareLevel",
		"textureSampleLevel", "textureSampleGrad", "textureSampleBaseClampToEdge",
		"textureLoad", "textureStore", "textureDimensions", "textureNumLayers", "textureNumLevels",
		"textureNumSamples", "textureGather", "textureGatherCompare",
	)
}

func registerPacking() {
	registerAll(BuiltinPacking,
		"pack4x8snorm", "pack4x8unorm", "pack2x16snorm", "pack2x16unorm", "pack2x16float",
		"pack4xI8", "pack4xU8", "pack4xI8Clamp", "pack4xU8Clamp",
		"unpack4x8snorm", "unpack4x8unorm", "unpack2x16snorm", "unpack2x16unorm", "unpack2x16float",
		"unpack4xI8", "unpack4xU8",
	)
}

// ----------------------------------------------------------------------------
// Pointer-taking builtins
// ----------------------------------------------------------------------------

func registerAtomic() {
	register(&Builtin{Name: "atomicLoad", Kind: BuiltinAtomic, Access: Read})
	for _, name := range []string{
		"atomicStore", "atomicAdd", "atomicSub", "atomicMax", "atomicMin",
		"atomicAnd", "atomicOr", "atomicXor", "atomicExchange", "atomicCompareExchangeWeak",
	} {
		register(&Builtin{Name: name, Kind: BuiltinAtomic, Access: Write})
	}
}

func registerSynchronization() {
	registerAll(BuiltinSynchronization, "workgroupBarrier", "storageBarrier", "textureBarrier")
	register(&Builtin{Name: "workgroupUniformLoad", Kind: BuiltinSynchronization, Access: Read})
}

func registerSubgroup() {
	for _, name := range []string{
		"subgroupBallot", "subgroupBroadcast", "subgroupBroadcastFirst",
		"subgroupShuffle", "subgroupShuffleDown", "subgroupShuffleUp", "subgroupShuffleXor",
		"subgroupAdd", "subgroupMul", "subgroupAnd", "subgroupOr", "subgroupXor",
		"subgroupMin", "subgroupMax",
		"subgroupInclusiveAdd", "subgroupInclusiveMul", "subgroupExclusiveAdd", "subgroupExclusiveMul",
		"subgroupAll", "subgroupAny", "subgroupElect",
		"quadBroadcast", "quadSwapX", "quadSwapY", "quadSwapDiagonal",
	} {
		register(&Builtin{Name: name, Kind: BuiltinSubgroup, Extension: extension.Subgroups})
	}
}

func registerSubgroupMatrix() {
	ext := extension.ChromiumExperimentalSubgroupMatrix
	register(&Builtin{Name: "subgroupMatrixLoad", Kind: BuiltinSubgroupMatrix, Access: Read, Extension: ext})
	register(&Builtin{Name: "subgroupMatrixStore", Kind: BuiltinSubgroupMatrix, Access: Write, Extension: ext})
	register(&Builtin{Name: "subgroupMatrixMultiply", Kind: BuiltinSubgroupMatrix, Extension: ext})
	register(&Builtin{Name: "subgroupMatrixMultiplyAccumulate", Kind: BuiltinSubgroupMatrix, Extension: ext})
}
