package valueobjects

import "strings"

// ElementType is the Graph Service element type bitmask
type ElementType uint32

// Element classes
const (
	TypeNode        ElementType = 0x1
	TypeLink        ElementType = 0x2
	TypeEdgeUCommon ElementType = 0x4
	TypeEdgeDCommon ElementType = 0x8
	TypeEdgeAccess  ElementType = 0x10
)

// Constancy
const (
	TypeConst ElementType = 0x20
	TypeVar   ElementType = 0x40
)

// Access edge positivity and permanency
const (
	TypeEdgePos  ElementType = 0x80
	TypeEdgeNeg  ElementType = 0x100
	TypeEdgeFuz  ElementType = 0x200
	TypeEdgeTemp ElementType = 0x400
	TypeEdgePerm ElementType = 0x800
)

// Node structure subtypes. They share bits with the edge flags and are only
// meaningful together with TypeNode.
const (
	TypeNodeTuple    ElementType = 0x80
	TypeNodeStruct   ElementType = 0x100
	TypeNodeRole     ElementType = 0x200
	TypeNodeNoRole   ElementType = 0x400
	TypeNodeClass    ElementType = 0x800
	TypeNodeAbstract ElementType = 0x1000
	TypeNodeMaterial ElementType = 0x2000
)

// Masks
const (
	TypeElementMask   = TypeNode | TypeLink | TypeEdgeUCommon | TypeEdgeDCommon | TypeEdgeAccess
	TypeEdgeMask      = TypeEdgeUCommon | TypeEdgeDCommon | TypeEdgeAccess
	TypeConstancyMask = TypeConst | TypeVar
)

// Common combinations
const (
	TypeUnknown ElementType = 0

	TypeNodeConst       = TypeNode | TypeConst
	TypeNodeVar         = TypeNode | TypeVar
	TypeNodeConstStruct = TypeNode | TypeConst | TypeNodeStruct
	TypeNodeVarStruct   = TypeNode | TypeVar | TypeNodeStruct
	TypeNodeConstClass  = TypeNode | TypeConst | TypeNodeClass
	TypeNodeConstRole   = TypeNode | TypeConst | TypeNodeRole
	TypeNodeConstNoRole = TypeNode | TypeConst | TypeNodeNoRole

	TypeLinkConst = TypeLink | TypeConst
	TypeLinkVar   = TypeLink | TypeVar

	TypeEdgeDCommonConst = TypeEdgeDCommon | TypeConst
	TypeEdgeDCommonVar   = TypeEdgeDCommon | TypeVar

	TypeEdgeAccessConstPosPerm = TypeEdgeAccess | TypeConst | TypeEdgePos | TypeEdgePerm
	TypeEdgeAccessVarPosPerm   = TypeEdgeAccess | TypeVar | TypeEdgePos | TypeEdgePerm
)

// IsNode reports whether the type denotes a node
func (t ElementType) IsNode() bool { return t&TypeNode != 0 }

// IsLink reports whether the type denotes a link
func (t ElementType) IsLink() bool { return t&TypeLink != 0 }

// IsEdge reports whether the type denotes any kind of edge
func (t ElementType) IsEdge() bool { return t&TypeEdgeMask != 0 }

// IsConst reports whether the type is constant
func (t ElementType) IsConst() bool { return t&TypeConst != 0 }

// IsVar reports whether the type is variable
func (t ElementType) IsVar() bool { return t&TypeVar != 0 }

// IsUnknown reports whether no element class bit is set
func (t ElementType) IsUnknown() bool { return t&TypeElementMask == 0 }

// Value returns the wire representation
func (t ElementType) Value() uint32 { return uint32(t) }

// String renders a short human form such as "edge/access/const/pos/perm"
func (t ElementType) String() string {
	if t.IsUnknown() {
		return "unknown"
	}

	var parts []string
	switch {
	case t.IsNode():
		parts = append(parts, "node")
	case t.IsLink():
		parts = append(parts, "link")
	case t&TypeEdgeAccess != 0:
		parts = append(parts, "edge", "access")
	case t&TypeEdgeDCommon != 0:
		parts = append(parts, "edge", "dcommon")
	case t&TypeEdgeUCommon != 0:
		parts = append(parts, "edge", "ucommon")
	}

	if t.IsConst() {
		parts = append(parts, "const")
	} else if t.IsVar() {
		parts = append(parts, "var")
	}

	if t&TypeEdgeAccess != 0 {
		switch {
		case t&TypeEdgePos != 0:
			parts = append(parts, "pos")
		case t&TypeEdgeNeg != 0:
			parts = append(parts, "neg")
		case t&TypeEdgeFuz != 0:
			parts = append(parts, "fuz")
		}
		switch {
		case t&TypeEdgePerm != 0:
			parts = append(parts, "perm")
		case t&TypeEdgeTemp != 0:
			parts = append(parts, "temp")
		}
	}

	return strings.Join(parts, "/")
}
