package protocol

// Type is an enum of the RESP3 frame types. The values of the constants
// are the single-byte tags used on the wire.
type Type byte

const (
	// TypeInvalid is used to denote unknown tag bytes.
	TypeInvalid Type = 0

	// Simple types.
	TypeSimpleString   Type = '+'
	TypeSimpleError    Type = '-'
	TypeNumber         Type = ':'
	TypeBlobString     Type = '$'
	TypeBlobError      Type = '!'
	TypeVerbatimString Type = '='
	TypeBigNumber      Type = '('
	TypeBoolean        Type = '#'
	TypeDouble         Type = ','
	TypeNull           Type = '_'

	// Aggregate types.
	TypeArray     Type = '*'
	TypePush      Type = '>'
	TypeSet       Type = '~'
	TypeMap       Type = '%'
	TypeAttribute Type = '|'

	// Streaming support types.
	TypeStreamedStringPart Type = ';'
	TypeStreamEnd          Type = '.'
)

var types = [256]Type{
	TypeSimpleString:       TypeSimpleString,
	TypeSimpleError:        TypeSimpleError,
	TypeNumber:             TypeNumber,
	TypeBlobString:         TypeBlobString,
	TypeBlobError:          TypeBlobError,
	TypeVerbatimString:     TypeVerbatimString,
	TypeBigNumber:          TypeBigNumber,
	TypeBoolean:            TypeBoolean,
	TypeDouble:             TypeDouble,
	TypeNull:               TypeNull,
	TypeArray:              TypeArray,
	TypePush:               TypePush,
	TypeSet:                TypeSet,
	TypeMap:                TypeMap,
	TypeAttribute:          TypeAttribute,
	TypeStreamedStringPart: TypeStreamedStringPart,
	TypeStreamEnd:          TypeStreamEnd,
}

// ToType maps a wire tag byte to its Type. Unknown bytes map to
// TypeInvalid.
func ToType(b byte) Type {
	return types[b]
}

func (t Type) String() string {
	return string(t)
}

// IsAggregate returns true for types whose header declares a count of
// child frames.
func (t Type) IsAggregate() bool {
	switch t {
	case TypeArray, TypePush, TypeSet, TypeMap, TypeAttribute:
		return true
	default:
		return false
	}
}

// IsBlob returns true for the length-prefixed binary-safe types.
func (t Type) IsBlob() bool {
	switch t {
	case TypeBlobString, TypeBlobError, TypeVerbatimString:
		return true
	default:
		return false
	}
}

// Multiplicity returns how many child frames one logical element of an
// aggregate of this type occupies. Maps and attributes carry key/value
// pairs, every other aggregate carries single elements.
func (t Type) Multiplicity() int {
	switch t {
	case TypeMap, TypeAttribute:
		return 2
	default:
		return 1
	}
}
