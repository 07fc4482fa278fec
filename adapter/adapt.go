package adapter

import (
	"fmt"
	"math/big"

	"github.com/luma/lumen/protocol"
)

// Adapt inspects the shape of dst and returns the matching adapter.
//
//	scalar pointers        -> simple adapters
//	pointer-to-pointer     -> optional scalars, nil on a null response
//	slice pointers         -> ordered sequence adapters
//	map pointers           -> mapping / set adapters
//	*[]protocol.Node       -> generic response tree
//	BulkUnmarshaler        -> raw bulk payload
//	protocol.Adapter       -> used as-is
//	nil                    -> Ignore()
//
// An unsupported destination yields an adapter that fails the response
// with ErrUnexpected, keeping the error on the completion path rather
// than panicking in library code.
func Adapt(dst interface{}) protocol.Adapter {
	switch v := dst.(type) {
	case nil:
		return Ignore()
	case protocol.Adapter:
		return v
	case *string:
		return String(v)
	case *[]byte:
		return Bytes(v)
	case *int:
		return Int(v)
	case *int64:
		return Int64(v)
	case *float64:
		return Float(v)
	case *bool:
		return Bool(v)
	case *big.Int:
		return BigNumber(v)
	case **string:
		return optionalString(v)
	case **int:
		return optionalInt(v)
	case **int64:
		return optionalInt64(v)
	case **float64:
		return optionalFloat(v)
	case **bool:
		return optionalBool(v)
	case *[]string:
		return Strings(v)
	case *[]int:
		return Ints(v)
	case *map[string]string:
		return StringMap(v)
	case *map[string]int:
		return IntMap(v)
	case *map[string]struct{}:
		return StringSet(v)
	case *[]protocol.Node:
		return Nodes(v)
	case BulkUnmarshaler:
		return Bulk(v)
	default:
		return failed{err: fmt.Errorf("%w: cannot adapt %T", ErrUnexpected, dst)}
	}
}
