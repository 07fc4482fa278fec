package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrUnsupportedArgType = errors.New("unsupported request argument type")

// BulkMarshaler is implemented by values that can serialise themselves
// into the payload of a single bulk string, e.g. serde.Doc.
type BulkMarshaler interface {
	MarshalBulk() ([]byte, error)
}

// AppendHeader appends an array header `*<n>\r\n` to b.
func AppendHeader(b []byte, n int) []byte {
	b = append(b, byte(TypeArray))
	b = strconv.AppendInt(b, int64(n), 10)
	return append(b, '\r', '\n')
}

// AppendBulk appends a blob string frame `$<len>\r\n<data>\r\n` to b.
func AppendBulk(b []byte, data []byte) []byte {
	b = append(b, byte(TypeBlobString))
	b = strconv.AppendInt(b, int64(len(data)), 10)
	b = append(b, '\r', '\n')
	b = append(b, data...)
	return append(b, '\r', '\n')
}

// AppendBulkString is AppendBulk for string payloads.
func AppendBulkString(b []byte, s string) []byte {
	b = append(b, byte(TypeBlobString))
	b = strconv.AppendInt(b, int64(len(s)), 10)
	b = append(b, '\r', '\n')
	b = append(b, s...)
	return append(b, '\r', '\n')
}

func appendArg(b []byte, arg interface{}) ([]byte, error) {
	switch v := arg.(type) {
	case string:
		return AppendBulkString(b, v), nil
	case []byte:
		return AppendBulk(b, v), nil
	case Command:
		return AppendBulkString(b, string(v)), nil
	case int:
		return AppendBulkString(b, strconv.FormatInt(int64(v), 10)), nil
	case int8:
		return AppendBulkString(b, strconv.FormatInt(int64(v), 10)), nil
	case int16:
		return AppendBulkString(b, strconv.FormatInt(int64(v), 10)), nil
	case int32:
		return AppendBulkString(b, strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return AppendBulkString(b, strconv.FormatInt(v, 10)), nil
	case uint:
		return AppendBulkString(b, strconv.FormatUint(uint64(v), 10)), nil
	case uint8:
		return AppendBulkString(b, strconv.FormatUint(uint64(v), 10)), nil
	case uint16:
		return AppendBulkString(b, strconv.FormatUint(uint64(v), 10)), nil
	case uint32:
		return AppendBulkString(b, strconv.FormatUint(uint64(v), 10)), nil
	case uint64:
		return AppendBulkString(b, strconv.FormatUint(v, 10)), nil
	case float32:
		return AppendBulkString(b, strconv.FormatFloat(float64(v), 'g', -1, 32)), nil
	case float64:
		return AppendBulkString(b, strconv.FormatFloat(v, 'g', -1, 64)), nil
	case BulkMarshaler:
		data, err := v.MarshalBulk()
		if err != nil {
			return nil, err
		}
		return AppendBulk(b, data), nil
	case fmt.Stringer:
		return AppendBulkString(b, v.String()), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedArgType, arg)
	}
}
