package adapter

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/luma/lumen/protocol"
)

// simple is the shared shell of the scalar adapters. It rejects
// aggregates, surfaces server errors and nulls, and hands everything else
// to the conversion function.
type simple struct {
	convert func(t protocol.Type, data []byte) error
}

func (s simple) OnSimple(t protocol.Type, data []byte) error {
	if err := serverError(t, data); err != nil {
		return err
	}
	if t == protocol.TypeNull {
		return ErrNull
	}
	return s.convert(t, data)
}

func (s simple) OnAggregate(t protocol.Type, count int) error {
	return fmt.Errorf("%w: got %q", ErrExpectsSimpleType, t)
}

func (s simple) OnEnd() error { return nil }

// String returns an adapter that stores the response text into dst.
// Verbatim strings are stored without their three character format
// prefix.
func String(dst *string) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		*dst = string(stripVerbatim(t, data))
		return nil
	}}
}

// Bytes returns an adapter that copies the response payload into dst.
func Bytes(dst *[]byte) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		*dst = append((*dst)[:0], stripVerbatim(t, data)...)
		return nil
	}}
}

// Int returns an adapter that parses the response as a decimal integer.
func Int(dst *int) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		n, err := strconv.ParseInt(string(data), 10, 0)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidNumber, data)
		}
		*dst = int(n)
		return nil
	}}
}

// Int64 is Int for 64-bit destinations.
func Int64(dst *int64) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidNumber, data)
		}
		*dst = n
		return nil
	}}
}

// Float returns an adapter that parses the response as a double. The
// RESP3 spellings inf and -inf are accepted.
func Float(dst *float64) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDouble, data)
		}
		*dst = f
		return nil
	}}
}

// Bool returns an adapter that parses the single character booleans t/f.
func Bool(dst *bool) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		if len(data) != 1 || (data[0] != 't' && data[0] != 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidBoolean, data)
		}
		*dst = data[0] == 't'
		return nil
	}}
}

// BigNumber returns an adapter that parses the response text into dst.
func BigNumber(dst *big.Int) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		if _, ok := dst.SetString(string(data), 10); !ok {
			return fmt.Errorf("%w: %q", ErrInvalidBigNumber, data)
		}
		return nil
	}}
}

// Bulk returns an adapter that hands the raw response payload to u.
func Bulk(u BulkUnmarshaler) protocol.Adapter {
	return simple{convert: func(t protocol.Type, data []byte) error {
		return u.UnmarshalBulk(stripVerbatim(t, data))
	}}
}

// Verbatim strings carry a "txt:" or "mkd:" style prefix before the
// payload proper.
func stripVerbatim(t protocol.Type, data []byte) []byte {
	if t == protocol.TypeVerbatimString && len(data) >= 4 && data[3] == ':' {
		return data[4:]
	}
	return data
}
