package adapter

import (
	"fmt"
	"strconv"

	"github.com/luma/lumen/protocol"
)

// optional forwards every event to the wrapped adapter unless the value
// is null, in which case the null is swallowed and present is left false.
type optional struct {
	inner   protocol.Adapter
	present *bool
	nulled  bool
}

// Optional wraps inner so a null response is recorded as absence instead
// of an error. present is set to true as soon as a non-null frame
// arrives.
func Optional(inner protocol.Adapter, present *bool) protocol.Adapter {
	*present = false
	return &optional{inner: inner, present: present}
}

func (o *optional) OnSimple(t protocol.Type, data []byte) error {
	if t == protocol.TypeNull && !*o.present {
		o.nulled = true
		return nil
	}
	*o.present = true
	return o.inner.OnSimple(t, data)
}

func (o *optional) OnAggregate(t protocol.Type, count int) error {
	*o.present = true
	return o.inner.OnAggregate(t, count)
}

func (o *optional) OnEnd() error {
	if o.nulled {
		return nil
	}
	return o.inner.OnEnd()
}

// nullable is the scalar shell shared by the pointer targets of Adapt. A
// null clears the destination, anything else allocates through convert.
type nullable struct {
	onNull  func()
	convert func(t protocol.Type, data []byte) error
}

func (n nullable) OnSimple(t protocol.Type, data []byte) error {
	if err := serverError(t, data); err != nil {
		return err
	}
	if t == protocol.TypeNull {
		n.onNull()
		return nil
	}
	return n.convert(t, data)
}

func (n nullable) OnAggregate(t protocol.Type, count int) error {
	return fmt.Errorf("%w: got %q", ErrExpectsSimpleType, t)
}

func (n nullable) OnEnd() error { return nil }

func optionalString(dst **string) protocol.Adapter {
	return nullable{
		onNull: func() { *dst = nil },
		convert: func(t protocol.Type, data []byte) error {
			s := string(stripVerbatim(t, data))
			*dst = &s
			return nil
		},
	}
}

func optionalInt(dst **int) protocol.Adapter {
	return nullable{
		onNull: func() { *dst = nil },
		convert: func(t protocol.Type, data []byte) error {
			v, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidNumber, data)
			}
			*dst = &v
			return nil
		},
	}
}

func optionalInt64(dst **int64) protocol.Adapter {
	return nullable{
		onNull: func() { *dst = nil },
		convert: func(t protocol.Type, data []byte) error {
			v, err := strconv.ParseInt(string(data), 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidNumber, data)
			}
			*dst = &v
			return nil
		},
	}
}

func optionalFloat(dst **float64) protocol.Adapter {
	return nullable{
		onNull: func() { *dst = nil },
		convert: func(t protocol.Type, data []byte) error {
			v, err := strconv.ParseFloat(string(data), 64)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidDouble, data)
			}
			*dst = &v
			return nil
		},
	}
}

func optionalBool(dst **bool) protocol.Adapter {
	return nullable{
		onNull: func() { *dst = nil },
		convert: func(t protocol.Type, data []byte) error {
			if len(data) != 1 || (data[0] != 't' && data[0] != 'f') {
				return fmt.Errorf("%w: %q", ErrInvalidBoolean, data)
			}
			v := data[0] == 't'
			*dst = &v
			return nil
		},
	}
}
