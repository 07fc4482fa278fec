package adapter

import (
	"fmt"
	"strconv"

	"github.com/luma/lumen/protocol"
)

// seq consumes one aggregate header of multiplicity 1 followed by scalar
// children appended through elem.
type seq struct {
	headerSeen bool
	reserve    func(k int)
	elem       func(t protocol.Type, data []byte) error
}

func (s *seq) OnSimple(t protocol.Type, data []byte) error {
	if err := serverError(t, data); err != nil {
		return err
	}
	if t == protocol.TypeNull && !s.headerSeen {
		return ErrNull
	}
	if !s.headerSeen {
		return fmt.Errorf("%w: got %q", ErrExpectsAggregate, t)
	}
	return s.elem(t, data)
}

func (s *seq) OnAggregate(t protocol.Type, count int) error {
	if s.headerSeen {
		return fmt.Errorf("%w: nested %q", ErrExpectsSimpleType, t)
	}
	if t.Multiplicity() != 1 {
		return fmt.Errorf("%w: got %q", ErrExpectsSetAggregate, t)
	}
	s.headerSeen = true
	if count > 0 && s.reserve != nil {
		s.reserve(count)
	}
	return nil
}

func (s *seq) OnEnd() error { return nil }

// Strings returns an adapter for an ordered sequence of strings.
func Strings(dst *[]string) protocol.Adapter {
	*dst = (*dst)[:0]
	return &seq{
		reserve: func(k int) {
			if cap(*dst) < k {
				*dst = make([]string, 0, k)
			}
		},
		elem: func(t protocol.Type, data []byte) error {
			*dst = append(*dst, string(stripVerbatim(t, data)))
			return nil
		},
	}
}

// Ints returns an adapter for an ordered sequence of integers.
func Ints(dst *[]int) protocol.Adapter {
	*dst = (*dst)[:0]
	return &seq{
		reserve: func(k int) {
			if cap(*dst) < k {
				*dst = make([]int, 0, k)
			}
		},
		elem: func(t protocol.Type, data []byte) error {
			n, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidNumber, data)
			}
			*dst = append(*dst, n)
			return nil
		},
	}
}

// StringSet returns an adapter that inserts elements into dst,
// de-duplicating on the way in.
func StringSet(dst *map[string]struct{}) protocol.Adapter {
	if *dst == nil {
		*dst = make(map[string]struct{})
	}
	return &seq{
		elem: func(t protocol.Type, data []byte) error {
			(*dst)[string(stripVerbatim(t, data))] = struct{}{}
			return nil
		},
	}
}

// kv consumes one map-like aggregate header followed by alternating
// key/value scalars.
type kv struct {
	headerSeen bool
	key        string
	haveKey    bool
	assign     func(key string, t protocol.Type, data []byte) error
}

func (m *kv) OnSimple(t protocol.Type, data []byte) error {
	if err := serverError(t, data); err != nil {
		return err
	}
	if t == protocol.TypeNull && !m.headerSeen {
		return ErrNull
	}
	if !m.headerSeen {
		return fmt.Errorf("%w: got %q", ErrExpectsAggregate, t)
	}
	if !m.haveKey {
		m.key = string(stripVerbatim(t, data))
		m.haveKey = true
		return nil
	}
	m.haveKey = false
	return m.assign(m.key, t, data)
}

func (m *kv) OnAggregate(t protocol.Type, count int) error {
	if m.headerSeen {
		return fmt.Errorf("%w: nested %q", ErrExpectsSimpleType, t)
	}
	if t.Multiplicity() != 2 {
		return fmt.Errorf("%w: got %q", ErrExpectsMapAggregate, t)
	}
	m.headerSeen = true
	return nil
}

func (m *kv) OnEnd() error { return nil }

// StringMap returns an adapter for a string to string mapping.
func StringMap(dst *map[string]string) protocol.Adapter {
	if *dst == nil {
		*dst = make(map[string]string)
	}
	return &kv{
		assign: func(key string, t protocol.Type, data []byte) error {
			(*dst)[key] = string(stripVerbatim(t, data))
			return nil
		},
	}
}

// IntMap returns an adapter for a string to integer mapping.
func IntMap(dst *map[string]int) protocol.Adapter {
	if *dst == nil {
		*dst = make(map[string]int)
	}
	return &kv{
		assign: func(key string, t protocol.Type, data []byte) error {
			n, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidNumber, data)
			}
			(*dst)[key] = n
			return nil
		},
	}
}
