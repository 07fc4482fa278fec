package adapter_test

import (
	"errors"
	"math/big"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/lumen/adapter"
	"github.com/luma/lumen/protocol"
)

// decode runs one complete wire image through a parser into sink and
// returns the adapter's verdict.
func decode(sink protocol.Adapter, wire string) error {
	p := protocol.NewParser(sink)
	n, err := p.Advance([]byte(wire))
	Expect(err).To(Succeed())
	Expect(n).To(Equal(len(wire)))
	Expect(p.Done()).To(BeTrue())
	return p.Err()
}

var _ = Describe("adapter", func() {
	Describe("scalars", func() {
		It("stores a simple string", func() {
			var s string
			Expect(decode(adapter.String(&s), "+OK\r\n")).To(Succeed())
			Expect(s).To(Equal("OK"))
		})

		It("stores a blob string", func() {
			var s string
			Expect(decode(adapter.String(&s), "$5\r\nhello\r\n")).To(Succeed())
			Expect(s).To(Equal("hello"))
		})

		It("strips the format prefix off a verbatim string", func() {
			var s string
			Expect(decode(adapter.String(&s), "=15\r\ntxt:Some string\r\n")).To(Succeed())
			Expect(s).To(Equal("Some string"))
		})

		It("copies a payload into a byte slice", func() {
			var b []byte
			Expect(decode(adapter.Bytes(&b), "$5\r\nhello\r\n")).To(Succeed())
			Expect(b).To(Equal([]byte("hello")))
		})

		It("parses integers", func() {
			var n int
			Expect(decode(adapter.Int(&n), ":42\r\n")).To(Succeed())
			Expect(n).To(Equal(42))

			err := decode(adapter.Int(&n), "+abc\r\n")
			Expect(errors.Is(err, adapter.ErrInvalidNumber)).To(BeTrue())
		})

		It("parses doubles, including the inf spellings", func() {
			var f float64
			Expect(decode(adapter.Float(&f), ",1.25\r\n")).To(Succeed())
			Expect(f).To(Equal(1.25))

			Expect(decode(adapter.Float(&f), ",inf\r\n")).To(Succeed())
			Expect(f).To(BeNumerically(">", 1e300))
		})

		It("parses booleans and rejects anything but t or f", func() {
			var b bool
			Expect(decode(adapter.Bool(&b), "#t\r\n")).To(Succeed())
			Expect(b).To(BeTrue())

			err := decode(adapter.Bool(&b), "#x\r\n")
			Expect(errors.Is(err, adapter.ErrInvalidBoolean)).To(BeTrue())
		})

		It("parses big numbers", func() {
			n := new(big.Int)
			Expect(decode(adapter.BigNumber(n), "(3492890328409238509324850943850943825024385\r\n")).To(Succeed())
			Expect(n.String()).To(Equal("3492890328409238509324850943850943825024385"))
		})

		It("fails a null response with ErrNull", func() {
			var s string
			err := decode(adapter.String(&s), "_\r\n")
			Expect(errors.Is(err, adapter.ErrNull)).To(BeTrue())
		})

		It("rejects an aggregate response", func() {
			var s string
			err := decode(adapter.String(&s), "*1\r\n+x\r\n")
			Expect(errors.Is(err, adapter.ErrExpectsSimpleType)).To(BeTrue())
		})
	})

	Describe("server errors", func() {
		It("surfaces a simple error with its diagnostic", func() {
			var s string
			err := decode(adapter.String(&s), "-ERR unknown command\r\n")
			Expect(errors.Is(err, adapter.ErrSimpleError)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("unknown command"))
		})

		It("surfaces a blob error", func() {
			var s string
			err := decode(adapter.String(&s), "!9\r\nERR wrong\r\n")
			Expect(errors.Is(err, adapter.ErrBlobError)).To(BeTrue())
		})
	})

	Describe("sequences", func() {
		It("collects an array of strings", func() {
			var out []string
			Expect(decode(adapter.Strings(&out), "*2\r\n$1\r\na\r\n$1\r\nb\r\n")).To(Succeed())
			Expect(out).To(Equal([]string{"a", "b"}))
		})

		It("collects a set into a slice", func() {
			var out []string
			Expect(decode(adapter.Strings(&out), "~2\r\n+a\r\n+b\r\n")).To(Succeed())
			Expect(out).To(Equal([]string{"a", "b"}))
		})

		It("collects a streamed array", func() {
			var out []int
			Expect(decode(adapter.Ints(&out), "*?\r\n:1\r\n:2\r\n:3\r\n.\r\n")).To(Succeed())
			Expect(out).To(Equal([]int{1, 2, 3}))
		})

		It("leaves an empty aggregate as an empty slice", func() {
			out := []string{"stale"}
			Expect(decode(adapter.Strings(&out), "*0\r\n")).To(Succeed())
			Expect(out).To(BeEmpty())
		})

		It("rejects a map-like aggregate", func() {
			var out []string
			err := decode(adapter.Strings(&out), "%1\r\n+k\r\n+v\r\n")
			Expect(errors.Is(err, adapter.ErrExpectsSetAggregate)).To(BeTrue())
		})

		It("rejects nested aggregates", func() {
			var out []string
			err := decode(adapter.Strings(&out), "*1\r\n*1\r\n+x\r\n")
			Expect(errors.Is(err, adapter.ErrExpectsSimpleType)).To(BeTrue())
		})

		It("fails a null response with ErrNull", func() {
			var out []string
			err := decode(adapter.Strings(&out), "_\r\n")
			Expect(errors.Is(err, adapter.ErrNull)).To(BeTrue())
		})
	})

	Describe("mappings", func() {
		It("collects a map of strings", func() {
			var out map[string]string
			Expect(decode(adapter.StringMap(&out), "%2\r\n+k1\r\n+v1\r\n+k2\r\n+v2\r\n")).To(Succeed())
			Expect(out).To(Equal(map[string]string{"k1": "v1", "k2": "v2"}))
		})

		It("collects a map of integers", func() {
			var out map[string]int
			Expect(decode(adapter.IntMap(&out), "%1\r\n+hits\r\n:7\r\n")).To(Succeed())
			Expect(out).To(Equal(map[string]int{"hits": 7}))
		})

		It("rejects a single-multiplicity aggregate", func() {
			var out map[string]string
			err := decode(adapter.StringMap(&out), "*2\r\n+a\r\n+b\r\n")
			Expect(errors.Is(err, adapter.ErrExpectsMapAggregate)).To(BeTrue())
		})
	})

	Describe("sets", func() {
		It("deduplicates on insert", func() {
			var out map[string]struct{}
			Expect(decode(adapter.StringSet(&out), "~3\r\n+a\r\n+b\r\n+a\r\n")).To(Succeed())
			Expect(out).To(HaveLen(2))
			Expect(out).To(HaveKey("a"))
			Expect(out).To(HaveKey("b"))
		})
	})

	Describe("Optional()", func() {
		It("records absence on a null without failing", func() {
			var s string
			var present bool
			Expect(decode(adapter.Optional(adapter.String(&s), &present), "_\r\n")).To(Succeed())
			Expect(present).To(BeFalse())
		})

		It("forwards non-null responses and records presence", func() {
			var s string
			var present bool
			Expect(decode(adapter.Optional(adapter.String(&s), &present), "+OK\r\n")).To(Succeed())
			Expect(present).To(BeTrue())
			Expect(s).To(Equal("OK"))
		})
	})

	Describe("Nodes()", func() {
		It("records the response tree in pre-order with depths", func() {
			var nodes []protocol.Node
			Expect(decode(adapter.Nodes(&nodes), "%1\r\n+key\r\n*2\r\n:1\r\n:2\r\n")).To(Succeed())

			Expect(nodes).To(HaveLen(5))

			Expect(nodes[0].Type).To(Equal(protocol.TypeMap))
			Expect(nodes[0].Depth).To(BeZero())
			Expect(nodes[0].Count).To(Equal(1))

			Expect(nodes[1].Type).To(Equal(protocol.TypeSimpleString))
			Expect(nodes[1].Depth).To(Equal(1))
			Expect(nodes[1].Multiplicity).To(Equal(2))
			Expect(string(nodes[1].Value)).To(Equal("key"))

			Expect(nodes[2].Type).To(Equal(protocol.TypeArray))
			Expect(nodes[2].Depth).To(Equal(1))

			Expect(nodes[3].Depth).To(Equal(2))
			Expect(nodes[4].Depth).To(Equal(2))
		})

		It("accepts server errors as data", func() {
			var nodes []protocol.Node
			Expect(decode(adapter.Nodes(&nodes), "-ERR oops\r\n")).To(Succeed())
			Expect(nodes).To(HaveLen(1))
			Expect(nodes[0].Type).To(Equal(protocol.TypeSimpleError))
		})

		It("replays a recorded tree into another adapter", func() {
			var nodes []protocol.Node
			Expect(decode(adapter.Nodes(&nodes), "*2\r\n$1\r\na\r\n$1\r\nb\r\n")).To(Succeed())

			var out []string
			Expect(protocol.ReplayNodes(nodes, adapter.Strings(&out))).To(Succeed())
			Expect(out).To(Equal([]string{"a", "b"}))
		})
	})

	Describe("Tuple()", func() {
		It("routes successive responses to successive adapters", func() {
			var s string
			var n int
			tup := adapter.Tuple(adapter.String(&s), adapter.Int(&n))

			Expect(decode(tup, "+OK\r\n")).To(Succeed())
			Expect(decode(tup, ":7\r\n")).To(Succeed())

			Expect(s).To(Equal("OK"))
			Expect(n).To(Equal(7))
		})

		It("fails responses beyond its width", func() {
			tup := adapter.Tuple(adapter.Ignore())
			Expect(decode(tup, "+OK\r\n")).To(Succeed())

			err := decode(tup, "+again\r\n")
			Expect(errors.Is(err, adapter.ErrIncompatibleSize)).To(BeTrue())
		})
	})
})
