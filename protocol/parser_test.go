package protocol_test

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/lumen/protocol"
)

type event struct {
	kind  string
	typ   protocol.Type
	data  string
	count int
}

// recorder is a minimal sink that remembers every event it receives. When
// fail is set the first data event returns it, mimicking an adapter that
// rejects the response shape.
type recorder struct {
	events []event
	fail   error
}

func (r *recorder) OnSimple(t protocol.Type, data []byte) error {
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, event{kind: "simple", typ: t, data: string(data)})
	return nil
}

func (r *recorder) OnAggregate(t protocol.Type, count int) error {
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, event{kind: "aggregate", typ: t, count: count})
	return nil
}

func (r *recorder) OnEnd() error {
	r.events = append(r.events, event{kind: "end"})
	return nil
}

// parse feeds the whole wire image at once and expects the value to
// complete exactly at its end.
func parse(sink protocol.Adapter, wire string) error {
	p := protocol.NewParser(sink)
	n, err := p.Advance([]byte(wire))
	if err != nil {
		return err
	}
	Expect(n).To(Equal(len(wire)))
	Expect(p.Done()).To(BeTrue())
	return nil
}

var _ = Describe("Parser", func() {
	Describe("simple types", func() {
		It("decodes a simple string", func() {
			rec := &recorder{}
			Expect(parse(rec, "+OK\r\n")).To(Succeed())
			Expect(rec.events).To(Equal([]event{
				{kind: "simple", typ: protocol.TypeSimpleString, data: "OK"},
				{kind: "end"},
			}))
		})

		It("decodes a number", func() {
			rec := &recorder{}
			Expect(parse(rec, ":1234\r\n")).To(Succeed())
			Expect(rec.events[0]).To(Equal(event{kind: "simple", typ: protocol.TypeNumber, data: "1234"}))
		})

		It("decodes null, boolean, double and big number", func() {
			for wire, want := range map[string]event{
				"_\r\n":     {kind: "simple", typ: protocol.TypeNull},
				"#t\r\n":    {kind: "simple", typ: protocol.TypeBoolean, data: "t"},
				",1.23\r\n": {kind: "simple", typ: protocol.TypeDouble, data: "1.23"},
				"(3492890328409238509324850943850943825024385\r\n": {
					kind: "simple",
					typ:  protocol.TypeBigNumber,
					data: "3492890328409238509324850943850943825024385",
				},
			} {
				rec := &recorder{}
				Expect(parse(rec, wire)).To(Succeed())
				Expect(rec.events[0]).To(Equal(want))
			}
		})

		It("decodes a simple error as data, not as a parse failure", func() {
			rec := &recorder{}
			Expect(parse(rec, "-ERR unknown command\r\n")).To(Succeed())
			Expect(rec.events[0]).To(Equal(event{
				kind: "simple", typ: protocol.TypeSimpleError, data: "ERR unknown command",
			}))
		})
	})

	Describe("blob types", func() {
		It("decodes a blob string", func() {
			rec := &recorder{}
			Expect(parse(rec, "$5\r\nhello\r\n")).To(Succeed())
			Expect(rec.events[0]).To(Equal(event{kind: "simple", typ: protocol.TypeBlobString, data: "hello"}))
		})

		It("decodes a zero length blob", func() {
			rec := &recorder{}
			Expect(parse(rec, "$0\r\n\r\n")).To(Succeed())
			Expect(rec.events[0]).To(Equal(event{kind: "simple", typ: protocol.TypeBlobString, data: ""}))
		})

		It("keeps CRLF bytes inside a blob payload intact", func() {
			rec := &recorder{}
			Expect(parse(rec, "$7\r\na\r\nb\r\nc\r\n")).To(Succeed())
			Expect(rec.events[0].data).To(Equal("a\r\nb\r\nc"))
		})

		It("maps the RESP2 null bulk onto null", func() {
			rec := &recorder{}
			Expect(parse(rec, "$-1\r\n")).To(Succeed())
			Expect(rec.events[0].typ).To(Equal(protocol.TypeNull))
		})

		It("decodes a verbatim string with its format prefix", func() {
			rec := &recorder{}
			Expect(parse(rec, "=15\r\ntxt:Some string\r\n")).To(Succeed())
			Expect(rec.events[0]).To(Equal(event{
				kind: "simple", typ: protocol.TypeVerbatimString, data: "txt:Some string",
			}))
		})

		It("rejects a blob whose payload is not CRLF terminated", func() {
			rec := &recorder{}
			p := protocol.NewParser(rec)
			_, err := p.Advance([]byte("$5\r\nhelloXX"))
			Expect(errors.Is(err, protocol.ErrUnexpectedEOL)).To(BeTrue())
		})

		It("decodes a streamed string chunk by chunk", func() {
			rec := &recorder{}
			Expect(parse(rec, "$?\r\n;4\r\nHell\r\n;1\r\no\r\n;0\r\n")).To(Succeed())
			Expect(rec.events).To(Equal([]event{
				{kind: "simple", typ: protocol.TypeStreamedStringPart, data: "Hell"},
				{kind: "simple", typ: protocol.TypeStreamedStringPart, data: "o"},
				{kind: "end"},
			}))
		})
	})

	Describe("aggregates", func() {
		It("decodes an array of blobs", func() {
			rec := &recorder{}
			Expect(parse(rec, "*2\r\n$1\r\na\r\n$1\r\nb\r\n")).To(Succeed())
			Expect(rec.events).To(Equal([]event{
				{kind: "aggregate", typ: protocol.TypeArray, count: 2},
				{kind: "simple", typ: protocol.TypeBlobString, data: "a"},
				{kind: "simple", typ: protocol.TypeBlobString, data: "b"},
				{kind: "end"},
			}))
		})

		It("completes an empty aggregate on its header alone", func() {
			rec := &recorder{}
			Expect(parse(rec, "*0\r\n")).To(Succeed())
			Expect(rec.events).To(Equal([]event{
				{kind: "aggregate", typ: protocol.TypeArray, count: 0},
				{kind: "end"},
			}))
		})

		It("counts map entries as two child frames each", func() {
			rec := &recorder{}
			Expect(parse(rec, "%1\r\n+key\r\n:1\r\n")).To(Succeed())
			Expect(rec.events).To(HaveLen(4))
			Expect(rec.events[0]).To(Equal(event{kind: "aggregate", typ: protocol.TypeMap, count: 1}))
		})

		It("maps the RESP2 null array onto null", func() {
			rec := &recorder{}
			Expect(parse(rec, "*-1\r\n")).To(Succeed())
			Expect(rec.events[0].typ).To(Equal(protocol.TypeNull))
		})

		It("decodes a streamed aggregate ended by the stream end frame", func() {
			rec := &recorder{}
			Expect(parse(rec, "*?\r\n:1\r\n:2\r\n.\r\n")).To(Succeed())
			Expect(rec.events).To(Equal([]event{
				{kind: "aggregate", typ: protocol.TypeArray, count: -1},
				{kind: "simple", typ: protocol.TypeNumber, data: "1"},
				{kind: "simple", typ: protocol.TypeNumber, data: "2"},
				{kind: "end"},
			}))
		})

		It("accepts nesting up to the depth limit", func() {
			wire := strings.Repeat("*1\r\n", protocol.MaxAggregateDepth) + ":1\r\n"
			Expect(parse(&recorder{}, wire)).To(Succeed())
		})

		It("rejects nesting beyond the depth limit", func() {
			wire := strings.Repeat("*1\r\n", protocol.MaxAggregateDepth+1) + ":1\r\n"
			p := protocol.NewParser(&recorder{})
			_, err := p.Advance([]byte(wire))
			Expect(errors.Is(err, protocol.ErrNestedAggregate)).To(BeTrue())
		})

		It("rejects a malformed count", func() {
			p := protocol.NewParser(&recorder{})
			_, err := p.Advance([]byte("*abc\r\n"))
			Expect(errors.Is(err, protocol.ErrInvalidHeader)).To(BeTrue())
		})

		It("rejects an unknown type tag", func() {
			p := protocol.NewParser(&recorder{})
			_, err := p.Advance([]byte("&3\r\n"))
			Expect(errors.Is(err, protocol.ErrUnexpectedType)).To(BeTrue())
		})

		It("rejects the highest tag byte without panicking", func() {
			p := protocol.NewParser(&recorder{})
			_, err := p.Advance([]byte{0xff, '\r', '\n'})
			Expect(errors.Is(err, protocol.ErrUnexpectedType)).To(BeTrue())
		})

		It("rejects a count too large to represent", func() {
			p := protocol.NewParser(&recorder{})
			_, err := p.Advance([]byte("*" + strings.Repeat("9", 30) + "\r\n"))
			Expect(errors.Is(err, protocol.ErrInvalidHeader)).To(BeTrue())
		})

		It("rejects a stream end outside a streamed aggregate", func() {
			p := protocol.NewParser(&recorder{})
			_, err := p.Advance([]byte(".\r\n"))
			Expect(errors.Is(err, protocol.ErrInvalidHeader)).To(BeTrue())
		})
	})

	Describe("incremental input", func() {
		It("reports zero consumed when the line is incomplete", func() {
			p := protocol.NewParser(&recorder{})
			n, err := p.Advance([]byte("+OK"))
			Expect(err).To(Succeed())
			Expect(n).To(BeZero())
			Expect(p.Done()).To(BeFalse())
		})

		It("converges to the same events when fed one byte at a time", func() {
			wire := "%1\r\n+key\r\n*2\r\n$5\r\nhello\r\n:42\r\n"

			whole := &recorder{}
			Expect(parse(whole, wire)).To(Succeed())

			bytewise := &recorder{}
			p := protocol.NewParser(bytewise)
			buf := []byte(nil)
			for i := 0; i < len(wire) && !p.Done(); i++ {
				buf = append(buf, wire[i])
				n, err := p.Advance(buf)
				Expect(err).To(Succeed())
				buf = buf[n:]
			}

			Expect(p.Done()).To(BeTrue())
			Expect(bytewise.events).To(Equal(whole.events))
		})

		It("stops at the end of the first top-level value", func() {
			rec := &recorder{}
			p := protocol.NewParser(rec)
			n, err := p.Advance([]byte("+first\r\n+second\r\n"))
			Expect(err).To(Succeed())
			Expect(n).To(Equal(len("+first\r\n")))
			Expect(p.Done()).To(BeTrue())
		})

		It("exposes the pending bulk length mid-payload", func() {
			p := protocol.NewParser(&recorder{})
			_, err := p.Advance([]byte("$1000\r\n"))
			Expect(err).To(Succeed())

			n, mid := p.BulkLength()
			Expect(mid).To(BeTrue())
			Expect(n).To(Equal(1000))
		})
	})

	Describe("adapter errors", func() {
		It("drains the rest of the value and reports the error via Err", func() {
			boom := errors.New("boom")
			rec := &recorder{fail: boom}

			p := protocol.NewParser(rec)
			wire := "*2\r\n$1\r\na\r\n$1\r\nb\r\n"
			n, err := p.Advance([]byte(wire))
			Expect(err).To(Succeed())
			Expect(n).To(Equal(len(wire)))
			Expect(p.Done()).To(BeTrue())
			Expect(p.Err()).To(MatchError(boom))
		})

		It("still delivers OnEnd after an adapter error", func() {
			rec := &recorder{fail: errors.New("boom")}
			Expect(parse(rec, ":1\r\n")).To(Succeed())
			Expect(rec.events).To(Equal([]event{{kind: "end"}}))
		})
	})
})
