package adapter_test

import (
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/lumen/adapter"
	"github.com/luma/lumen/protocol"
)

type jsonBlob struct {
	data []byte
}

func (j *jsonBlob) UnmarshalBulk(data []byte) error {
	j.data = append(j.data[:0], data...)
	return nil
}

var _ = Describe("Adapt()", func() {
	It("ignores the response for a nil destination", func() {
		Expect(decode(adapter.Adapt(nil), "+OK\r\n")).To(Succeed())
	})

	It("uses an explicit adapter as-is", func() {
		var s string
		Expect(decode(adapter.Adapt(adapter.String(&s)), "+OK\r\n")).To(Succeed())
		Expect(s).To(Equal("OK"))
	})

	It("picks scalar adapters from pointer destinations", func() {
		var s string
		var n int
		var f float64
		var b bool

		Expect(decode(adapter.Adapt(&s), "+hi\r\n")).To(Succeed())
		Expect(decode(adapter.Adapt(&n), ":3\r\n")).To(Succeed())
		Expect(decode(adapter.Adapt(&f), ",0.5\r\n")).To(Succeed())
		Expect(decode(adapter.Adapt(&b), "#f\r\n")).To(Succeed())

		Expect(s).To(Equal("hi"))
		Expect(n).To(Equal(3))
		Expect(f).To(Equal(0.5))
		Expect(b).To(BeFalse())
	})

	It("treats pointer-to-pointer destinations as optionals", func() {
		var s *string
		Expect(decode(adapter.Adapt(&s), "_\r\n")).To(Succeed())
		Expect(s).To(BeNil())

		Expect(decode(adapter.Adapt(&s), "$5\r\nhello\r\n")).To(Succeed())
		Expect(s).NotTo(BeNil())
		Expect(*s).To(Equal("hello"))
	})

	It("picks container adapters from slice and map destinations", func() {
		var list []string
		var hash map[string]string
		var set map[string]struct{}

		Expect(decode(adapter.Adapt(&list), "*1\r\n+x\r\n")).To(Succeed())
		Expect(decode(adapter.Adapt(&hash), "%1\r\n+k\r\n+v\r\n")).To(Succeed())
		Expect(decode(adapter.Adapt(&set), "~1\r\n+x\r\n")).To(Succeed())

		Expect(list).To(Equal([]string{"x"}))
		Expect(hash).To(Equal(map[string]string{"k": "v"}))
		Expect(set).To(HaveKey("x"))
	})

	It("records the raw tree for a node slice destination", func() {
		var nodes []protocol.Node
		Expect(decode(adapter.Adapt(&nodes), "*1\r\n+x\r\n")).To(Succeed())
		Expect(nodes).To(HaveLen(2))
	})

	It("hands bulk payloads to an unmarshaler", func() {
		blob := &jsonBlob{}
		Expect(decode(adapter.Adapt(blob), "$7\r\n{\"a\":1}\r\n")).To(Succeed())
		Expect(string(blob.data)).To(Equal(`{"a":1}`))
	})

	It("fails the response for an unsupported destination", func() {
		var dst struct{ X int }
		err := decode(adapter.Adapt(&dst), "+OK\r\n")
		Expect(errors.Is(err, adapter.ErrUnexpected)).To(BeTrue())
	})
})
