package transport_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/luma/lumen/transport"
)

// upperEchoer stands in for a real backend and upper-cases every line so
// the test can tell a proxied reply from a local echo.
type upperEchoer struct{}

func (upperEchoer) Echo(ctx context.Context, msg string) (string, error) {
	return strings.ToUpper(msg), nil
}

var _ = Describe("Proxy", func() {
	It("listens on the desired port", func() {
		proxy := makeProxy()

		defer func() {
			Expect(proxy.Close()).To(Succeed())
		}()

		conn, err := net.Dial("tcp", "0.0.0.0:6682")
		Expect(err).To(Succeed())
		conn.Close()
	})

	It("round-trips each line through the echoer", func() {
		proxy := makeProxy()

		conn, err := net.Dial("tcp", "0.0.0.0:6682")
		Expect(err).To(Succeed())

		defer func() {
			conn.Close()
			Expect(proxy.Close()).To(Succeed())
		}()

		_, err = conn.Write([]byte("hello\n"))
		Expect(err).To(Succeed())

		reply, err := bufio.NewReader(conn).ReadString('\n')
		Expect(err).To(Succeed())
		Expect(reply).To(Equal("HELLO\n"))
	})
})

func makeProxy() *transport.Proxy {
	log, err := zap.NewDevelopment()
	Expect(err).To(Succeed())

	proxy := transport.NewProxy(transport.Options{
		Log:          log,
		NumListeners: 1,
		Port:         6682,
		Echoer:       upperEchoer{},
	})

	Expect(proxy.Start(context.Background())).To(Succeed())

	// Wait for the listeners to be accepting.
	time.Sleep(100 * time.Millisecond)

	return proxy
}
