package transport

import (
	"io"
	"net"
	"testing"

	"go.viam.com/test"

	"go.viam.com/armteleop/logging"
)

func TestFormat(t *testing.T) {
	test.That(t, FormatMotor(146.4761, -35.5), test.ShouldEqual, "MOTOR 146.48 -35.50\n")
	test.That(t, FormatMotor(0, 0), test.ShouldEqual, "MOTOR 0.00 0.00\n")
	test.That(t, FormatGrabber(true), test.ShouldEqual, "GRABBER 1\n")
	test.That(t, FormatGrabber(false), test.ShouldEqual, "GRABBER 0\n")
}

func TestAck(t *testing.T) {
	test.That(t, Ack{Line: "OK"}.OK(), test.ShouldBeTrue)
	test.That(t, Ack{Line: "OK MOTOR"}.OK(), test.ShouldBeTrue)
	test.That(t, Ack{Line: "ERR overcurrent"}.OK(), test.ShouldBeFalse)
	test.That(t, Ack{Line: ""}.OK(), test.ShouldBeFalse)
}

func TestConnAwaitReady(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	client, server := net.Pipe()
	conn := NewConn(client, logger)
	defer conn.Close()

	go func() {
		io.WriteString(server, "booting\nhoming done\nRDY\n")
	}()

	test.That(t, conn.AwaitReady("RDY"), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("controller: booting").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("controller: homing done").Len(), test.ShouldEqual, 1)
}

func TestConnAwaitReadyClosed(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client, logging.NewTestLogger(t))
	defer conn.Close()

	go func() {
		io.WriteString(server, "booting\n")
		server.Close()
	}()

	err := conn.AwaitReady("RDY")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "waiting for controller")
}

func TestConnRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client, logging.NewTestLogger(t))

	received := make(chan string, 1)
	go func() {
		peer := NewLineReader(server)
		line, err := peer.ReadLine()
		if err != nil {
			received <- err.Error()
			return
		}
		received <- line
		io.WriteString(server, "OK\n")
	}()

	test.That(t, conn.SendMotor(12.346, -90), test.ShouldBeNil)
	test.That(t, <-received, test.ShouldEqual, "MOTOR 12.35 -90.00")

	ack, err := conn.ReadAck()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ack.OK(), test.ShouldBeTrue)

	got := make(chan []byte, 1)
	go func() {
		rest, _ := io.ReadAll(server)
		got <- rest
	}()
	test.That(t, conn.Shutdown(), test.ShouldBeNil)
	test.That(t, string(<-got), test.ShouldEqual, "SHUTDOWN\n")
}

func TestConnShutdownPeerGone(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConn(client, logging.NewTestLogger(t))
	test.That(t, server.Close(), test.ShouldBeNil)

	err := conn.Shutdown()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "SHUTDOWN")

	_, err = conn.ReadAck()
	test.That(t, err, test.ShouldNotBeNil)
}
