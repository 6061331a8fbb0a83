package app

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
)

func pipeConnection(t *testing.T) (*connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return newConnection(1, server), client
}

func TestReadFrameSplitsOnNewline(t *testing.T) {
	conn, client := pipeConnection(t)

	go client.Write([]byte("{\"action\":\"keys\"}\n{\"action\":\"get\"}\n"))

	frame, err := conn.readFrame(1024)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(frame) != `{"action":"keys"}` {
		t.Errorf("unexpected first frame %q", frame)
	}

	frame, err = conn.readFrame(1024)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(frame) != `{"action":"get"}` {
		t.Errorf("unexpected second frame %q", frame)
	}
}

func TestReadFrameReassemblesPartialWrites(t *testing.T) {
	conn, client := pipeConnection(t)

	go func() {
		client.Write([]byte(`{"action":`))
		time.Sleep(10 * time.Millisecond)
		client.Write([]byte("\"keys\"}\n"))
	}()

	frame, err := conn.readFrame(1024)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(frame) != `{"action":"keys"}` {
		t.Errorf("unexpected frame %q", frame)
	}
}

func TestReadFrameStripsCarriageReturn(t *testing.T) {
	conn, client := pipeConnection(t)

	go client.Write([]byte("{\"action\":\"keys\"}\r\n"))

	frame, err := conn.readFrame(1024)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(frame) != `{"action":"keys"}` {
		t.Errorf("expected CR stripped, got %q", frame)
	}
}

func TestReadFrameRejectsOversized(t *testing.T) {
	conn, client := pipeConnection(t)

	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'a'
	}
	go client.Write(big)

	_, err := conn.readFrame(64)
	if !errors.Is(err, domain.ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestWriteFrameAppendsNewline(t *testing.T) {
	conn, client := pipeConnection(t)

	done := make(chan error, 1)
	go func() {
		done <- conn.writeFrame(domain.Reply{"result": "OK"})
	}()

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	if got := string(buf[:n]); got != "{\"result\":\"OK\"}\n" {
		t.Errorf("unexpected wire bytes %q", got)
	}
}
