package mikrotik

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLength(t *testing.T) {
	tests := []struct {
		length int
		want   []byte
	}{
		{0, []byte{0x00}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x80, 0x80}},
		{0x3FFF, []byte{0xBF, 0xFF}},
		{0x4000, []byte{0xC0, 0x40, 0x00}},
		{0x1FFFFF, []byte{0xDF, 0xFF, 0xFF}},
		{0x200000, []byte{0xE0, 0x20, 0x00, 0x00}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, encodeLength(tt.length), "length %d", tt.length)
	}
}

func TestLengthRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 0x7F, 0x80, 0x100, 0x3FFF, 0x4000, 0x12345, 0x1FFFFF, 0x200000}

	for _, length := range lengths {
		server, client := net.Pipe()
		c := &Client{conn: client}

		go func(n int) {
			server.Write(encodeLength(n))
			server.Close()
		}(length)

		got, err := c.readLength()
		require.NoError(t, err, "length %d", length)
		assert.Equal(t, length, got)
		client.Close()
	}
}

func TestParseSentences(t *testing.T) {
	words := []string{
		"!re", "=.id=*1", "=name=alice", "=uptime=1h2m3s",
		"!re", "=.id=*2", "=name=bob",
		"!done",
	}

	results, err := parseSentences(words)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alice", results[0]["name"])
	assert.Equal(t, "*1", results[0][".id"])
	assert.Equal(t, "bob", results[1]["name"])
}

func TestParseSentencesTrap(t *testing.T) {
	words := []string{"!trap", "=message=no such item", "!done"}

	_, err := parseSentences(words)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such item")
}

func TestParseSentencesEmpty(t *testing.T) {
	results, err := parseSentences([]string{"!done"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// fakeRouter answers the API login and one command over a TCP listener
func fakeRouter(t *testing.T, reply [][]string) net.Listener {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	writeWord := func(conn net.Conn, word string) {
		conn.Write(encodeLength(len(word)))
		if word != "" {
			conn.Write([]byte(word))
		}
	}

	readWord := func(conn net.Conn) (string, error) {
		b := make([]byte, 1)
		if _, err := conn.Read(b); err != nil {
			return "", err
		}
		n := int(b[0])
		if n == 0 {
			return "", nil
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return "", err
		}
		return string(buf), nil
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Consume the login sentence, answer !done
		for {
			word, err := readWord(conn)
			if err != nil {
				return
			}
			if word == "" {
				break
			}
		}
		writeWord(conn, "!done")
		writeWord(conn, "")

		// Answer each subsequent sentence with the canned reply
		for _, sentence := range reply {
			for {
				word, err := readWord(conn)
				if err != nil {
					return
				}
				if word == "" {
					break
				}
			}
			for _, word := range sentence {
				writeWord(conn, word)
			}
			writeWord(conn, "")
		}
	}()

	return ln
}

func TestRunAgainstFakeRouter(t *testing.T) {
	ln := fakeRouter(t, [][]string{
		{"!re", "=.id=*1", "=name=vpn_user", "=uptime=5m", "!done"},
	})
	defer ln.Close()

	c := NewClient(ln.Addr().String(), "admin", "pass")
	defer c.Close()

	rows, err := c.Run("/ppp/active/print")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "vpn_user", rows[0]["name"])
	assert.Equal(t, "5m", rows[0]["uptime"])
}

func TestConnectAuthFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Drain login sentence, then reject
		buf := make([]byte, 256)
		conn.Read(buf)
		conn.Write(encodeLength(len("!trap")))
		conn.Write([]byte("!trap"))
		conn.Write(encodeLength(len("!done")))
		conn.Write([]byte("!done"))
		conn.Write(encodeLength(0))
	}()

	c := NewClient(ln.Addr().String(), "admin", "wrong")
	defer c.Close()

	err = c.Connect()
	require.Error(t, err)
}
