package resp

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCommandBasic(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("*2\r\n$4\r\nECHO\r\n$3\r\nhey\r\n"))
	cmd, err := ReadCommand(r)
	assert.NoError(t, err)
	assert.Equal(t, []string{"ECHO", "hey"}, cmd)
}

func TestReadCommandBinarySafe(t *testing.T) {
	// bulk strings may contain arbitrary bytes, including CR/LF, since they
	// are length-prefixed rather than delimiter-terminated.
	payload := "a\r\nb"
	frame := "*2\r\n$3\r\nfoo\r\n$4\r\n" + payload + "\r\n"
	r := bufio.NewReader(strings.NewReader(frame))
	cmd, err := ReadCommand(r)
	assert.NoError(t, err)
	assert.Equal(t, []string{"foo", payload}, cmd)
}

func TestReadCommandPipelined(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(
		"*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n",
	))
	cmd1, err := ReadCommand(r)
	assert.NoError(t, err)
	assert.Equal(t, []string{"PING"}, cmd1)

	cmd2, err := ReadCommand(r)
	assert.NoError(t, err)
	assert.Equal(t, []string{"PING"}, cmd2)
}

func TestReadCommandMalformed(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("not-a-frame\r\n"))
	_, err := ReadCommand(r)
	assert.Error(t, err)
	var malformed *ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestEncoderTypes(t *testing.T) {
	var e Encoder
	e.WriteSimpleString("OK")
	assert.Equal(t, "+OK\r\n", string(e.Bytes()))

	e.Reset()
	e.WriteError("ERR boom")
	assert.Equal(t, "-ERR boom\r\n", string(e.Bytes()))

	e.Reset()
	e.WriteInt(42)
	assert.Equal(t, ":42\r\n", string(e.Bytes()))

	e.Reset()
	e.WriteBulkString("hello")
	assert.Equal(t, "$5\r\nhello\r\n", string(e.Bytes()))

	e.Reset()
	e.WriteNullBulk()
	assert.Equal(t, "$-1\r\n", string(e.Bytes()))

	e.Reset()
	e.WriteNullArray()
	assert.Equal(t, "*-1\r\n", string(e.Bytes()))
}

func TestEncoderNestedArray(t *testing.T) {
	var e Encoder
	e.WriteArrayHeader(1)
	e.WriteArrayHeader(2)
	e.WriteBulkString("k")
	e.WriteArrayHeader(2)
	e.WriteBulkString("field")
	e.WriteBulkString("value")

	assert.Equal(t,
		"*1\r\n*2\r\n$1\r\nk\r\n*2\r\n$5\r\nfield\r\n$5\r\nvalue\r\n",
		string(e.Bytes()),
	)
}

func BenchmarkWriteBulkString(b *testing.B) {
	var e Encoder
	for i := 0; i < b.N; i++ {
		e.Reset()
		e.WriteBulkString("a test string")
	}
}

func BenchmarkWriteStringArray(b *testing.B) {
	var e Encoder
	items := []string{"this", "that", "and the other", "more", "even more", "even more items"}
	for i := 0; i < b.N; i++ {
		e.Reset()
		e.WriteStringArray(items)
	}
}
