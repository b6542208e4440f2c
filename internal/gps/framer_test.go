package gps

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleRMC = "GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"

func newTestFramer(s string, opts FramerOptions) *Framer {
	return NewFramer(bufio.NewReader(strings.NewReader(s)), opts)
}

// drain collects every frame until the framer reports an error.
func drain(t *testing.T, f *Framer) ([]Frame, error) {
	t.Helper()
	var out []Frame
	for {
		fr, err := f.Next()
		if err != nil {
			return out, err
		}
		out = append(out, fr)
	}
}

func TestFramer_SingleSentence(t *testing.T) {
	f := newTestFramer("$"+exampleRMC+"*6A\r\n", FramerOptions{})

	frames, err := drain(t, f)
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 1)

	fr := frames[0]
	assert.Equal(t, uint64(0), fr.Order)
	assert.Equal(t, exampleRMC, string(fr.Payload))
	assert.Equal(t, [2]byte{'6', 'A'}, fr.Claimed)
	assert.Equal(t, Checksum(fr.Payload), fr.Sum)
	assert.NoError(t, fr.Err)
	assert.Equal(t, int64(len(exampleRMC)+6), f.BytesRead())
}

func TestFramer_OrderIsSequential(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 5; i++ {
		sb.WriteString(Sentence(exampleRMC))
		sb.WriteString("\r\n")
	}
	frames, err := drain(t, newTestFramer(sb.String(), FramerOptions{}))
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 5)
	for i, fr := range frames {
		assert.Equal(t, uint64(i), fr.Order)
	}
}

func TestFramer_IgnoresNoiseBetweenSentences(t *testing.T) {
	in := "garbage" + Sentence("GPRMC,1") + "junk*99" + Sentence("GPRMC,2")
	frames, err := drain(t, newTestFramer(in, FramerOptions{}))
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 2)
	assert.Equal(t, "GPRMC,1", string(frames[0].Payload))
	assert.Equal(t, "GPRMC,2", string(frames[1].Payload))
}

func TestFramer_DollarAbandonsPartialFrame(t *testing.T) {
	in := "$GPRMC,123" + Sentence("GPRMC,456")
	f := newTestFramer(in, FramerOptions{})
	frames, err := drain(t, f)
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 1)
	assert.Equal(t, "GPRMC,456", string(frames[0].Payload))
	assert.Equal(t, uint64(0), frames[0].Order, "abandoned frames take no order slot")
	assert.Equal(t, int64(1), f.Abandoned())
}

func TestFramer_DollarDuringChecksumRestarts(t *testing.T) {
	in := "$GPRMC,1*4" + Sentence("GPRMC,2")
	f := newTestFramer(in, FramerOptions{})
	frames, err := drain(t, f)
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 1)
	assert.Equal(t, "GPRMC,2", string(frames[0].Payload))
	assert.NoError(t, VerifyChecksum(frames[0]))
	assert.Equal(t, int64(1), f.Abandoned())
}

func TestFramer_ChecksumDigitsAreNotXORed(t *testing.T) {
	frames, err := drain(t, newTestFramer("$AB*03", FramerOptions{}))
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 1)
	assert.Equal(t, byte('A'^'B'), frames[0].Sum)
	assert.NoError(t, VerifyChecksum(frames[0]))
}

func TestFramer_MaxLenBoundary(t *testing.T) {
	const maxLen = 20
	exact := strings.Repeat("X", maxLen-4)
	over := strings.Repeat("X", maxLen-3)

	frames, err := drain(t, newTestFramer(Sentence(exact)+Sentence(over)+Sentence("OK"), FramerOptions{MaxLen: maxLen}))
	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 3)

	assert.Len(t, Sentence(exact), maxLen)
	assert.NoError(t, frames[0].Err)
	assert.Equal(t, exact, string(frames[0].Payload))

	require.Error(t, frames[1].Err)
	assert.ErrorIs(t, frames[1].Err, ErrFrameTooLong)
	assert.Equal(t, uint64(1), frames[1].Order, "overlong frames keep their slot")
	assert.LessOrEqual(t, len(frames[1].Payload), maxLen-4)

	assert.NoError(t, frames[2].Err)
	assert.Equal(t, uint64(2), frames[2].Order)
}

func TestFramer_LineEndHandling(t *testing.T) {
	in := Sentence("A") + "\r\n" + "$B,unfinished\r\n" + Sentence("C")

	t.Run("separator", func(t *testing.T) {
		f := newTestFramer(in, FramerOptions{})
		frames, err := drain(t, f)
		require.ErrorIs(t, err, io.EOF)
		require.Len(t, frames, 2)
		assert.Equal(t, "C", string(frames[1].Payload))
		assert.Equal(t, int64(1), f.Abandoned())
	})

	t.Run("stop on line end", func(t *testing.T) {
		f := newTestFramer(in, FramerOptions{StopOnLineEnd: true})
		frames, err := drain(t, f)
		require.ErrorIs(t, err, io.EOF)
		require.Len(t, frames, 1)
		assert.Equal(t, "A", string(frames[0].Payload))

		_, err = f.Next()
		assert.ErrorIs(t, err, io.EOF, "end of session is sticky")
	})
}

func TestFramer_EOFMidFrameIsAbandoned(t *testing.T) {
	f := newTestFramer(Sentence("A")+"$GPRMC,12", FramerOptions{})
	frames, err := drain(t, f)
	require.ErrorIs(t, err, io.EOF)
	assert.Len(t, frames, 1)
	assert.Equal(t, int64(1), f.Abandoned())
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) ReadByte() (byte, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	b := r.data[0]
	r.data = r.data[1:]
	return b, nil
}

func TestFramer_PassesReadErrorsThrough(t *testing.T) {
	boom := errors.New("port unplugged")
	f := NewFramer(&failingReader{data: []byte(Sentence("A")), err: boom}, FramerOptions{})

	fr, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, "A", string(fr.Payload))

	_, err = f.Next()
	assert.ErrorIs(t, err, boom)
}
