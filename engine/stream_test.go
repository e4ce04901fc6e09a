package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamDecoderEmitsDeltasInOrder(t *testing.T) {
	decoder := &streamDecoder{}

	deltas := decoder.feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n"))
	require.Equal(t, []string{"Hel"}, deltas)

	deltas = decoder.feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n"))
	require.Equal(t, []string{"lo"}, deltas)

	deltas = decoder.feed([]byte("data: [DONE]\n"))
	require.Empty(t, deltas)
	require.True(t, decoder.finished())
	require.Equal(t, "Hello", decoder.accumulated())
}

func TestStreamDecoderIndependentOfChunkBoundaries(t *testing.T) {
	payload := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n" +
		"data: [DONE]\n"

	// Deliver the same bytes one at a time.
	split := &streamDecoder{}
	var deltas []string
	for i := 0; i < len(payload); i++ {
		deltas = append(deltas, split.feed([]byte{payload[i]})...)
	}

	whole := &streamDecoder{}
	expected := whole.feed([]byte(payload))

	require.Equal(t, expected, deltas)
	require.Equal(t, whole.accumulated(), split.accumulated())
	require.True(t, split.finished())
}

func TestStreamDecoderFallsBackToMessageContent(t *testing.T) {
	decoder := &streamDecoder{}
	deltas := decoder.feed([]byte("data: {\"choices\":[{\"message\":{\"content\":\"full\"}}]}\n"))
	require.Equal(t, []string{"full"}, deltas)
}

func TestStreamDecoderSkipsMalformedAndForeignLines(t *testing.T) {
	decoder := &streamDecoder{}
	input := ": heartbeat\n" +
		"data: {not json\n" +
		"event: ping\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n"

	deltas := decoder.feed([]byte(input))
	require.Equal(t, []string{"ok"}, deltas)
	require.Equal(t, "ok", decoder.accumulated())
}

func TestStreamDecoderStopsAtDoneSentinel(t *testing.T) {
	decoder := &streamDecoder{}
	input := "data: [DONE]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n"

	deltas := decoder.feed([]byte(input))
	require.Empty(t, deltas)
	require.True(t, decoder.finished())

	// Further feeds are ignored once the provider signalled termination.
	deltas = decoder.feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n"))
	require.Empty(t, deltas)
	require.Equal(t, "", decoder.accumulated())
}

func TestStreamDecoderHandlesMultipleChoices(t *testing.T) {
	decoder := &streamDecoder{}
	deltas := decoder.feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}},{\"delta\":{\"content\":\"b\"}}]}\n"))
	require.Equal(t, []string{"a", "b"}, deltas)
	require.Equal(t, "ab", decoder.accumulated())
}

func TestStreamDecoderSplitMultiByteRune(t *testing.T) {
	payload := []byte("data: {\"choices\":[{\"delta\":{\"content\":\"héllo\"}}]}\n")
	decoder := &streamDecoder{}

	// Split inside the two-byte é sequence.
	cut := 0
	for i, b := range payload {
		if b == 0xc3 {
			cut = i + 1
			break
		}
	}
	require.NotZero(t, cut)

	deltas := decoder.feed(payload[:cut])
	require.Empty(t, deltas)
	deltas = decoder.feed(payload[cut:])
	require.Equal(t, []string{"héllo"}, deltas)
}
