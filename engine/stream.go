package engine

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// streamDecoder incrementally parses a line-delimited `data: <json|[DONE]>`
// event stream into text deltas. It keeps a single growable buffer across
// reads so line boundaries need not align with network chunks.
type streamDecoder struct {
	buf  []byte
	text strings.Builder
	done bool
}

// feed appends a chunk of raw bytes and returns the text deltas of every
// complete event line now available, in order. Once the [DONE] sentinel is
// seen, any remaining buffered lines are dropped and further feeds are no-ops.
func (d *streamDecoder) feed(chunk []byte) []string {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var deltas []string
	for {
		index := bytes.IndexByte(d.buf, '\n')
		if index < 0 {
			break
		}
		line := strings.TrimSpace(string(d.buf[:index]))
		d.buf = d.buf[index+1:]

		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := line[len(dataPrefix):]
		if payload == doneSentinel {
			// Nothing of value follows [DONE].
			d.done = true
			break
		}
		// Heartbeats and unrecognized control lines are skipped, not fatal.
		if !gjson.Valid(payload) {
			continue
		}
		for _, choice := range gjson.Get(payload, "choices").Array() {
			fragment := choice.Get("delta.content").String()
			if fragment == "" {
				fragment = choice.Get("message.content").String()
			}
			if fragment == "" {
				continue
			}
			d.text.WriteString(fragment)
			deltas = append(deltas, fragment)
		}
	}
	return deltas
}

// finished reports whether the [DONE] sentinel has been seen.
func (d *streamDecoder) finished() bool {
	return d.done
}

// accumulated returns the full text assembled from every delta so far.
func (d *streamDecoder) accumulated() string {
	return d.text.String()
}
