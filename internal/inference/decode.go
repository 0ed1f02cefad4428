package inference

import "unicode/utf8"

// StreamDecoder reassembles text from an incremental byte stream. Generated
// tokens can split a multi-byte UTF-8 character across steps; the decoder
// holds the incomplete tail between writes and prefixes it onto the next
// chunk, so emitted text always ends on a character boundary.
type StreamDecoder struct {
	carry []byte
}

// Write consumes the next chunk of raw bytes and returns the longest decoded
// prefix ending on a character boundary.
func (d *StreamDecoder) Write(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	b := p
	if len(d.carry) > 0 {
		b = append(d.carry, p...)
		d.carry = nil
	}
	complete, rest := splitIncompleteTail(b)
	if len(rest) > 0 {
		d.carry = append(d.carry[:0], rest...)
	}
	return string(complete)
}

// Flush discards and returns any bytes still held. Called at session end;
// a truncated final character is a generation-boundary artifact, so it is
// dropped rather than emitted as a replacement character.
func (d *StreamDecoder) Flush() []byte {
	rest := d.carry
	d.carry = nil
	return rest
}

// splitIncompleteTail splits b so that complete ends on a UTF-8 boundary and
// rest is a trailing incomplete multi-byte sequence, if any. Bytes that are
// invalid outright (a continuation run with no lead byte in range) pass
// through in complete; only a genuinely unfinished sequence is held back.
func splitIncompleteTail(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && len(b)-i <= utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return b[:i], b[i:]
		}
		break
	}
	return b, nil
}
