// Package nucleotide maps bytes to a framed sequence over the alphabet
// A, C, G, T and back. Every byte becomes four symbols, most significant
// bit pair first, and the whole sequence is wrapped in the ATG start and
// TAC stop markers.
package nucleotide

import (
	"strings"

	"github.com/ssargent/nucleon/pkg/errs"
)

const (
	// StartMarker opens every encoded sequence.
	StartMarker = "ATG"
	// StopMarker closes every encoded sequence.
	StopMarker = "TAC"
	// MarkerLen is the number of symbols stripped from each end on decode.
	MarkerLen = 3
	// SymbolsPerByte is the number of 2-bit symbols per byte.
	SymbolsPerByte = 4
)

// alphabet maps 2-bit values 0..3 to symbols.
var alphabet = [4]byte{'A', 'C', 'G', 'T'}

// inverse maps symbols back to 2-bit values; -1 marks bytes outside the
// alphabet.
var inverse = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for v, s := range alphabet {
		t[s] = int8(v)
	}
	return t
}()

// Alphabet returns the symbols in value order.
func Alphabet() [4]byte {
	return alphabet
}

// EncodedLen returns the sequence length for n payload bytes.
func EncodedLen(n int) int {
	return SymbolsPerByte*n + 2*MarkerLen
}

// Encode converts data to a framed nucleotide sequence.
func Encode(data []byte) string {
	var sb strings.Builder
	sb.Grow(EncodedLen(len(data)))

	sb.WriteString(StartMarker)
	for _, b := range data {
		sb.WriteByte(alphabet[b>>6])
		sb.WriteByte(alphabet[(b>>4)&0x03])
		sb.WriteByte(alphabet[(b>>2)&0x03])
		sb.WriteByte(alphabet[b&0x03])
	}
	sb.WriteString(StopMarker)

	return sb.String()
}

// Decode strips three symbols from each end of seq, whatever they are, and
// packs the remaining symbols back into bytes. A payload whose symbol count
// is not a multiple of four has its last byte filled with zero bits.
func Decode(seq string) ([]byte, error) {
	if len(seq) < 2*MarkerLen {
		return nil, errs.Newf(errs.ErrDecoding, "sequence of %d symbols is shorter than its framing markers", len(seq))
	}

	payload := seq[MarkerLen : len(seq)-MarkerLen]
	out := make([]byte, (len(payload)+SymbolsPerByte-1)/SymbolsPerByte)

	for i := 0; i < len(payload); i++ {
		v := inverse[payload[i]]
		if v < 0 {
			return nil, errs.Newf(errs.ErrDecoding, "invalid symbol %q at position %d", payload[i], i+MarkerLen)
		}
		shift := uint(6 - 2*(i%SymbolsPerByte))
		out[i/SymbolsPerByte] |= byte(v) << shift
	}

	return out, nil
}
