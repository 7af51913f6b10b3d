package huffman

import (
	"bytes"

	"github.com/icza/bitio"
	"github.com/ssargent/nucleon/pkg/errs"
)

// Code maps a byte value to its codeword written as a string of '0' and '1'.
type Code map[byte]string

// EncodingInfo is everything Decode needs besides the packed bytes: the code
// table and the number of zero bits appended to the last byte.
type EncodingInfo struct {
	Codes   Code
	Padding int
}

// Codec compresses byte slices with a Huffman code built per input
type Codec struct{}

// NewCodec creates a new Huffman codec
func NewCodec() *Codec {
	return &Codec{}
}

type codeword struct {
	bits uint64
	n    uint8
	text string
}

// Encode compresses data and returns the packed bitstream together with the
// code table and padding needed to reverse it. Empty input yields empty
// output and an empty table.
func (c *Codec) Encode(data []byte) ([]byte, EncodingInfo) {
	if len(data) == 0 {
		return []byte{}, EncodingInfo{Codes: Code{}, Padding: 0}
	}

	codes := generateCodes(buildTree(data))

	var words [256]codeword
	for sym, code := range codes {
		w := codeword{text: code}
		if len(code) <= 64 {
			for i := 0; i < len(code); i++ {
				w.bits = w.bits<<1 | uint64(code[i]-'0')
			}
			w.n = uint8(len(code))
		}
		words[sym] = w
	}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for _, b := range data {
		word := words[b]
		if word.n > 0 {
			w.TryWriteBits(word.bits, word.n)
			continue
		}
		for i := 0; i < len(word.text); i++ {
			w.TryWriteBool(word.text[i] == '1')
		}
	}
	padding, _ := w.Align()
	// Writes go to a bytes.Buffer, which never fails.
	_ = w.Close()

	return buf.Bytes(), EncodingInfo{Codes: codes, Padding: int(padding)}
}

// Decode expands encoded with the code table in info. It fails with a
// decoding error when the bitstream ends inside a codeword or walks off the
// code tree, and with a compression error when info is inconsistent.
func (c *Codec) Decode(encoded []byte, info EncodingInfo) ([]byte, error) {
	if info.Padding < 0 || info.Padding > 7 {
		return nil, compressionErrorf("padding %d out of range 0..7", info.Padding)
	}
	if len(encoded) == 0 {
		if info.Padding != 0 {
			return nil, compressionErrorf("padding %d on empty bitstream", info.Padding)
		}
		return []byte{}, nil
	}
	if len(info.Codes) == 0 {
		return nil, compressionErrorf("empty code table for %d encoded bytes", len(encoded))
	}

	root, err := buildDecodeTrie(info.Codes)
	if err != nil {
		return nil, err
	}

	total := len(encoded)*8 - info.Padding
	out := make([]byte, 0, len(encoded)*2)
	r := bitio.NewReader(bytes.NewReader(encoded))
	n := root
	depth := 0
	for i := 0; i < total; i++ {
		bit := r.TryReadBool()
		if r.TryError != nil {
			return nil, errs.Wrapf(errs.ErrDecoding, r.TryError, "read bit %d", i)
		}

		next := n.children[0]
		if bit {
			next = n.children[1]
		}
		if next == nil {
			return nil, errs.Newf(errs.ErrDecoding, "no codeword matches bits ending at offset %d", i)
		}
		n = next
		depth++

		if n.leaf {
			out = append(out, n.symbol)
			n = root
			depth = 0
		}
	}

	if depth != 0 {
		return nil, errs.Newf(errs.ErrDecoding, "bitstream ended inside a codeword (%d dangling bits)", depth)
	}

	return out, nil
}

func compressionErrorf(format string, args ...interface{}) error {
	return errs.Newf(errs.ErrCompression, "huffman: "+format, args...)
}
