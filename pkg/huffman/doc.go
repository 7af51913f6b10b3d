// Package huffman implements the entropy-coding stage of the nucleon
// pipeline: a Huffman code built per input, packed MSB-first into bytes.
//
// # Tree Construction
//
// Symbol frequencies are counted over the input and the two lowest-frequency
// nodes are merged until a single root remains. Ties are broken by creation
// order: leaves are numbered in ascending byte order and every merged node
// receives the next number. The first node taken from the queue becomes the
// left ("0") child. Independent implementations following these rules build
// identical trees for identical inputs.
//
// An input with a single distinct byte value gets the one-bit code "0".
//
// # Bitstream
//
// Codewords are concatenated, the final byte is filled with zero bits and the
// number of fill bits is recorded as EncodingInfo.Padding (0..7).
//
// # Table Format
//
// EncodingInfo.MarshalBinary writes a versioned, deterministic CBOR map:
//
//	{"v": 1, "padding": n, "codes": [{"s": symbol, "b": "0101"}, ...]}
//
// with entries sorted by symbol.
package huffman
