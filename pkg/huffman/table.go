package huffman

import (
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// TableVersion is the schema version written by MarshalBinary.
const TableVersion = 1

// tableEntry is one symbol/codeword pair of the serialized table.
type tableEntry struct {
	Symbol uint8  `cbor:"s"`
	Bits   string `cbor:"b"`
}

// wireTable is the serialized form of EncodingInfo. Entries are sorted by
// symbol so the same table always serializes to the same bytes.
type wireTable struct {
	Version int          `cbor:"v"`
	Padding int          `cbor:"padding"`
	Codes   []tableEntry `cbor:"codes"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("huffman: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("huffman: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalBinary encodes the code table and padding as deterministic CBOR.
func (info EncodingInfo) MarshalBinary() ([]byte, error) {
	t := wireTable{
		Version: TableVersion,
		Padding: info.Padding,
		Codes:   make([]tableEntry, 0, len(info.Codes)),
	}
	for sym, bits := range info.Codes {
		t.Codes = append(t.Codes, tableEntry{Symbol: sym, Bits: bits})
	}
	sort.Slice(t.Codes, func(i, j int) bool { return t.Codes[i].Symbol < t.Codes[j].Symbol })

	return encMode.Marshal(t)
}

// UnmarshalBinary decodes a table written by MarshalBinary. The table is
// checked for a known version, a padding in 0..7, unique symbols and binary
// codewords; prefix-freeness is checked when the table is used.
func (info *EncodingInfo) UnmarshalBinary(data []byte) error {
	var t wireTable
	if err := decMode.Unmarshal(data, &t); err != nil {
		return compressionErrorf("malformed code table: %v", err)
	}
	if t.Version != TableVersion {
		return compressionErrorf("unsupported code table version %d", t.Version)
	}
	if t.Padding < 0 || t.Padding > 7 {
		return compressionErrorf("padding %d out of range 0..7", t.Padding)
	}

	codes := make(Code, len(t.Codes))
	for _, e := range t.Codes {
		if _, dup := codes[e.Symbol]; dup {
			return compressionErrorf("duplicate code for symbol %d", e.Symbol)
		}
		if e.Bits == "" {
			return compressionErrorf("empty code for symbol %d", e.Symbol)
		}
		for i := 0; i < len(e.Bits); i++ {
			if e.Bits[i] != '0' && e.Bits[i] != '1' {
				return compressionErrorf("code for symbol %d contains %q", e.Symbol, e.Bits[i])
			}
		}
		codes[e.Symbol] = e.Bits
	}

	info.Codes = codes
	info.Padding = t.Padding
	return nil
}
