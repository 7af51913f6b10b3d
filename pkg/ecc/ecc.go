// Package ecc wraps a systematic Reed-Solomon code over GF(256) for the
// error-correction stage of the nucleon pipeline.
//
// Messages are cut into chunks of BlockSize-nsym data bytes and every chunk
// is followed by its nsym parity bytes, so a full encoded block is BlockSize
// bytes and the final block may be shorter. Each block corrects up to nsym/2
// corrupted bytes at unknown positions.
package ecc

import (
	"github.com/ssargent/nucleon/pkg/errs"
	"storj.io/infectious"
)

const (
	// BlockSize is the maximum length of one encoded block, data plus parity.
	BlockSize = 255
	// MaxParity is the largest parity count that leaves room for data.
	MaxParity = BlockSize - 1
)

// DecodeResult is the outcome of Decode. When Failed is set, Data is the
// input returned unchanged (parity still attached) and Failure explains why.
type DecodeResult struct {
	Data         []byte
	Corrected    int
	Blocks       int
	Failed       bool
	FailedBlocks []int
	Failure      error
}

// Codec adds and checks Reed-Solomon parity
type Codec struct{}

// fecSet builds each (k, n) code once per call. A message has at most two
// distinct block shapes: full blocks and a shorter tail.
type fecSet map[int]*infectious.FEC

func (f fecSet) get(k, n int) (*infectious.FEC, error) {
	if fec, ok := f[k]; ok {
		return fec, nil
	}
	fec, err := infectious.NewFEC(k, n)
	if err != nil {
		return nil, err
	}
	f[k] = fec
	return fec, nil
}

// EncodedBlocks returns the number of blocks Encode produces for n data bytes.
func EncodedBlocks(n, nsym int) int {
	if nsym < 1 || nsym > MaxParity {
		return 0
	}
	chunk := BlockSize - nsym
	return (n + chunk - 1) / chunk
}

// NewCodec creates a new Reed-Solomon codec
func NewCodec() *Codec {
	return &Codec{}
}

// ValidateParity checks that nsym is a usable parity count.
func ValidateParity(nsym int) error {
	if nsym < 1 || nsym > MaxParity {
		return errs.Newf(errs.ErrValidation, "ecc symbols must be between 1 and %d, got %d", MaxParity, nsym)
	}
	return nil
}

// Encode appends nsym parity bytes to every chunk of data.
func (c *Codec) Encode(data []byte, nsym int) ([]byte, error) {
	if err := ValidateParity(nsym); err != nil {
		return nil, err
	}

	chunk := BlockSize - nsym
	blocks := EncodedBlocks(len(data), nsym)
	out := make([]byte, 0, len(data)+blocks*nsym)
	codes := fecSet{}

	for start := 0; start < len(data); start += chunk {
		end := start + chunk
		if end > len(data) {
			end = len(data)
		}
		k := end - start

		fec, err := codes.get(k, k+nsym)
		if err != nil {
			return nil, errs.Wrapf(errs.ErrValidation, err, "reed-solomon block at %d", start)
		}

		block := make([]byte, k+nsym)
		err = fec.Encode(data[start:end], func(s infectious.Share) {
			block[s.Number] = s.Data[0]
		})
		if err != nil {
			return nil, errs.Wrapf(errs.ErrValidation, err, "reed-solomon encode block at %d", start)
		}
		out = append(out, block...)
	}

	return out, nil
}

// Decode corrects and strips parity from data. Uncorrectable input does not
// produce an error: the result carries the raw input with Failed set. An
// error is returned only for an invalid parity count.
func (c *Codec) Decode(data []byte, nsym int) (*DecodeResult, error) {
	if err := ValidateParity(nsym); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(data))
	result := &DecodeResult{Blocks: (len(data) + BlockSize - 1) / BlockSize}
	codes := fecSet{}

	for start, idx := 0, 0; start < len(data); start, idx = start+BlockSize, idx+1 {
		end := start + BlockSize
		if end > len(data) {
			end = len(data)
		}
		block := data[start:end]

		decoded, corrected, err := decodeBlock(codes, block, nsym)
		if err != nil {
			result.FailedBlocks = append(result.FailedBlocks, idx)
			if result.Failure == nil {
				result.Failure = errs.Wrapf(errs.ErrCorrection, err, "reed-solomon block %d", idx)
			}
			continue
		}
		result.Corrected += corrected
		out = append(out, decoded...)
	}

	if len(result.FailedBlocks) > 0 {
		result.Failed = true
		result.Data = data
		result.Corrected = 0
		return result, nil
	}

	result.Data = out
	return result, nil
}

// decodeBlock corrects one block and returns its data bytes along with the
// number of data bytes that were repaired.
func decodeBlock(codes fecSet, block []byte, nsym int) ([]byte, int, error) {
	k := len(block) - nsym
	if k < 1 {
		return nil, 0, errs.Newf(errs.ErrCorrection, "block of %d bytes cannot hold %d parity bytes", len(block), nsym)
	}

	fec, err := codes.get(k, len(block))
	if err != nil {
		return nil, 0, err
	}

	// Clean blocks skip Berlekamp-Welch.
	clean, err := parityMatches(fec, block, k)
	if err != nil {
		return nil, 0, err
	}
	if clean {
		return block[:k], 0, nil
	}

	shares := make([]infectious.Share, len(block))
	for i, b := range block {
		shares[i] = infectious.Share{Number: i, Data: []byte{b}}
	}

	decoded, err := fec.Decode(nil, shares)
	if err != nil {
		return nil, 0, err
	}

	corrected := 0
	for i := 0; i < k; i++ {
		if decoded[i] != block[i] {
			corrected++
		}
	}
	return decoded, corrected, nil
}

// parityMatches reports whether the parity bytes of block are exactly the
// ones its data bytes encode to.
func parityMatches(fec *infectious.FEC, block []byte, k int) (bool, error) {
	match := true
	err := fec.Encode(block[:k], func(s infectious.Share) {
		if s.Number >= k && s.Data[0] != block[s.Number] {
			match = false
		}
	})
	return match, err
}
