// Package errs defines the error kinds shared by the nucleon pipeline.
//
// Every failure returned by a pipeline stage is marked with exactly one of
// the sentinel kinds below, so callers can branch with errors.Is regardless
// of how many times the error was wrapped on its way up.
package errs

import (
	"github.com/cockroachdb/errors"
)

// Sentinel error kinds
var (
	// ErrValidation reports a missing password, malformed metadata or an
	// out-of-range parameter.
	ErrValidation = errors.New("validation error")

	// ErrDecoding reports a symbol outside the nucleotide alphabet, an
	// unmatched Huffman code or missing framing markers.
	ErrDecoding = errors.New("decoding error")

	// ErrCrypto reports a decryption or padding failure, most commonly an
	// incorrect password.
	ErrCrypto = errors.New("crypto error")

	// ErrCorrection reports uncorrectable Reed-Solomon blocks. The pipeline
	// treats it as a warning rather than a failure.
	ErrCorrection = errors.New("error correction failure")

	// ErrCompression reports corrupt or incomplete Huffman metadata.
	ErrCompression = errors.New("compression error")

	// ErrNotFound reports a missing stored job.
	ErrNotFound = errors.New("not found")
)

var kinds = []struct {
	name string
	err  error
}{
	{"validation", ErrValidation},
	{"decoding", ErrDecoding},
	{"crypto", ErrCrypto},
	{"correction", ErrCorrection},
	{"compression", ErrCompression},
	{"not_found", ErrNotFound},
}

// Newf creates a new error of the given kind.
func Newf(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), kind)
}

// Wrapf wraps err with a message and marks it with the given kind. It
// returns nil when err is nil.
func Wrapf(kind error, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WrapWithDepthf(1, err, format, args...), kind)
}

// KindOf returns the short name of the kind err is marked with, or
// "internal" when it carries none.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
