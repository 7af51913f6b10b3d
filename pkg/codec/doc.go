// Package codec provides metadata serialization and deserialization for Nucleon.
//
// Every encoded nucleotide sequence is paired with a metadata record. The
// sequence alone cannot be decoded: the record names the pipeline stages that
// were applied, the salt used for key derivation and the Huffman code table.
//
// # Record Format
//
// Metadata is stored as a JSON object:
//
//	{
//	  "config": {
//	    "use_compression": true,
//	    "use_encryption": true,
//	    "use_error_correction": true,
//	    "ecc_symbols": 20
//	  },
//	  "original_file_name": "report.pdf",
//	  "original_size": 1024,
//	  "processed_size": 612,
//	  "encryption_salt": "<base64, or null>",
//	  "huffman_info": "<base64 CBOR code table, or null>",
//	  "dna_sequence_length": 3126,
//	  "payload_digest": "<hex BLAKE3-256>"
//	}
//
// original_file_name and payload_digest are optional. encryption_salt is the
// standard base64 encoding of the 16-byte PBKDF2 salt. huffman_info is the
// standard base64 encoding of the versioned CBOR table written by
// huffman.EncodingInfo.MarshalBinary.
//
// # Usage
//
//	mc := codec.NewMetadataCodec()
//
//	data, err := mc.Encode(md)
//	if err != nil {
//	    return err
//	}
//
//	md, err = mc.Decode(data)
//	if err != nil {
//	    return err // malformed or inconsistent record
//	}
//
// # Validation
//
// Decode calls Metadata.Validate, which rejects records whose config cannot
// be reversed: a missing or short salt with encryption enabled, a missing code
// table with compression enabled, or a parity count outside 1..254.
//
// # Thread Safety
//
// MetadataCodec instances are safe for concurrent use.
package codec
