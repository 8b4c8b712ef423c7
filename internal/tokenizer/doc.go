// Package tokenizer encodes text to token ids and decodes ids back to bytes
// over a fixed byte-level BPE vocabulary.
//
// Encoding runs in three stages:
//   - pre-tokenization: special tokens are isolated and the ordinary text
//     between them is split into chunks (see internal/pretokenize),
//   - merging: each chunk is reduced to ids by the heap-driven merge loop
//     (see internal/merge),
//   - assembly: chunk ids are concatenated in input order.
//
// Decoding concatenates the byte strings of the ids. The result is raw
// bytes; DecodeString renders them as text with U+FFFD for malformed UTF-8.
//
// Example usage:
//
//	enc, err := loader.Load("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids := enc.Encode("Hello, world!")
//
//	text, err := enc.DecodeString(ids)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A BPE is immutable after New and safe for concurrent use. EncodeBatch
// spreads a batch over a bounded worker pool and keeps results in input
// order.
package tokenizer
