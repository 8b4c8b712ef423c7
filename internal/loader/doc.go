// Package loader builds BPE encoders from published encodings and
// vocabulary files.
//
// Named encodings (r50k_base, p50k_base, p50k_edit, cl100k_base,
// o200k_base) pair a rank table with the split rules and special tokens the
// table was trained with. Rank tables are fetched through a tiktoken-go
// BpeLoader. The default reads the tables tiktoken-go-loader embeds (r50k,
// p50k, cl100k) and downloads o200k_base into the tiktoken-go cache.
//
// Supported files:
//   - .tiktoken: one "<base64 token> <rank>" line per token
//   - tokenizer.json: HuggingFace byte-level BPE
//   - .gguf: the tokenizer.ggml.* metadata of a "gpt2" model
//
// Example:
//
//	enc, err := loader.Load("cl100k_base")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ids := enc.Encode("hello world")
package loader
