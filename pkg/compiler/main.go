// Package compiler implements a staged compiler for a small C-like teaching
// language that lowers source text to 8086-style stack-machine assembly.
//
// Pipeline: source → Tokenize → Parse (semantics + quadruples) → Generate
//
// The parser builds no syntax tree. Semantic checks and three-address
// quadruples are produced inline while the grammar is recognised, with
// forward jumps resolved by backpatching.
package compiler
