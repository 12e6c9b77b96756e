// Package e2e drives the named end-to-end scenarios through the real
// pipeline stages (decode, lower, convert, schedule) the way the teacher's
// tests/stages and test/e2e packages drive full Go-source-to-Verilog
// compiles — a named-testcase table, but checking in-process invariants
// instead of comparing against golden MLIR/Verilog/simulation-trace files,
// since this compiler has no external toolchain to shell out to.
package e2e
