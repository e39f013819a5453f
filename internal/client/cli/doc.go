// Package cli implements ledgerctl: a one-shot tool invocation
// (ledgerctl <tool> key=value ...) and an interactive prompt when no tool is
// given. Results are printed as indented JSON.
package cli
