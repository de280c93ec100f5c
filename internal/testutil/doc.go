// Package testutil contains fakes and builders shared by tests: a scripted
// completion service, a testify based service mock and SSE frame builders.
// Not intended for production usage.
package testutil
