// Package ciutil detects the execution environment and reads the
// environment variables shared by tests and tooling.
package ciutil
