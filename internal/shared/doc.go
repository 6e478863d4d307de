// Package shared holds helpers used by more than one package. At present it
// only hosts testutil, the fixtures and log capture used across the test
// suites.
package shared
