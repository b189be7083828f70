// Package setup implements the first-run wizard that picks a model
// provider, checks its key and writes the configuration.
package setup

// KeyCheckedMsg carries the result of an asynchronous key check.
type KeyCheckedMsg struct {
	Err error
}
