// Package types defines the collaborator interfaces, the test file and
// property model, scenario expectations, configuration, and the standard
// error values shared by the writeback verification harness.
package types
