// The main package for the alertdigest executable.
package main

import (
	"github.com/alertdigest/alertdigest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
