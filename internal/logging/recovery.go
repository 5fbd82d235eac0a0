package logging

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Recover is a defer-able recovery that logs a panic with its stack and
// exits with status 2.
func Recover(component string) {
	if rec := recover(); rec != nil {
		stack := string(debug.Stack())
		New(component).Error("panic_recovered", map[string]interface{}{
			"stack": stack,
		}, fmt.Errorf("%v", rec))
		fmt.Fprintf(os.Stderr, "Error: internal failure in %s: %v\n", component, rec)
		os.Exit(2)
	}
}
