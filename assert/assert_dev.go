//go:build !release

package assert

import "fmt"

// Enabled reports whether contract assertions panic. Builds tagged release compile them out.
const Enabled = true

func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
