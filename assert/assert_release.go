//go:build release

package assert

// Enabled reports whether contract assertions panic. Builds tagged release compile them out.
const Enabled = false

func That(bool, string, ...any) {} //nolint:goprintffuncname // it's ok
