package testutils

import (
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"
)

// NoError is require.NoError with the eris stack trace of err in the failure message.
func NoError(t require.TestingT, err error, msgAndArgs ...interface{}) {
	if ht, ok := t.(interface{ Helper() }); ok {
		ht.Helper()
	}
	if err == nil {
		return
	}
	msgAndArgs = append([]interface{}{eris.ToString(err, true)}, msgAndArgs...)
	require.NoError(t, err, msgAndArgs...)
}
