package common

import "github.com/nspcc-dev/neo-go/pkg/interop/util"

// BytesEqual compares two slices of bytes by wrapping them into strings,
// which is necessary with new util.Equals src of Neo VM.
func BytesEqual(a []byte, b []byte) bool {
	return util.Equals(string(a), string(b))
}
