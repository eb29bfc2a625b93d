package lazyinit

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/cespare/xxhash/v2"
)

// CallSiteKey derives a stable memoization key from the caller's position in
// the code: two calls from the same file and line share a key, calls from
// different sites get independent ones. skip counts stack frames above the
// caller, as in runtime.Caller.
//
// The key keeps the base file name and line readable for Info output and
// appends an xxhash fingerprint of the full path, so identically named files
// in different directories cannot collide.
func CallSiteKey(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d:%x", filepath.Base(file), line, xxhash.Sum64String(file))
}
