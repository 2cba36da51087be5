// Package conflict produces collision-free destination paths inside a
// directory.
package conflict

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve returns a path under dir for name that does not exist at call time.
// If dir/name is free it is returned unchanged; otherwise stem_1.ext,
// stem_2.ext, ... are probed in ascending order and the first free one wins.
// The counter is always appended fresh, so a name that already ends in _<n>
// gets another counter rather than special treatment.
//
// Resolve only probes; it does not reserve the name. Concurrent callers
// against the same directory must serialize probe-and-create themselves.
func Resolve(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate, nil
	} else if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("conflict probe failed for %s: %w", candidate, err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for counter := 1; ; counter++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("conflict probe failed for %s: %w", candidate, err)
		}
	}
}
