package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// setNamePrefix plus a UTC timestamp makes snapshot names sort the same way
// lexically and chronologically.
const setNamePrefix = "set-"

// newSetName allocates a snapshot name for the given capture time that does
// not yet exist under backupRoot. Two snapshots within the same clock second
// get a zero-padded numeric suffix, which still sorts after the unsuffixed
// name and before the next second's name even past ten collisions.
func newSetName(backupRoot string, now time.Time) (string, error) {
	base := setNamePrefix + now.UTC().Format("20060102-150405")
	name := base
	for i := 2; ; i++ {
		_, err := os.Stat(filepath.Join(backupRoot, name))
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking for existing set %s: %w", name, err)
		}
		name = fmt.Sprintf("%s-%02d", base, i)
	}
}
