package audio

import (
	"fmt"
	"os"
	"time"
)

const (
	fileReadyPollInterval = 50 * time.Millisecond
	fileReadyMinBytes     = 800
	fileReadyStableChecks = 2
)

// WaitFileReady blocks until the file at path looks fully written: it must
// exist, reach a minimum size, keep a stable size across consecutive polls,
// and be openable for reading. Returns an error if the timeout elapses
// first. Guards against handing a half-written synthesis output to playback.
func WaitFileReady(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	var lastSize int64 = -1
	stable := 0

	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err != nil {
			time.Sleep(fileReadyPollInterval)
			continue
		}

		size := info.Size()
		if size < fileReadyMinBytes {
			time.Sleep(fileReadyPollInterval)
			continue
		}

		if size == lastSize {
			stable++
		} else {
			stable = 0
			lastSize = size
		}

		if stable >= fileReadyStableChecks {
			f, err := os.Open(path)
			if err == nil {
				f.Close()
				return nil
			}
		}

		time.Sleep(fileReadyPollInterval)
	}

	return fmt.Errorf("file %s not ready within %v", path, timeout)
}
