package migrate

import (
	"context"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v4/process"
)

var (
	selfOnce sync.Once
	self     *process.Process
)

// residentBytes reports the resident set size of this process, 0 if unavailable.
func residentBytes(ctx context.Context) uint64 {
	selfOnce.Do(func() {
		self, _ = process.NewProcessWithContext(ctx, int32(os.Getpid()))
	})
	if self == nil {
		return 0
	}

	info, err := self.MemoryInfoWithContext(ctx)
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
