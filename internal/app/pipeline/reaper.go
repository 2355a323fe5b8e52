package pipeline

import (
	"sync"

	"github.com/hashicorp/go-reap"
	"github.com/intervju/skriba/internal/pkg/cmdapp"
)

// reapChildren collects finished codec child processes when the
// service runs as pid 1 in a container
func reapChildren(reapLock *sync.RWMutex) {
	cmdapp.Log.Debug("Init children reaper")
	pids := make(reap.PidCh, 1)
	go reap.ReapChildren(pids, nil, nil, reapLock)
	go debugReap(pids)
}

func debugReap(pids reap.PidCh) {
	for {
		pid := <-pids
		cmdapp.Log.Debugf("Reaped child process: %d", pid)
	}
}
