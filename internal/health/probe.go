// Package health samples job liveness, system resources, and gateway
// connectivity on a fixed interval and folds them into one composite
// status for the /health endpoint.
package health

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Status is a component or composite health verdict.
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// MemoryStatus is one sample of system memory headroom.
type MemoryStatus struct {
	Status    Status  `json:"status"`
	TotalKB   uint64  `json:"totalKb"`
	FreeKB    uint64  `json:"freeKb"`
	FreeRatio float64 `json:"freeRatio"`
	Detail    string  `json:"detail,omitempty"`
}

// DiskStatus is one sample of free space on the volume the bot writes to.
type DiskStatus struct {
	Status     Status  `json:"status"`
	TotalBytes uint64  `json:"totalBytes"`
	FreeBytes  uint64  `json:"freeBytes"`
	FreeRatio  float64 `json:"freeRatio"`
	Detail     string  `json:"detail,omitempty"`
}

// sampleMemory reads MemTotal and MemAvailable from a meminfo file and
// judges the free ratio against threshold. Any read or parse failure is a
// DOWN verdict, never a silent pass.
func sampleMemory(path string, threshold float64) MemoryStatus {
	data, err := os.ReadFile(path)
	if err != nil {
		return MemoryStatus{Status: StatusDown, Detail: fmt.Sprintf("read %s: %v", path, err)}
	}

	var total, available uint64
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "MemTotal:") {
			fmt.Sscanf(line, "MemTotal: %d kB", &total)
		}
		if strings.HasPrefix(line, "MemAvailable:") {
			fmt.Sscanf(line, "MemAvailable: %d kB", &available)
		}
	}
	if total == 0 {
		return MemoryStatus{Status: StatusDown, Detail: "MemTotal missing from meminfo"}
	}

	ratio := float64(available) / float64(total)
	st := StatusUp
	if ratio < threshold {
		st = StatusDown
	}
	return MemoryStatus{Status: st, TotalKB: total, FreeKB: available, FreeRatio: ratio}
}

// sampleDisk stats the filesystem holding path and judges the free ratio
// against threshold.
func sampleDisk(path string, threshold float64) DiskStatus {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return DiskStatus{Status: StatusDown, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}

	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	if total == 0 {
		return DiskStatus{Status: StatusDown, Detail: "filesystem reports zero size"}
	}

	ratio := float64(free) / float64(total)
	st := StatusUp
	if ratio < threshold {
		st = StatusDown
	}
	return DiskStatus{Status: st, TotalBytes: total, FreeBytes: free, FreeRatio: ratio}
}
