package server

import (
	"os"

	log "github.com/go-pkgz/lgr"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// SysInfo is a process and host readout reported by the status endpoint
type SysInfo struct {
	RSS            uint64  `json:"rss"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	Load1          float64 `json:"load1"`
	DiskFreePct    float64 `json:"disk_free_percent,omitempty"`
}

// collectSysInfo gathers what is available, failures are logged and leave zero values
func collectSysInfo(diskPath string) SysInfo {
	var info SysInfo

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil { //nolint:gosec // pid fits int32
		if m, err := p.MemoryInfo(); err == nil {
			info.RSS = m.RSS
		} else {
			log.Printf("[DEBUG] failed to get process memory: %v", err)
		}
	}

	if v, err := mem.VirtualMemory(); err == nil {
		info.MemUsedPercent = v.UsedPercent
	} else {
		log.Printf("[DEBUG] failed to get memory: %v", err)
	}

	if loads, err := load.Avg(); err == nil {
		info.Load1 = loads.Load1
	} else {
		log.Printf("[DEBUG] failed to get load average: %v", err)
	}

	if diskPath != "" {
		if usage, err := disk.Usage(diskPath); err == nil {
			info.DiskFreePct = 100 - usage.UsedPercent
		} else {
			log.Printf("[DEBUG] failed to get disk usage for %s: %v", diskPath, err)
		}
	}
	return info
}
