// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	pscpu "github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"golang.org/x/sys/cpu"

	"github.com/ajroetker/go-matbench/matmul"
)

// HostInfo describes the machine a sweep ran on.
type HostInfo struct {
	OS        string   `json:"os"`
	Arch      string   `json:"arch"`
	CPUModel  string   `json:"cpu_model"`
	NumCPU    int      `json:"num_cpu"`
	CacheKB   int      `json:"cache_kb,omitempty"` // As reported by the OS, usually the last level.
	LineBytes int      `json:"cache_line_bytes"`
	MemoryMB  uint64   `json:"memory_mb,omitempty"`
	Features  []string `json:"features,omitempty"`
	Counters  string   `json:"counters,omitempty"` // Counter backend name.
}

// DescribeHost gathers what gopsutil and x/sys/cpu know about the host.
// Missing information is left zero.
func DescribeHost() HostInfo {
	info := HostInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		LineBytes: matmul.DetectCacheParams().LineBytes,
		Features:  cpuFeatures(),
	}
	if stats, err := pscpu.Info(); err == nil && len(stats) > 0 {
		info.CPUModel = stats[0].ModelName
		info.CacheKB = int(stats[0].CacheSize)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemoryMB = vm.Total >> 20
	}
	return info
}

func cpuFeatures() []string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasAVX512F, "avx512f")
		add(cpu.X86.HasFMA, "fma")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "neon")
		add(cpu.ARM64.HasSVE, "sve")
	}
	return features
}

// WriteHost prints info as "key: value" lines.
func WriteHost(w io.Writer, info HostInfo) error {
	model := info.CPUModel
	if model == "" {
		model = "unknown"
	}
	lines := []string{
		fmt.Sprintf("Host: %s/%s, %d CPUs", info.OS, info.Arch, info.NumCPU),
		fmt.Sprintf("CPU: %s", model),
		fmt.Sprintf("Cache line: %d bytes", info.LineBytes),
	}
	if info.CacheKB > 0 {
		lines = append(lines, fmt.Sprintf("Cache: %d KB", info.CacheKB))
	}
	if info.MemoryMB > 0 {
		lines = append(lines, fmt.Sprintf("Memory: %d MB", info.MemoryMB))
	}
	if len(info.Features) > 0 {
		lines = append(lines, "Features: "+strings.Join(info.Features, " "))
	}
	if info.Counters != "" {
		lines = append(lines, "Counters: "+info.Counters)
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
