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

// Command matbench measures square matrix multiplication kernels against
// hardware L1/L2 data-cache miss counters.
//
// Usage:
//
//	matbench naive 1024                  # i-j-k kernel, one size
//	matbench line 600 1000 1400          # i-k-j kernel, several sizes
//	matbench block 4096 --block 32,64    # tiled kernel, explicit block sizes
//	matbench block 4096                  # tiled kernel, block size from L1 size
//	matbench sweep                       # every built-in plan
//	matbench sweep block --plans my.yaml # named plan from a YAML file
//	matbench plans                       # list plans
//	matbench host                        # describe the machine
//
// Hosts without a usable PMU (containers, some VMs) can run with
// --no-counters or MATBENCH_NO_COUNTERS=1; counts are then reported as zero.
package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
