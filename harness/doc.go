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

// Package harness times a single kernel invocation and samples the L1 and
// L2 data-cache miss counters around it.
//
// The counter handle is explicit: a Session owns the perfcount.Set and is
// handed to New, so nothing in the package is global.
//
//	sess := harness.OpenSession(sub, logger)
//	defer sess.Close()
//	h := harness.New(sess, harness.WithLogger(logger))
//	res, err := h.Measure(harness.Run{Kernel: matmul.KernelBlocked, N: 4096, BlockSize: 64})
//
// Measure allocates fresh operands for every run and brackets only the
// kernel call with Start and Stop, so allocation and reporting never leak
// into the counts. Counters are reset before Measure returns.
package harness
