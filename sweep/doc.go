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

// Package sweep enumerates matrix-size and block-size grids and measures
// every point in a fixed order.
//
// Points are visited in ascending N and, for the blocked kernel, ascending
// block size within each N. Results never feed back into later inputs: a
// sweep is a pure walk over its grid that only stops early when a
// measurement fails fatally.
//
// Plans can be built in code, taken from BuiltinPlans, or loaded from YAML:
//
//	plans:
//	  - name: block
//	    kernel: block
//	    sizes: {from: 4096, to: 10240, step: 2048}
//	    block_sizes: {from: 32, to: 1024, factor: 2}
//	  - name: small
//	    kernel: line
//	    sizes: [64, 128, 256]
package sweep
