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

// Package perfcount exposes hardware cache-miss counters.
//
// A process initializes the subsystem once, creates at most one counter Set
// at a time, adds the events it wants, and brackets the code under study
// with Start and Stop:
//
//	sub, err := perfcount.Init(perfcount.Config{})
//	if err != nil {
//		log.Fatal(err) // no usable PMU
//	}
//	defer sub.Close()
//
//	set, _ := sub.NewSet()
//	defer set.Destroy()
//	_ = set.Add(perfcount.L1DataCacheMisses)
//	_ = set.Start()
//	work()
//	counts, _ := set.Stop() // one value per added event, in Add order
//	_ = set.Reset()
//
// On Linux counters are backed by perf_event_open(2) and count user-space
// activity of the OS thread that created the Set; NewSet locks the calling
// goroutine to that thread until Destroy. Other platforms only offer Nop.
package perfcount
