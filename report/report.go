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

// Package report writes measurement results as a text table, JSON lines or
// CSV, and describes the host they were measured on.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ajroetker/go-matbench/harness"
)

// Writer consumes results one at a time.
type Writer interface {
	Write(res harness.Result) error
	Flush() error
}

// Format names accepted by NewWriter.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Formats lists the supported formats.
var Formats = []string{FormatText, FormatJSON, FormatCSV}

// NewWriter returns the writer for format.
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewTextWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	}
	return nil, fmt.Errorf("report: unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

func blockColumn(res harness.Result) string {
	if res.BlockSize == 0 {
		return "-"
	}
	return strconv.Itoa(res.BlockSize)
}

// statusColumn is "ok" or "degraded:" followed by the failed steps.
func statusColumn(f harness.Failures) string {
	if !f.Any() {
		return "ok"
	}
	var steps []string
	for _, step := range []struct {
		name   string
		failed bool
	}{{"setup", f.Setup}, {"start", f.Start}, {"stop", f.Stop}, {"reset", f.Reset}} {
		if step.failed {
			steps = append(steps, step.name)
		}
	}
	return "degraded:" + strings.Join(steps, ",")
}

func formatPreview(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// TextWriter prints an aligned table. Rows are buffered until Flush.
type TextWriter struct {
	tw          *tabwriter.Writer
	wroteHeader bool
}

// NewTextWriter returns a TextWriter on w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (t *TextWriter) Write(res harness.Result) error {
	if !t.wroteHeader {
		t.wroteHeader = true
		if _, err := fmt.Fprintln(t.tw, "KERNEL\tN\tBLOCK\tTIME(s)\tGFLOPS\tL1 DCM\tL2 DCM\tSTATUS\tPREVIEW"); err != nil {
			return err
		}
	}
	status := statusColumn(res.Failures)
	_, err := fmt.Fprintf(t.tw, "%s\t%d\t%s\t%.3f\t%.3f\t%d\t%d\t%s\t%s\n",
		res.Kernel, res.N, blockColumn(res), res.Seconds(), res.GFLOPS(),
		res.Counters.L1DataMisses, res.Counters.L2DataMisses, status, formatPreview(res.Preview))
	return err
}

func (t *TextWriter) Flush() error {
	return t.tw.Flush()
}

// JSONWriter emits one JSON object per result.
type JSONWriter struct {
	enc *json.Encoder
}

// NewJSONWriter returns a JSONWriter on w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

// jsonResult adds derived fields to harness.Result.
type jsonResult struct {
	harness.Result
	Seconds  float64 `json:"seconds"`
	GFLOPS   float64 `json:"gflops"`
	Degraded bool    `json:"degraded"`
}

func (j *JSONWriter) Write(res harness.Result) error {
	return j.enc.Encode(jsonResult{
		Result:   res,
		Seconds:  res.Seconds(),
		GFLOPS:   res.GFLOPS(),
		Degraded: res.Degraded(),
	})
}

func (j *JSONWriter) Flush() error { return nil }

// CSVHeader is the first record written by CSVWriter.
var CSVHeader = []string{"kernel", "n", "block_size", "seconds", "gflops", "l1_dcm", "l2_dcm",
	"setup_failed", "start_failed", "stop_failed", "reset_failed", "session"}

// CSVWriter emits comma separated records.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter returns a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) Write(res harness.Result) error {
	if !c.wroteHeader {
		c.wroteHeader = true
		if err := c.w.Write(CSVHeader); err != nil {
			return err
		}
	}
	return c.w.Write([]string{
		res.Kernel.String(),
		strconv.Itoa(res.N),
		strconv.Itoa(res.BlockSize),
		strconv.FormatFloat(res.Seconds(), 'f', 6, 64),
		strconv.FormatFloat(res.GFLOPS(), 'f', 6, 64),
		strconv.FormatInt(res.Counters.L1DataMisses, 10),
		strconv.FormatInt(res.Counters.L2DataMisses, 10),
		strconv.FormatBool(res.Failures.Setup),
		strconv.FormatBool(res.Failures.Start),
		strconv.FormatBool(res.Failures.Stop),
		strconv.FormatBool(res.Failures.Reset),
		res.SessionID,
	})
}

func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
