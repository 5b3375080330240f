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

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ajroetker/go-matbench/matmul"
	"github.com/ajroetker/go-matbench/perfcount"
	"github.com/ajroetker/go-matbench/report"
	"github.com/ajroetker/go-matbench/sweep"
)

func parseSizes(args []string) (sweep.Sequence, error) {
	sizes := make(sweep.Sequence, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid matrix size %q", arg)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

// runPlans measures ad-hoc plans built from the command line.
func (a *app) runPlans(cmd *cobra.Command, plans []sweep.Plan) error {
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if err := a.open(cmd); err != nil {
		return err
	}
	_, err := sweep.NewDriver(a.harness, a.logger).RunAll(plans, a.emit)
	return errors.Join(err, a.out.Flush())
}

func (a *app) kernelCommand(name, short string, aliases ...string) *cobra.Command {
	kernel, err := matmul.ParseKernel(name)
	if err != nil {
		panic(err)
	}
	return &cobra.Command{
		Use:     name + " N [N...]",
		Aliases: aliases,
		Short:   short,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes, err := parseSizes(args)
			if err != nil {
				return err
			}
			return a.runPlans(cmd, []sweep.Plan{{Name: name, Kernel: kernel, Sizes: sizes}})
		},
	}
}

func (a *app) blockCommand() *cobra.Command {
	var blockSizes []int
	cmd := &cobra.Command{
		Use:     "block N [N...]",
		Aliases: []string{"blocked"},
		Short:   "Multiply with cache tiles of the given block sizes",
		Long: "Multiply with cache tiles of the given block sizes. Every N is run with\n" +
			"every --block value. Without --block each N is run once, with the largest\n" +
			"power of two block size whose three tiles fit in a 32KB L1.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sizes, err := parseSizes(args)
			if err != nil {
				return err
			}
			plans, err := blockPlans(sizes, blockSizes, matmul.DetectCacheParams())
			if err != nil {
				return err
			}
			return a.runPlans(cmd, plans)
		},
	}
	cmd.Flags().IntSliceVarP(&blockSizes, "block", "b", nil, "Block sizes (comma separated or repeated)")
	return cmd
}

// blockPlans crosses sizes with blockSizes, or pairs each size with its
// suggested block size when blockSizes is empty.
func blockPlans(sizes sweep.Sequence, blockSizes []int, params matmul.CacheParams) ([]sweep.Plan, error) {
	if len(blockSizes) > 0 {
		return []sweep.Plan{{Name: "block", Kernel: matmul.KernelBlocked, Sizes: sizes, BlockSizes: blockSizes}}, nil
	}
	sorted, err := sizes.Sorted()
	if err != nil {
		return nil, err
	}
	return lo.Map(sorted, func(n int, _ int) sweep.Plan {
		return sweep.Plan{
			Name:       "block",
			Kernel:     matmul.KernelBlocked,
			Sizes:      sweep.Sequence{n},
			BlockSizes: sweep.Sequence{params.SuggestBlockSize(n)},
		}
	}), nil
}

func (a *app) loadPlans() ([]sweep.Plan, error) {
	if a.opts.planFile == "" {
		return sweep.BuiltinPlans(), nil
	}
	return sweep.LoadPlanFile(a.opts.planFile)
}

func (a *app) sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [PLAN...]",
		Short: "Run sweep plans (all plans when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := a.loadPlans()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				selected := make([]sweep.Plan, 0, len(args))
				for _, name := range args {
					p, ok := sweep.FindPlan(plans, name)
					if !ok {
						return fmt.Errorf("unknown plan %q (have %s)", name, strings.Join(sweep.PlanNames(plans), ", "))
					}
					selected = append(selected, p)
				}
				plans = selected
			}
			if err := a.open(cmd); err != nil {
				return err
			}
			_, err = sweep.NewDriver(a.harness, a.logger).RunAll(plans, a.emit)
			return errors.Join(err, a.out.Flush())
		},
	}
}

func (a *app) plansCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List sweep plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := a.loadPlans()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range plans {
				points, err := p.Points()
				if err != nil {
					return err
				}
				line := fmt.Sprintf("%-12s %-6s sizes=%v", p.Name, p.Kernel, []int(p.Sizes))
				if p.Kernel.NeedsBlockSize() {
					line += fmt.Sprintf(" blocks=%v", []int(p.BlockSizes))
				}
				fmt.Fprintf(out, "%s runs=%d\n", line, len(points))
			}
			return nil
		},
	}
}

func (a *app) hostCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Describe the host and counter availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := report.DescribeHost()
			cfg, err := a.counterConfig(cmd.Flags())
			if err != nil {
				return err
			}
			sub, err := perfcount.Open(cfg)
			if err != nil {
				info.Counters = "unavailable: " + err.Error()
			} else {
				info.Counters = sub.Name()
				_ = sub.Close()
			}
			return report.WriteHost(cmd.OutOrStdout(), info)
		},
	}
}
