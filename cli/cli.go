// Copyright 2010-2024 Google LLC
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

// Package cli implements the backbone command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"gopkg.in/yaml.v3"

	"github.com/google/or-tools/backbone/extractor"
	"github.com/google/or-tools/backbone/model"
	"github.com/google/or-tools/backbone/oracle"
)

// OptimumParam is the parameter giving the known optimum of the model. It is
// not passed to the solver.
const OptimumParam = "BackboneOptimum"

const usage = "backbone [flags] [param=value ...] <instanceFile> <backboneFile>"

// ArgumentError reports a positional argument which is not a `name=value`
// pair.
type ArgumentError struct {
	Arg string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("Invalid argument format: %s. Expected format: ParamName=Value.", e.Arg)
}

// Options holds the flags of the backbone command.
type Options struct {
	ParamFile       string
	MetricsTextfile string
	SummaryFile     string

	StdOut io.Writer
	StdErr io.Writer

	// createLog opens the backbone log; extractor.CreateLogFile if nil.
	createLog func(path string) (*extractor.LogWriter, error)
}

// NewOptions returns the default options, writing to `out` and `errOut`.
func NewOptions(out, errOut io.Writer) *Options {
	return &Options{StdOut: out, StdErr: errOut, createLog: extractor.CreateLogFile}
}

// NewCommand returns the backbone command. Its solves are interrupted when
// `ctx` is cancelled.
func NewCommand(ctx context.Context, defaults *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   usage,
		Short: "Extract the backbone of a binary model",
		Long: `Extract the backbone of a binary model: the binary variables taking the same
value in every optimal solution, or every feasible solution if the model has
no objective.

Each backbone variable is written to the backbone file as soon as it is
found, as "b <name>" if it is true and "b -<name>" if it is false, where the
first character of the name is dropped. A final "b 0" line marks a complete
backbone.

The instance file is read as OPB (.opb) or DIMACS CNF (.cnf, .dimacs),
possibly gzipped (.gz). Parameters are passed to the solver, except
BackboneOptimum which gives the optimal objective value of the model.`,
		Args: func(c *cobra.Command, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("usage: %s", usage)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return defaults.Run(ctx, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&defaults.ParamFile, "param_file", defaults.ParamFile, "YAML file mapping parameter names to values, overridden by positional parameters")
	flags.StringVar(&defaults.MetricsTextfile, "metrics_textfile", defaults.MetricsTextfile, "file receiving the run metrics in the Prometheus text format")
	flags.StringVar(&defaults.SummaryFile, "summary_file", defaults.SummaryFile, "file receiving the run summary as JSON")
	cmd.SetOut(defaults.StdOut)
	cmd.SetErr(defaults.StdErr)
	return cmd
}

// Run extracts the backbone of the model named by the second to last
// argument into the file named by the last argument. The other arguments are
// `name=value` parameters.
func (o *Options) Run(ctx context.Context, args []string) (err error) {
	instanceFile, backboneFile := args[len(args)-2], args[len(args)-1]
	params, optimum, err := o.parameters(args[:len(args)-2])
	if err != nil {
		return err
	}

	start := time.Now()
	m, err := model.ReadFile(instanceFile)
	if err != nil {
		return err
	}
	log.Infof("Loaded %s: %d variables (%d binary), %d constraints", m.Name(), m.NumVars(), len(m.BinaryVars()), m.NumConstraints())
	solver, err := oracle.NewGiniSolver(m, params)
	if err != nil {
		return fmt.Errorf("creating solver: %w", err)
	}
	createLog := o.createLog
	if createLog == nil {
		createLog = extractor.CreateLogFile
	}
	backboneLog, err := createLog(backboneFile)
	if err != nil {
		return err
	}
	defer func() {
		cerr := backboneLog.Close()
		switch {
		case cerr == nil:
		case err == nil:
			err = fmt.Errorf("closing backbone log: %w", cerr)
		default:
			log.Errorf("Closing backbone log: %v", cerr)
		}
	}()

	reg := prometheus.NewRegistry()
	opts := []extractor.Option{
		extractor.WithProgress(o.StdOut),
		extractor.WithMetrics(extractor.NewMetrics(reg)),
	}
	if optimum != nil {
		opts = append(opts, extractor.WithKnownOptimum(*optimum))
	}
	summary, runErr := extractor.New(solver, backboneLog, opts...).Run(ctx)
	fmt.Fprintf(o.StdOut, "TOTAL RUNTIME: %d microseconds\n", time.Since(start).Microseconds())
	log.Infof("Backbone extraction of %s: %v, %d backbone variables, %d solves", m.Name(), summary.Outcome, summary.Backbones, summary.Solves)

	if err := o.writeReports(reg, summary); err != nil {
		if runErr == nil {
			return err
		}
		log.Errorf("Writing reports: %v", err)
	}
	return runErr
}

// parameters merges the parameter file and the `name=value` arguments. The
// known optimum is returned separately.
func (o *Options) parameters(args []string) (oracle.Parameters, *float64, error) {
	params := oracle.Parameters{}
	var optimum *float64
	set := func(name, value string) error {
		if name != OptimumParam {
			params[name] = value
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid value %q for %s", value, OptimumParam)
		}
		optimum = &v
		return nil
	}

	if o.ParamFile != "" {
		pairs, err := readParamFile(o.ParamFile)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range pairs {
			if err := set(p[0], p[1]); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", o.ParamFile, err)
			}
		}
	}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, nil, &ArgumentError{Arg: arg}
		}
		if err := set(name, value); err != nil {
			return nil, nil, err
		}
	}
	return params, optimum, nil
}

// readParamFile reads a YAML mapping of parameter names to scalar values. The
// values are kept as written.
func readParamFile(path string) ([][2]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing parameter file %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parameter file %s: line %d: expected a mapping of parameter names to values", path, root.Line)
	}
	var pairs [][2]string
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parameter file %s: line %d: value of %s is not a scalar", path, v.Line, k.Value)
		}
		pairs = append(pairs, [2]string{k.Value, v.Value})
	}
	return pairs, nil
}

func (o *Options) writeReports(reg *prometheus.Registry, summary *extractor.Summary) error {
	if o.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(o.MetricsTextfile, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	if o.SummaryFile != "" {
		pb, err := summary.Proto()
		if err != nil {
			return err
		}
		data, err := protojson.MarshalOptions{Multiline: true}.Marshal(pb)
		if err != nil {
			return err
		}
		if err := os.WriteFile(o.SummaryFile, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	return nil
}
