package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/api"
	"github.com/mmrzaf/mlpractice/internal/app"
	"github.com/mmrzaf/mlpractice/internal/config"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/mmrzaf/mlpractice/internal/infra/repos/runs"
	"github.com/mmrzaf/mlpractice/internal/logging"
	"github.com/mmrzaf/mlpractice/internal/profile"
	"github.com/mmrzaf/mlpractice/internal/registry"
	"github.com/mmrzaf/mlpractice/internal/timeutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfg        *config.Config
	runsDBPath string
	runsDBKind string
	logLevel   string
	logFormat  string
)

func main() {
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:           "mlpractice",
		Short:         "Reproducible synthetic datasets for ML practice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&runsDBPath, "runs-db", cfg.RunsDBPath, "Runs database path or DSN")
	rootCmd.PersistentFlags().StringVar(&runsDBKind, "runs-db-kind", cfg.RunsDBKind, "Runs database kind (sqlite|postgres)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", cfg.LogFormat, "Log format (json|console)")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(datasetCmd())
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *logging.Logger {
	return logging.New(logLevel, logFormat, os.Stderr)
}

// openService connects the run ledger unless disabled. The returned close
// function is always safe to call.
func openService(logger *logging.Logger, withLedger bool) (*app.RunService, func(), error) {
	defaults := app.Defaults{Seed: cfg.Seed, OutputDir: cfg.OutputDir}
	if !withLedger {
		return app.NewRunService(nil, registry.DefaultGeneratorRegistry(), logger, defaults), func() {}, nil
	}

	repo, err := runs.Open(runsDBKind, runsDBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Init(); err != nil {
		return nil, nil, errors.Wrapf(err, "init runs db %s", runs.RedactDSN(runsDBPath))
	}
	svc := app.NewRunService(repo, registry.DefaultGeneratorRegistry(), logger, defaults)
	return svc, func() { _ = repo.Close() }, nil
}

type requestFlags struct {
	outputDir   string
	seed        int64
	students    int64
	emails      int64
	months      int64
	profilePath string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Output directory (default from MLPRACTICE_OUTPUT_DIR)")
	cmd.Flags().Int64VarP(&f.seed, "seed", "s", 0, "Seed for the random stream (default from MLPRACTICE_SEED)")
	cmd.Flags().Int64Var(&f.students, "students", 0, "Rows of student_performance")
	cmd.Flags().Int64Var(&f.emails, "emails", 0, "Rows of email_spam")
	cmd.Flags().Int64Var(&f.months, "months", 0, "Rows of sales_forecast")
	cmd.Flags().StringVar(&f.profilePath, "profile", "", "Profile file (YAML or JSON) with seed, output_dir and counts")
}

// request starts from the profile, if any, and applies explicitly set flags
// on top of it.
func (f *requestFlags) request(cmd *cobra.Command) (*domain.RunRequest, error) {
	req := &domain.RunRequest{}
	if f.profilePath != "" {
		p, err := profile.Load(f.profilePath)
		if err != nil {
			return nil, err
		}
		req = p.RunRequest()
	}
	if req.Counts == nil {
		req.Counts = map[string]any{}
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		req.OutputDir = f.outputDir
	}
	if flags.Changed("seed") {
		seed := f.seed
		req.Seed = &seed
	}
	if flags.Changed("students") {
		req.Counts[domain.StudentPerformance] = f.students
	}
	if flags.Changed("emails") {
		req.Counts[domain.EmailSpam] = f.emails
	}
	if flags.Changed("months") {
		req.Counts[domain.SalesForecast] = f.months
	}
	return req, nil
}

func generateCmd() *cobra.Command {
	var (
		rf       requestFlags
		noLedger bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate all datasets as CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request(cmd)
			if err != nil {
				return err
			}

			svc, closeFn, err := openService(newLogger(), !noLedger)
			if err != nil {
				return err
			}
			defer closeFn()

			run, err := svc.Run(req)
			if err != nil {
				if run != nil && run.ID != "" {
					return errors.Wrapf(err, "run %s failed", run.ID)
				}
				return err
			}

			var stats domain.RunStats
			if err := json.Unmarshal(run.Stats, &stats); err != nil {
				return errors.Wrap(err, "decode run stats")
			}

			if run.ID != "" {
				fmt.Printf("Run %s completed\n", run.ID)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATASET\tROWS\tCOLUMNS\tPATH")
			for _, d := range stats.Datasets {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", d.Name, d.Rows, d.Columns, d.Path)
			}
			w.Flush()
			fmt.Printf("Total rows: %d\n", stats.TotalRows)
			fmt.Printf("Duration: %.2fs\n", stats.DurationSeconds)
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "Do not record the run in the runs database")
	return cmd
}

func planCmd() *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what generate would produce without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request(cmd)
			if err != nil {
				return err
			}

			svc, _, err := openService(newLogger(), false)
			if err != nil {
				return err
			}
			plan, err := svc.Plan(req)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(plan)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect dataset schemas",
	}

	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := api.Datasets(registry.DefaultGeneratorRegistry())
			if err != nil {
				return err
			}

			if format == "json" {
				data, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDEFAULT ROWS\tCOLUMNS\tORDERED")
			for _, d := range list {
				fmt.Fprintf(w, "%s\t%d\t%d\t%t\n", d.Name, d.DefaultCount, len(d.Schema.Columns), d.Schema.Ordered)
			}
			w.Flush()
			return nil
		},
	}
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a dataset schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := registry.DefaultGeneratorRegistry().Get(args[0])
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(gen.Schema())
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inspect recorded runs",
	}

	var (
		limit  int
		status string
		format string
	)
	since := timeutil.NewCutoff(nil)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(newLogger(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := svc.ListRuns(limit, status)
			if err != nil {
				return err
			}
			if since.IsSet() {
				kept := list[:0]
				for _, r := range list {
					if since.Admits(r.StartedAt) {
						kept = append(kept, r)
					}
				}
				list = kept
			}

			if format == "json" {
				data, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSEED\tSTATUS\tSTARTED\tOUTPUT")
			for _, r := range list {
				id := r.ID
				if len(id) > 8 {
					id = id[:8]
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					id, r.Seed, r.Status, r.StartedAt.Local().Format("2006-01-02 15:04"), r.OutputDir)
			}
			w.Flush()
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Limit results")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (running|success|failed)")
	listCmd.Flags().Var(since, "since", "Only runs started after this time (RFC 3339 or offset such as -7d)")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json)")

	showCmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(newLogger(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			run, err := svc.GetRun(args[0])
			if err != nil {
				return err
			}

			out := struct {
				domain.Run `yaml:",inline"`
				Stats      *domain.RunStats `yaml:"stats,omitempty"`
			}{Run: *run}
			if len(run.Stats) > 0 {
				var stats domain.RunStats
				if err := json.Unmarshal(run.Stats, &stats); err != nil {
					return errors.Wrap(err, "decode run stats")
				}
				out.Stats = &stats
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <run_id>",
		Short: "Check that a run's files still match their recorded digests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(newLogger(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			checks, err := svc.VerifyRun(args[0])
			if err != nil {
				return err
			}

			failed := 0
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATASET\tSTATUS\tPATH")
			for _, c := range checks {
				state := "ok"
				switch {
				case c.Error != "":
					state = "missing"
					failed++
				case !c.OK:
					state = "changed"
					failed++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Dataset, state, c.Path)
			}
			w.Flush()
			if failed > 0 {
				return errors.Newf("%d of %d files do not match", failed, len(checks))
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, verifyCmd)
	return cmd
}
