package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ionbatch/internal/chem"
	"ionbatch/internal/config"
	"ionbatch/internal/identify"
	"ionbatch/internal/ingest"
	"ionbatch/internal/logging"
	"ionbatch/internal/pipeline"
	"ionbatch/internal/services"
)

type runFlags struct {
	ms1Files        []string
	ms2Files        []string
	ionTypes        []string
	formulas        []string
	autoCharge      bool
	trustMS1        bool
	mostIntenseMS2  bool
	autoElements    bool
	initialBuffer   int
	maxBuffer       int
	instanceTimeout int
	treeTimeout     int
	candidates      int
	cores           int
	maxMZ           float64
	parentMass      float64
	elements        string
	projectDir      string
	summaryFile     string
	name            string
}

// engineOverride replaces the configured engine binary. Tests set it.
var engineOverride identify.Engine

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [inputs...]",
		Short: "Identify every compound in the given spectrum files and directories",
		Long: "Identify every compound in the given spectrum files and directories.\n\n" +
			"Inputs may be .ms or .mgf files, or directories containing them. Files of other\n" +
			"formats are skipped with a warning.\n" +
			"A single compound can also be given directly with --ms2 (and optionally --ms1),\n" +
			"which requires exactly one --ion.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}

			opts := pipeline.Options{
				Inputs:        args,
				CandidatesSet: cmd.Flags().Changed("candidates"),
				Engine:        engineOverride,
				Out:           cmd.OutOrStdout(),
			}
			if opts.Formulas, err = chem.ParseFormulaList(flags.formulas); err != nil {
				return services.Wrap(services.ErrValidation, "cli", "run", "--formula", err)
			}
			opts.Direct = ingest.DirectInput{
				MS1Files:   flags.ms1Files,
				MS2Files:   flags.ms2Files,
				ParentMass: flags.parentMass,
				Name:       flags.name,
			}
			if len(opts.Formulas) == 1 {
				opts.Direct.Formula = opts.Formulas[0]
			}
			if len(args) == 0 && !opts.Direct.Enabled() {
				return services.Wrap(services.ErrValidation, "cli", "run", "no input given; pass spectrum files or directories, or --ms2", nil)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.Logger = logger
			logger.Debug("configuration loaded", logging.String("path", ctx.configPath))

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := pipeline.Run(runCtx, cfg, opts)
			if err != nil {
				return err
			}
			if result.WriteFailures > 0 {
				logging.WarnWithContext(logger, "some outcomes could not be stored", "outcome_write_failed",
					logging.Alert("incomplete_project"),
					logging.Int("count", result.WriteFailures),
					logging.String(logging.FieldImpact, "affected instances are missing from the project store"),
				)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&flags.ms1Files, "ms1", nil, "MS1 peak list file for direct input (repeatable)")
	f.StringSliceVar(&flags.ms2Files, "ms2", nil, "MS2 peak list file for direct input (repeatable)")
	f.StringSliceVar(&flags.ionTypes, "ion", nil, "Candidate ion type, e.g. [M+H]+ (repeatable)")
	f.StringSliceVarP(&flags.formulas, "formula", "f", nil, "Candidate molecular formula list")
	f.BoolVar(&flags.autoCharge, "auto-charge", false, "Consider every plausible ionization for the precursor charge")
	f.BoolVar(&flags.trustMS1, "trust-ms1", false, "Let MS1 evidence select the best ionization")
	f.BoolVar(&flags.mostIntenseMS2, "most-intense-ms2", false, "Keep only the most intense MS2 spectrum per instance")
	f.BoolVar(&flags.autoElements, "auto-elements", false, "Detect additional elements from MS1 isotope patterns")
	f.IntVar(&flags.initialBuffer, "initial-buffer", 0, "Instances loaded before the first submission (0 loads everything)")
	f.IntVar(&flags.maxBuffer, "max-buffer", 0, "Maximum resident instances")
	f.IntVar(&flags.instanceTimeout, "instance-timeout", 0, "Per-instance time limit in seconds (0 disables)")
	f.IntVar(&flags.treeTimeout, "tree-timeout", 0, "Per-tree time limit in seconds (0 disables)")
	f.IntVar(&flags.candidates, "candidates", 0, "Number of candidates to keep per instance")
	f.IntVar(&flags.cores, "cores", 0, "Worker count (0 uses every CPU)")
	f.Float64Var(&flags.maxMZ, "max-mz", 0, "Skip instances with a larger precursor m/z (0 disables)")
	f.Float64Var(&flags.parentMass, "parent-mass", 0, "Precursor m/z for direct input")
	f.StringVarP(&flags.elements, "elements", "e", "", "Element constraints, e.g. CHNOP[5]S")
	f.StringVar(&flags.projectDir, "project", "", "Override paths.project_dir")
	f.StringVar(&flags.summaryFile, "summary", "", "Write a TSV summary to this path")
	f.StringVar(&flags.name, "name", "", "Compound name for direct input")
	return cmd
}

// apply copies explicitly set flags over the loaded configuration and
// re-validates it.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("ion") {
		cfg.Ionization.IonTypes = append([]string(nil), f.ionTypes...)
	}
	if changed("auto-charge") {
		cfg.Ionization.AutoCharge = f.autoCharge
	}
	if changed("trust-ms1") {
		cfg.Ionization.TrustMS1 = f.trustMS1
	}
	if changed("most-intense-ms2") {
		cfg.Ingest.MostIntenseMS2 = f.mostIntenseMS2
	}
	if changed("auto-elements") {
		cfg.Ingest.AutoElements = f.autoElements
	}
	if changed("elements") {
		cfg.Ingest.Elements = f.elements
	}
	if changed("max-mz") {
		cfg.Ingest.MaxMZ = f.maxMZ
	}
	if changed("initial-buffer") {
		cfg.Scheduler.InitialBuffer = f.initialBuffer
	}
	if changed("max-buffer") {
		cfg.Scheduler.MaxBuffer = f.maxBuffer
	}
	if changed("cores") {
		cfg.Scheduler.Cores = f.cores
	}
	if changed("instance-timeout") {
		cfg.Identification.InstanceTimeout = f.instanceTimeout
	}
	if changed("tree-timeout") {
		cfg.Identification.TreeTimeout = f.treeTimeout
	}
	if changed("candidates") {
		cfg.Identification.Candidates = f.candidates
	}
	if changed("project") {
		cfg.Paths.ProjectDir = f.projectDir
	}
	if changed("summary") {
		cfg.Paths.SummaryFile = f.summaryFile
	}

	if err := cfg.Normalize(); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "run", "apply flags", err)
	}
	if err := cfg.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "run", "invalid flags", err)
	}
	return nil
}
