package config

const (
	defaultProjectDir          = "~/.local/share/ionbatch/project"
	defaultLogDir              = "~/.local/share/ionbatch/logs"
	defaultLogRetentionDays    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultMaxMZ               = 850
	defaultElements            = "CHNOP[5]S"
	defaultInitialBuffer       = 32
	defaultMaxBuffer           = 64
	defaultEngineBinary        = "ionbatch-engine"
	defaultEngineEnv           = "IONBATCH_ENGINE"
	defaultCandidates          = 10
	defaultIsotopeMode         = "both"
	defaultPPMMax              = 10
	defaultSummaryLimit        = 5
	defaultInstanceTimeoutSecs = 0
	defaultTreeTimeoutSecs     = 0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir: defaultProjectDir,
			LogDir:     defaultLogDir,
		},
		Ingest: Ingest{
			MaxMZ:    defaultMaxMZ,
			Elements: defaultElements,
		},
		Scheduler: Scheduler{
			InitialBuffer: defaultInitialBuffer,
			MaxBuffer:     defaultMaxBuffer,
		},
		Identification: Identification{
			EngineBinary:    defaultEngineBinary,
			InstanceTimeout: defaultInstanceTimeoutSecs,
			TreeTimeout:     defaultTreeTimeoutSecs,
			Candidates:      defaultCandidates,
			IsotopeMode:     defaultIsotopeMode,
			PPMMax:          defaultPPMMax,
			SummaryLimit:    defaultSummaryLimit,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
