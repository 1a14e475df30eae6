package config

const (
	defaultDataDir               = "~/.local/share/storyloom/data"
	defaultLogDir                = "~/.local/share/storyloom/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultGeneratorBaseURL      = "https://openrouter.ai/api/v1"
	defaultGeneratorModel        = "google/gemini-3-flash-preview"
	defaultGeneratorPlatform     = "veo"
	defaultGeneratorTimeout      = 60
	defaultAnchorPointInterval   = 3
	defaultTargetSeconds         = 10
	defaultMinSeconds            = 8
	defaultMaxSeconds            = 12
	defaultSegmentTimeoutSeconds = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Generator: Generator{
			BaseURL:        defaultGeneratorBaseURL,
			Model:          defaultGeneratorModel,
			Platform:       defaultGeneratorPlatform,
			TimeoutSeconds: defaultGeneratorTimeout,
		},
		Pipeline: Pipeline{
			AnchorPointInterval:   defaultAnchorPointInterval,
			ValidateContinuity:    true,
			AutoCorrect:           true,
			TargetSeconds:         defaultTargetSeconds,
			MinSeconds:            defaultMinSeconds,
			MaxSeconds:            defaultMaxSeconds,
			PreferSceneBoundaries: true,
			SegmentTimeoutSeconds: defaultSegmentTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
