package config

const (
	defaultMediaRoot                 = "~/.local/share/reel/media"
	defaultDataDir                   = "~/.local/share/reel/data"
	defaultLogDir                    = "~/.local/share/reel/logs"
	defaultAPIBind                   = "127.0.0.1:7519"
	defaultPublicBaseURL             = "http://127.0.0.1:7519"
	defaultEncoderBinary             = "ffmpeg"
	defaultEncoderMaxWidth           = 1280
	defaultEncodeTimeoutSeconds      = 7200
	defaultQueuePollInterval         = 5
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultMaxConcurrentEncodes      = 2
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaRoot: defaultMediaRoot,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Public: Public{
			BaseURL: defaultPublicBaseURL,
		},
		Encoder: Encoder{
			Binary:        defaultEncoderBinary,
			MaxWidth:      defaultEncoderMaxWidth,
			EncodeTimeout: defaultEncodeTimeoutSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:    defaultQueuePollInterval,
			HeartbeatInterval:    defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:     defaultWorkflowHeartbeatTimeout,
			MaxConcurrentEncodes: defaultMaxConcurrentEncodes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
