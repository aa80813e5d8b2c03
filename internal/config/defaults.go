package config

const (
	defaultProjectsDir        = "~/polyvox/projects"
	defaultLogDir             = "~/.local/share/polyvox/logs"
	defaultAPIBind            = "127.0.0.1:7519"
	defaultTextEngineBinary   = "bookwright"
	defaultTextEngineTimeout  = 1800
	defaultTTSBaseURL         = "http://127.0.0.1:8020"
	defaultTTSVoice           = "narrator"
	defaultTTSSpeed           = 1.0
	defaultTTSRequestTimeout  = 120
	defaultFFmpegBinary       = "ffmpeg"
	defaultAssemblyTimeout    = 3600
	defaultAssemblyPauseMs    = 600
	defaultNotifyTimeout      = 10
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectsDir: defaultProjectsDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		TextEngine: TextEngine{
			Binary:         defaultTextEngineBinary,
			TimeoutSeconds: defaultTextEngineTimeout,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			DefaultVoice:   defaultTTSVoice,
			DefaultSpeed:   defaultTTSSpeed,
			RequestTimeout: defaultTTSRequestTimeout,
		},
		Assembly: Assembly{
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultAssemblyTimeout,
			PauseMs:        defaultAssemblyPauseMs,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Workflow:       true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
