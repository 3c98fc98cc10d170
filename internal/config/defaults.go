package config

// Default configuration values.
const (
	defaultPendingDir = "~/tracuu/Input/Chưa xử lý"
	defaultDoneDir    = "~/tracuu/Input/Đã xử lý"
	defaultOutputDir  = "~/tracuu/Output"
	defaultLogDir     = "~/.local/share/tracuu/logs"
	defaultStateDir   = "~/.local/share/tracuu"

	defaultRowSleepMinSeconds  = 6
	defaultRowSleepMaxSeconds  = 12
	defaultLongBreakEveryRows  = 60
	defaultLongBreakMinSeconds = 240
	defaultLongBreakMaxSeconds = 420
	defaultCheckpointEveryRows = 30

	defaultMasothueBaseURL = "https://masothue.com"
	defaultTVPLSearchURL   = "https://thuvienphapluat.vn/ma-so-thue/tra-cuu-ma-so-thue-doanh-nghiep"

	defaultVitaxURL          = "https://api.vitax.one/api/partner/Invoices/getMST"
	defaultVietQRURL         = "https://api.vietqr.io/v2/business"
	defaultRequestTimeout    = 30
	defaultMaxAttempts       = 5
	defaultBackoffCapSeconds = 60

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	defaultNotificationTimeout = 30

	defaultPrefetchWorkers       = 8
	defaultPrefetchRatePerSecond = 4.0

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			PendingDir: defaultPendingDir,
			DoneDir:    defaultDoneDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Pacing: Pacing{
			RowSleepMinSeconds:  defaultRowSleepMinSeconds,
			RowSleepMaxSeconds:  defaultRowSleepMaxSeconds,
			LongBreakEveryRows:  defaultLongBreakEveryRows,
			LongBreakMinSeconds: defaultLongBreakMinSeconds,
			LongBreakMaxSeconds: defaultLongBreakMaxSeconds,
			CheckpointEveryRows: defaultCheckpointEveryRows,
		},
		Registry: Registry{
			MasothueBaseURL: defaultMasothueBaseURL,
			TVPLSearchURL:   defaultTVPLSearchURL,
			RequestTimeout:  defaultRequestTimeout,
		},
		Lookup: Lookup{
			VitaxURL:          defaultVitaxURL,
			VietQRURL:         defaultVietQRURL,
			RequestTimeout:    defaultRequestTimeout,
			MaxAttempts:       defaultMaxAttempts,
			BackoffCapSeconds: defaultBackoffCapSeconds,
		},
		Session: Session{
			UserAgent:  defaultUserAgent,
			CookieFile: "",
			WarmUp:     true,
		},
		Names: Names{
			ExpandAbbreviations: true,
			ExtraAbbreviations:  map[string]string{},
		},
		Cache: Cache{
			Enabled: true,
			Path:    "",
		},
		Notifications: Notifications{
			NtfyTopic:      "",
			RequestTimeout: defaultNotificationTimeout,
			Challenge:      true,
			BatchComplete:  true,
			Errors:         true,
		},
		Prefetch: Prefetch{
			Workers:       defaultPrefetchWorkers,
			RatePerSecond: defaultPrefetchRatePerSecond,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
