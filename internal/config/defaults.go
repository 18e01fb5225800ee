package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Discord: DiscordConfig{},
		Backend: BackendConfig{
			BaseURL:               "http://localhost:1212",
			ConnectTimeoutSeconds: 5,
			RequestTimeoutSeconds: 15,
			Retry: RetryConfig{
				MaxAttempts:    3,
				InitialDelayMs: 500,
				MaxDelayMs:     5000,
			},
		},
		Router: RouterConfig{
			MaxConcurrentEvents: 8,
			BusBuffer:           100,
		},
		Health: HealthConfig{
			Addr:              "127.0.0.1:8995",
			IntervalSeconds:   30,
			MemFreeThreshold:  0.10,
			DiskFreeThreshold: 0.10,
		},
		Jobs: JobsConfig{
			HeartbeatIntervalSeconds: 60,
			WatchdogIntervalSeconds:  30,
			WatchdogTolerance:        3,
		},
		Audit: AuditConfig{
			Enabled:       true,
			DBPath:        "~/.gridbot/audit.db",
			RetentionDays: 90,
		},
	}
}
