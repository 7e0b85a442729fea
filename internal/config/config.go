package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; nothing is required. DATABASE_URL
// selects the Postgres-backed session history when set, otherwise history
// is kept in memory.
type Config struct {
	// API server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Media server
	MediaPort     string
	MediaHost     string // externally reachable host placed in media URLs
	AssetDir      string
	TransferChunk int64 // default byte span for open-ended range requests

	// Database (optional)
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Text-to-speech engine
	TTSBaseURL  string
	TTSLanguage string
	TTSTimeout  time.Duration
	// Bitrate assumed when estimating asset duration from its size.
	// The synthesis engine's real output bitrate may differ per deployment.
	TTSBitrateBPS int

	// Playback coordination. These are empirically tuned; expect to adjust
	// them per deployment rather than treating them as fixed.
	NotificationVolume float64       // volume forced during a notification, 0..1
	AwaitActiveTimeout time.Duration // wait for the media session to become active
	SettleDelay        time.Duration // pause before the first status poll
	PollInterval       time.Duration // status poll period
	MinPlaybackTimeout time.Duration // floor for the completion deadline
	StartSlack         time.Duration // added to the size-based duration estimate
	DurationSlack      time.Duration // added once the device reports a real duration
	FlushGrace         time.Duration // absorbs audio still buffered on the device
	RestoreInterval    time.Duration // readiness poll period before restore
	RestoreAttempts    int

	// Worker
	DequeuePoll time.Duration // how often a blocked worker rechecks cancellation

	// Rate limiting: maximum notifications per minute per target
	RatePerMinute int

	// Statically configured endpoint websocket URLs, comma separated.
	// Discovery proper (mDNS) is expected to live outside the process.
	CastEndpoints []string
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		MediaPort:     getEnv("MEDIA_PORT", "15555"),
		MediaHost:     getEnv("MEDIA_HOST", ""),
		AssetDir:      getEnv("ASSET_DIR", "messages"),
		TransferChunk: int64(getInt("TRANSFER_CHUNK_BYTES", 16*1024)),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		TTSBaseURL:    getEnv("TTS_BASE_URL", "https://translate.google.com/translate_tts"),
		TTSLanguage:   getEnv("TTS_LANGUAGE", "en"),
		TTSTimeout:    getDuration("TTS_TIMEOUT", 15*time.Second),
		TTSBitrateBPS: getInt("TTS_BITRATE_BPS", 64000),

		NotificationVolume: getFloat("NOTIFICATION_VOLUME", 0.5),
		AwaitActiveTimeout: getDuration("AWAIT_ACTIVE_TIMEOUT", 10*time.Second),
		SettleDelay:        getDuration("SETTLE_DELAY", 1500*time.Millisecond),
		PollInterval:       getDuration("POLL_INTERVAL", 500*time.Millisecond),
		MinPlaybackTimeout: getDuration("MIN_PLAYBACK_TIMEOUT", 15*time.Second),
		StartSlack:         getDuration("START_SLACK", 10*time.Second),
		DurationSlack:      getDuration("DURATION_SLACK", 5*time.Second),
		FlushGrace:         getDuration("FLUSH_GRACE", 2*time.Second),
		RestoreInterval:    getDuration("RESTORE_INTERVAL", time.Second),
		RestoreAttempts:    getInt("RESTORE_ATTEMPTS", 10),

		DequeuePoll: getDuration("DEQUEUE_POLL", time.Second),

		RatePerMinute: getInt("RATE_LIMIT_PER_TARGET", 6),

		CastEndpoints: getList("CAST_ENDPOINTS"),
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
