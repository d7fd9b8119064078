package config

const (
	defaultLogDir         = "~/.local/share/equirect/logs"
	defaultDataDir        = "~/.local/share/equirect"
	defaultFFmpegBinary   = "ffmpeg"
	defaultSegmentSeconds = 1
	defaultCodec          = "libx265"
	defaultCRF            = 18
	defaultPixelFormat    = "yuv420p"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			DataDir: defaultDataDir,
		},
		FFmpeg: FFmpeg{
			Binary:         defaultFFmpegBinary,
			SegmentSeconds: defaultSegmentSeconds,
		},
		Encoding: Encoding{
			Codec:       defaultCodec,
			CRF:         defaultCRF,
			PixelFormat: defaultPixelFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
