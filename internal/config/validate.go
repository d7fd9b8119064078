package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.SegmentSeconds < 1 {
		return errors.New("ffmpeg.segment_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.Codec == "" {
		return errors.New("encoding.codec must be set")
	}
	if c.Encoding.CRF < 0 || c.Encoding.CRF > 51 {
		return errors.New("encoding.crf must be between 0 and 51")
	}
	if c.Encoding.PixelFormat == "" {
		return errors.New("encoding.pix_fmt must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
