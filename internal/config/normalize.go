package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTextEngine()
	c.normalizeTTS()
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.ProjectsDir, err = expandPath(c.Paths.ProjectsDir); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTextEngine() {
	c.TextEngine.Binary = strings.TrimSpace(c.TextEngine.Binary)
	if c.TextEngine.Binary == "" {
		c.TextEngine.Binary = defaultTextEngineBinary
	}
	c.TextEngine.Provider = strings.TrimSpace(c.TextEngine.Provider)
	c.TextEngine.Model = strings.TrimSpace(c.TextEngine.Model)
	if c.TextEngine.TimeoutSeconds <= 0 {
		c.TextEngine.TimeoutSeconds = defaultTextEngineTimeout
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.DefaultVoice = strings.TrimSpace(c.TTS.DefaultVoice)
	if c.TTS.DefaultVoice == "" {
		c.TTS.DefaultVoice = defaultTTSVoice
	}
	if c.TTS.DefaultSpeed == 0 {
		c.TTS.DefaultSpeed = defaultTTSSpeed
	}
	if c.TTS.RequestTimeout <= 0 {
		c.TTS.RequestTimeout = defaultTTSRequestTimeout
	}
}

func (c *Config) normalizeAssembly() {
	c.Assembly.FFmpegBinary = strings.TrimSpace(c.Assembly.FFmpegBinary)
	if c.Assembly.FFmpegBinary == "" {
		c.Assembly.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Assembly.TimeoutSeconds <= 0 {
		c.Assembly.TimeoutSeconds = defaultAssemblyTimeout
	}
	if c.Assembly.PauseMs < 0 {
		c.Assembly.PauseMs = defaultAssemblyPauseMs
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
