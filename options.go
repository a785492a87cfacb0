package pdfhtml

import (
	"io"
	"log"
	"time"
)

// converterConfig holds internal configuration for a Converter.
type converterConfig struct {
	scale         float64
	fontforgePath string
	rasterPath    string
	timeout       time.Duration
	logger        *log.Logger
}

func defaultConfig() converterConfig {
	return converterConfig{
		scale:   2.0,
		timeout: 5 * time.Minute,
		logger:  log.New(io.Discard, "", 0),
	}
}

// Option configures a [Converter].
type Option func(*converterConfig)

// WithScale sets the rendering scale factor. Page images are rasterized at
// 72*scale DPI and all text geometry is multiplied by the same factor.
// Defaults to 2.0.
func WithScale(scale float64) Option {
	return func(c *converterConfig) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// WithFontForgePath sets the path to the fontforge executable. By default
// the library searches PATH.
func WithFontForgePath(path string) Option {
	return func(c *converterConfig) {
		c.fontforgePath = path
	}
}

// WithRasterizerPath sets the path to the mutool executable used for page
// rasterization. By default the library searches PATH for mutool, then
// pdftoppm.
func WithRasterizerPath(path string) Option {
	return func(c *converterConfig) {
		c.rasterPath = path
	}
}

// WithTimeout sets the maximum duration for a single conversion.
// Defaults to 5 minutes. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *converterConfig) {
		c.timeout = d
	}
}

// WithLogger sets a logger for per-font and per-run diagnostics, such as
// fonts that degraded to a system fallback. Logging is off by default.
func WithLogger(l *log.Logger) Option {
	return func(c *converterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
