package svgpng

import "time"

// config holds internal configuration shared by a [Converter], its
// [Worker] and [Controller].
type config struct {
	engine       Engine
	chromePath   string
	noSandbox    bool
	headless     string
	autoDownload bool

	navTimeout  time.Duration
	opTimeout   time.Duration
	settleDelay time.Duration
	attempts    int
	retryDelay  time.Duration

	strict bool
	log    Logger
}

func defaultConfig() config {
	return config{
		headless:    "new",
		navTimeout:  30 * time.Second,
		opTimeout:   60 * time.Second,
		settleDelay: 250 * time.Millisecond,
		attempts:    3,
		retryDelay:  500 * time.Millisecond,
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.engine == nil {
		cfg.engine = NewChromedpEngine()
	}
	if cfg.log == nil {
		cfg.log = DefaultLogger()
	}
	if cfg.attempts < 1 {
		cfg.attempts = 1
	}
	return cfg
}

// Option configures a [Converter].
type Option func(*config)

// WithEngine sets the browser engine used to render the SVG.
// Defaults to [NewChromedpEngine].
func WithEngine(e Engine) Option {
	return func(c *config) {
		c.engine = e
	}
}

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the engine searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithAutoDownload downloads a compatible browser on first use when
// none is configured with [WithChromePath].
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithTimeout sets the maximum time to wait for the wrapper page to
// finish loading. Defaults to 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.navTimeout = d
	}
}

// WithOperationTimeout bounds every other browser operation, including
// each screenshot attempt. Defaults to 60 seconds.
func WithOperationTimeout(d time.Duration) Option {
	return func(c *config) {
		c.opTimeout = d
	}
}

// WithSettleDelay sets the pause between resizing the viewport and the
// first screenshot attempt. Defaults to 250ms.
func WithSettleDelay(d time.Duration) Option {
	return func(c *config) {
		c.settleDelay = d
	}
}

// WithCaptureRetry sets the total number of screenshot attempts and the
// wait between them. Defaults to 3 attempts, 500ms apart.
func WithCaptureRetry(attempts int, delay time.Duration) Option {
	return func(c *config) {
		c.attempts = attempts
		c.retryDelay = delay
	}
}

// WithStrictValidation additionally parses the whole input file with a
// full SVG parser before any browser work starts.
func WithStrictValidation() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithLogger replaces the default logger.
func WithLogger(l Logger) Option {
	return func(c *config) {
		c.log = l
	}
}
