package tycho

// Option configures a decode.
type Option func(*config)

type config struct {
	isotopeWidth int
	filename     string
}

func newConfig(opts []Option) config {
	cfg := config{isotopeWidth: DefaultIsotopeWidth}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithIsotopeWidth sets the column width used to split fused isotope names.
// Values below 1 keep the default.
func WithIsotopeWidth(width int) Option {
	return func(c *config) {
		if width > 0 {
			c.isotopeWidth = width
		}
	}
}

// WithFilename names the source of the text. It is recorded on the model and
// in log events.
func WithFilename(name string) Option {
	return func(c *config) {
		c.filename = name
	}
}
