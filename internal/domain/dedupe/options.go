package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*InMemoryDeduper)

// WithMaxSize sets how many IDs are remembered. Zero or less means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *InMemoryDeduper) {
		d.maxSize = maxSize
	}
}
