package dedupe

// Option applies a configuration option to the row deduper.
type Option func(*ringDeduper)

// WithCapacity sets how many IDs are remembered. Values <= 0 remember every
// ID without eviction.
func WithCapacity(capacity int) Option {
	return func(d *ringDeduper) {
		d.capacity = capacity
	}
}
