package stats

// Option applies a configuration option to a Compute call.
type Option func(*settings)

type settings struct {
	formatName NameFormatter
}

// WithNameFormatter sets the function used to derive display names.
// A nil formatter keeps the default.
func WithNameFormatter(f NameFormatter) Option {
	return func(s *settings) {
		if f != nil {
			s.formatName = f
		}
	}
}
