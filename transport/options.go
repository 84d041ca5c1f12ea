package transport

// Options configures the small set of decoder behaviors the original
// implementation left ambiguous (spec.md §9 Open Questions). The zero
// value is the strict, spec-recommended default.
type Options struct {
	lenient    bool
	minF32Buf  int
}

// Option mutates an Options value.
type Option func(*Options)

// WithLenientBool restores the original decoder's `byte == 1` bool
// decoding, mapping any byte other than 1 to false instead of erroring on
// bytes outside {0,1}. Use only for interop with non-strict peers.
func WithLenientBool() Option {
	return func(o *Options) { o.lenient = true }
}

// WithMinF32Buffer sets the minimum number of buffered bytes required
// before ReceiveF32 will consume 4 of them. The original implementation
// hardcodes 8 (a receiver buffering lower bound, not a consumed-byte
// count); the default here is the value-preserving minimum of 4.
func WithMinF32Buffer(n int) Option {
	return func(o *Options) { o.minF32Buf = n }
}

// NewOptions builds an Options from the given functional options.
func NewOptions(opts ...Option) *Options {
	o := &Options{minF32Buf: 4}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

func (o *Options) lenientBool() bool {
	if o == nil {
		return false
	}
	return o.lenient
}

func (o *Options) minF32Buffer() int {
	if o == nil || o.minF32Buf == 0 {
		return 4
	}
	return o.minF32Buf
}
