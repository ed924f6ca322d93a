package fixture

// Overflow decides what happens to cells past the last column of a row.
type Overflow int

const (
	// OverflowError fails the load when a row is wider than the header.
	OverflowError Overflow = iota
	// OverflowTruncate drops the surplus cells.
	OverflowTruncate
)

func (o Overflow) String() string {
	switch o {
	case OverflowError:
		return "error"
	case OverflowTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

// Options controls how a fixture is parsed. The zero value is not the
// default; start from DefaultOptions.
type Options struct {
	Header        bool
	SkipBlankRows bool
	Trim          bool
	Comma         rune
	Comment       rune
	// Columns names the columns explicitly. When Header is also set the
	// first row is still consumed, but its names are replaced.
	Columns  []string
	Overflow Overflow
}

// DefaultOptions returns first-row header, blank rows skipped, trimmed
// cells and comma delimiter.
func DefaultOptions() Options {
	return Options{
		Header:        true,
		SkipBlankRows: true,
		Trim:          true,
		Comma:         ',',
	}
}

// Option overrides a single field of the default Options.
type Option func(*Options)

func WithHeader(header bool) Option {
	return func(o *Options) { o.Header = header }
}

func WithSkipBlankRows(skip bool) Option {
	return func(o *Options) { o.SkipBlankRows = skip }
}

func WithTrim(trim bool) Option {
	return func(o *Options) { o.Trim = trim }
}

func WithComma(comma rune) Option {
	return func(o *Options) { o.Comma = comma }
}

// WithComment treats lines starting with comment as comments.
func WithComment(comment rune) Option {
	return func(o *Options) { o.Comment = comment }
}

func WithColumns(names ...string) Option {
	return func(o *Options) { o.Columns = append([]string(nil), names...) }
}

func WithOverflow(policy Overflow) Option {
	return func(o *Options) { o.Overflow = policy }
}

// WithOptions replaces every field at once, for callers that already hold
// a complete Options value.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
		o.Columns = append([]string(nil), opts.Columns...)
	}
}

func resolveOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Comma == 0 {
		o.Comma = ','
	}
	return o
}
