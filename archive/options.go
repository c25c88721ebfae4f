package archive

import "github.com/chaisql/bsonarchive/internal/encoding"

// DefaultNamePrefix is prepended to the position of elements
// saved without a name.
const DefaultNamePrefix = "value"

// Options of the encoder and decoder.
// The encoder and the decoder of the same stream must use the same NamePrefix.
type Options struct {
	// Prefix used to synthesize the key of unnamed elements.
	// Defaults to DefaultNamePrefix.
	NamePrefix string

	// Largest document accepted by the decoder, in bytes.
	// Defaults to 16MiB.
	MaxDocumentSize int

	// If true, the decoder fully validates every document when it is read,
	// instead of failing lazily when a malformed element is accessed.
	Validate bool
}

func defaultOptions() *Options {
	return &Options{
		NamePrefix:      DefaultNamePrefix,
		MaxDocumentSize: encoding.MaxDocumentSize,
	}
}

func (o *Options) withDefaults() *Options {
	opts := defaultOptions()
	if o == nil {
		return opts
	}

	if o.NamePrefix != "" {
		opts.NamePrefix = o.NamePrefix
	}
	if o.MaxDocumentSize > 0 {
		opts.MaxDocumentSize = o.MaxDocumentSize
	}
	opts.Validate = o.Validate

	return opts
}
