package ports

// Codec converts values to and from their stored representation.
// Implementations must be stateless and safe for concurrent use.
type Codec interface {
	// Encode serializes v.
	Encode(v any) ([]byte, error)
	// Decode reconstructs data into v, which must be a non-nil pointer.
	// Malformed or type-incompatible input yields a *cacheerr.DecodeError.
	Decode(data []byte, v any) error
	// EncodeFields serializes each top-level field of a composite record separately.
	EncodeFields(v any) (map[string][]byte, error)
	// DecodeFields rebuilds a composite record from per-field encodings.
	DecodeFields(fields map[string][]byte, v any) error
	// ContentType names the wire format and its version, e.g. "application/json;v=1".
	ContentType() string
}
