package httpclient

// Model is implemented by types that bring their own Codec. Types that do
// not implement it use DefaultCodec.
type Model interface {
	Codec() *Codec
}

// Empty is the model of an expected empty response body. Sending with
// Empty as the result type skips decoding entirely.
type Empty struct{}

// codecOf returns v's codec when v is a Model.
func codecOf(v any) *Codec {
	if m, ok := v.(Model); ok {
		if c := m.Codec(); c != nil {
			return c
		}
	}
	return defaultCodec
}

func codecFor[T any]() *Codec {
	var zero T
	return codecOf(&zero)
}

func isEmpty[T any]() bool {
	var zero T
	switch any(&zero).(type) {
	case *Empty, **Empty:
		return true
	default:
		return false
	}
}
