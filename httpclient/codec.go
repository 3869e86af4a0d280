package httpclient

import (
	"bytes"
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

// KeyStrategy controls how Go field names without an explicit json tag are
// translated to wire keys.
type KeyStrategy int

const (
	// KeysAsIs uses the Go field name unchanged.
	KeysAsIs KeyStrategy = iota
	// KeysSnakeCase translates CreatedAt to created_at and UserID to user_id.
	KeysSnakeCase
)

// Codec serializes models to and from JSON. Dates use time.Time's ISO-8601
// (RFC 3339) form.
//
// Struct fields are required when decoding unless they are pointers,
// interfaces or tagged omitempty. A required key missing from the body is a
// DecodeKeyNotFound failure and a required key holding null is
// DecodeValueNotFound. Other validate tags run after that.
//
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	keys     KeyStrategy
	api      jsoniter.API
	validate *validator.Validate
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithKeyStrategy sets the key translation.
func WithKeyStrategy(k KeyStrategy) CodecOption {
	return func(c *Codec) {
		c.keys = k
	}
}

var defaultCodec = NewCodec(WithKeyStrategy(KeysSnakeCase))

// DefaultCodec returns the codec used for types that do not implement Model:
// snake_case keys and ISO-8601 dates.
func DefaultCodec() *Codec {
	return defaultCodec
}

// NewCodec creates a codec.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{}
	for _, opt := range opts {
		opt(c)
	}

	c.api = jsoniter.Config{
		EscapeHTML:             true,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
	if c.keys == KeysSnakeCase {
		c.api.RegisterExtension(&namingExtension{translate: snakeCase})
	}

	c.validate = validator.New(validator.WithRequiredStructEnabled())
	c.validate.RegisterTagNameFunc(c.wireName)
	return c
}

// Encode serializes v.
func (c *Codec) Encode(v any) ([]byte, error) {
	return c.api.Marshal(v)
}

// Decode deserializes data into v, which must be a non-nil pointer. Failures
// are returned as *DecodeError describing their shape.
func (c *Codec) Decode(data []byte, v any) error {
	typ := typeName(v)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &DecodeError{
			Kind:    DecodeValueNotFound,
			Type:    typ,
			Context: "expected a value but the body was empty or null",
		}
	}
	if !c.api.Valid(trimmed) {
		return &DecodeError{
			Kind:    DecodeDataCorrupted,
			Type:    typ,
			Context: "the body is not valid JSON",
		}
	}
	if err := c.api.Unmarshal(trimmed, v); err != nil {
		return &DecodeError{
			Kind:    DecodeTypeMismatch,
			Type:    typ,
			Context: err.Error(),
			Err:     err,
		}
	}
	if t := reflect.TypeOf(v); t != nil && t.Kind() == reflect.Pointer && hasStruct(t.Elem()) {
		var tree any
		if err := c.api.Unmarshal(trimmed, &tree); err == nil {
			if de := c.checkPresence(t.Elem(), tree, ""); de != nil {
				de.Type = typ
				return de
			}
		}
	}
	return c.checkRequired(v, typ)
}

var jsonUnmarshalerType = reflect.TypeOf((*interface{ UnmarshalJSON([]byte) error })(nil)).Elem()

// leaf reports whether t decodes itself, like time.Time.
func leaf(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(jsonUnmarshalerType) || t.Implements(jsonUnmarshalerType)
}

// hasStruct reports whether a value of type t can contain a struct whose
// keys need checking.
func hasStruct(t reflect.Type) bool {
	for {
		if leaf(t) {
			return false
		}
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		case reflect.Struct:
			return true
		default:
			return false
		}
	}
}

// checkPresence walks the generic decode of the body alongside t and reports
// the first required struct key that is missing or null. path is the
// location of node in the body.
func (c *Codec) checkPresence(t reflect.Type, node any, path string) *DecodeError {
	if node == nil || leaf(t) {
		return nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		return c.checkPresence(t.Elem(), node, path)
	case reflect.Slice, reflect.Array:
		items, ok := node.([]any)
		if !ok {
			return nil
		}
		for i, item := range items {
			if de := c.checkPresence(t.Elem(), item, path+"["+strconv.Itoa(i)+"]"); de != nil {
				return de
			}
		}
	case reflect.Map:
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		for _, k := range sortedKeys(obj) {
			if de := c.checkPresence(t.Elem(), obj[k], joinKeyPath(path, k)); de != nil {
				return de
			}
		}
	case reflect.Struct:
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		return c.checkFields(t, obj, path)
	}
	return nil
}

func (c *Codec) checkFields(t reflect.Type, obj map[string]any, path string) *DecodeError {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, tagged := jsonTag(f)
		if name == "-" {
			continue
		}
		if f.Anonymous && !tagged {
			if f.Type.Kind() == reflect.Struct {
				if de := c.checkFields(f.Type, obj, path); de != nil {
					return de
				}
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		key := c.wireName(f)
		at := joinKeyPath(path, key)
		val, present := lookup(obj, key)
		if !optional(f.Type, opts) {
			switch {
			case !present:
				return &DecodeError{Kind: DecodeKeyNotFound, Key: key, Context: "no value for key " + at}
			case val == nil:
				return &DecodeError{Kind: DecodeValueNotFound, Key: key, Context: "null value for key " + at}
			}
		}
		if de := c.checkPresence(f.Type, val, at); de != nil {
			return de
		}
	}
	return nil
}

// lookup finds key in obj, falling back to a case-insensitive match the way
// the decoder binds keys to fields.
func lookup(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func joinKeyPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func optional(t reflect.Type, opts string) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		return true
	}
	for _, o := range strings.Split(opts, ",") {
		if o == "omitempty" || o == "omitzero" {
			return true
		}
	}
	return false
}

func jsonTag(f reflect.StructField) (name, opts string, tagged bool) {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return "", "", false
	}
	name, opts, _ = strings.Cut(tag, ",")
	return name, opts, name != ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// checkRequired runs struct validation and reports the first missing
// required key. Any other validation failure is DecodeOther.
func (c *Codec) checkRequired(v any, typ string) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := c.validate.Struct(rv.Interface())
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &DecodeError{Kind: DecodeOther, Type: typ, Context: err.Error(), Err: err}
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &DecodeError{
				Kind:    DecodeKeyNotFound,
				Type:    typ,
				Key:     fe.Field(),
				Context: fe.Namespace(),
				Err:     err,
			}
		}
	}
	fe := verrs[0]
	return &DecodeError{
		Kind:    DecodeOther,
		Type:    typ,
		Key:     fe.Field(),
		Context: fe.Namespace() + " failed on '" + fe.Tag() + "'",
		Err:     err,
	}
}

// wireName reports the key a field is carried under, so validation errors
// name the JSON key rather than the Go field.
func (c *Codec) wireName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	if c.keys == KeysSnakeCase {
		return snakeCase(f.Name)
	}
	return f.Name
}

// namingExtension rewrites untagged exported field names.
type namingExtension struct {
	jsoniter.DummyExtension
	translate func(string) string
}

func (e *namingExtension) UpdateStructDescriptor(sd *jsoniter.StructDescriptor) {
	for _, binding := range sd.Fields {
		name := binding.Field.Name()
		if name == "" || !unicode.IsUpper(rune(name[0])) {
			continue
		}
		if tag, ok := binding.Field.Tag().Lookup("json"); ok {
			if n := strings.Split(tag, ",")[0]; n != "" {
				continue
			}
		}
		wire := e.translate(name)
		binding.ToNames = []string{wire}
		binding.FromNames = []string{wire}
	}
}

// snakeCase converts a Go identifier to snake_case, keeping acronyms together:
// UserID -> user_id, HTTPStatus -> http_status.
func snakeCase(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	sb.Grow(len(name) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
