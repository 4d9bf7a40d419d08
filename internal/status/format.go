package status

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// namedError lets error types choose the name shown in "<Name>: <Message>".
type namedError interface {
	error
	Name() string
}

// FormatArgs renders call arguments into one display string. It never
// panics; values that cannot be serialized fall back to "[<type>]".
func FormatArgs(args ...any) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatArg(a)
	}
	return strings.Join(parts, " ")
}

// argTexts returns the per-argument textual forms kept on history records.
func argTexts(args []any) []string {
	if len(args) == 0 {
		return nil
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = formatArg(a)
	}
	return out
}

func formatArg(a any) (out string) {
	defer func() {
		// String()/Error()/MarshalJSON implementations are caller code.
		if r := recover(); r != nil {
			out = fallbackText(a)
		}
	}()

	switch v := a.(type) {
	case nil:
		return "<nil>"
	case string:
		return v
	case error:
		return errorName(v) + ": " + v.Error()
	case fmt.Stringer:
		return v.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, complex64, complex128:
		return fmt.Sprint(v)
	case []byte:
		return string(v)
	case json.RawMessage:
		return string(v)
	}

	b, err := json.Marshal(a)
	if err != nil {
		return fallbackText(a)
	}
	return string(b)
}

func fallbackText(a any) string {
	return "[" + fmt.Sprintf("%T", a) + "]"
}

func errorName(err error) string {
	if ne, ok := err.(namedError); ok {
		if n := strings.TrimSpace(ne.Name()); n != "" {
			return n
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return "Error"
	}
	// errors.New, fmt.Errorf and friends use unexported types.
	if r, _ := utf8.DecodeRuneInString(name); !unicode.IsUpper(r) {
		return "Error"
	}
	return name
}
