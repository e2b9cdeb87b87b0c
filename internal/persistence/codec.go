package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/petrijr/formflow/pkg/api"
)

func init() {
	// Types that travel inside interface values: step data, file
	// references, extra data and cleaned submissions.
	gob.Register(api.Values{})
	gob.Register(api.Files{})
	gob.Register(api.File{})
	gob.Register(map[string]any{})
	gob.Register([]map[string]any{})
	gob.Register([]any{})
	gob.Register([]string{})
	gob.Register(time.Time{})
}

// EncodeValue serializes v with encoding/gob, wrapped as an interface value
// so it can be decoded without knowing its type. A nil v encodes to nil.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, fmt.Errorf("gob encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes a payload written by EncodeValue into T. Payloads
// written as a concrete T are accepted as well. Empty input yields the zero
// value.
func DecodeValue[T any](data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, nil
	}

	var iv any
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&iv)
	if err == nil {
		if iv == nil {
			return zero, nil
		}
		if v, ok := iv.(T); ok {
			return v, nil
		}
		return zero, fmt.Errorf("gob: decoded %T, want %s", iv, typeName[T]())
	}
	if !mustRetryAsConcrete(err) {
		return zero, err
	}

	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return zero, err
	}
	return v, nil
}

// mustRetryAsConcrete detects the gob error raised when a concrete payload is
// decoded into an interface.
func mustRetryAsConcrete(err error) bool {
	s := err.Error()
	return strings.Contains(s, "can only be decoded from remote interface") &&
		strings.Contains(s, "received concrete type")
}

func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return t.String()
}

// decodeStepData decodes stored step data. A nil payload means the step was
// never answered; any written payload decodes to non-nil values, so an
// empty submission stays distinguishable from no submission.
func decodeStepData(data []byte) (api.Values, error) {
	if data == nil {
		return nil, nil
	}
	v, err := DecodeValue[api.Values](data)
	if err != nil {
		return nil, fmt.Errorf("decode step data: %w", err)
	}
	if v == nil {
		v = api.Values{}
	}
	return v, nil
}

func decodeStepFiles(data []byte) (api.Files, error) {
	v, err := DecodeValue[api.Files](data)
	if err != nil {
		return nil, fmt.Errorf("decode step files: %w", err)
	}
	return v, nil
}

func decodeExtra(data []byte) (map[string]any, error) {
	v, err := DecodeValue[map[string]any](data)
	if err != nil {
		return nil, fmt.Errorf("decode extra data: %w", err)
	}
	return v, nil
}
