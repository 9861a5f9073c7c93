package client

import "encoding/json"

// Decoder turns a response payload into a typed value.
type Decoder interface {
	Decode(data []byte, v any) error
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(data []byte, v any) error

// Decode calls f(data, v).
func (f DecoderFunc) Decode(data []byte, v any) error {
	return f(data, v)
}

// JSONDecoder decodes JSON payloads.
type JSONDecoder struct{}

// Decode implements Decoder.
func (JSONDecoder) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
