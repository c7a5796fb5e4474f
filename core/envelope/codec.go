package envelope

import "encoding/json"

// Encode serializes an envelope to its wire representation.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire representation into an envelope, folding the
// nested REQUEST compatibility shape and the error_payload/error
// back-compat fields via Normalize.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	return e.Normalize(), nil
}
