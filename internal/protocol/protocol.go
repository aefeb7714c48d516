package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Wire constants of the remote inference API
const (
	// DefaultFileName is the name given to the single audio file in a request
	DefaultFileName = "audio.wav"

	// ContentTypeJSON is the request content type
	ContentTypeJSON = "application/json"

	// ContentTypeWAV is the response content type
	ContentTypeWAV = "audio/wav"

	// HeaderRequestID carries a per-request correlation ID
	HeaderRequestID = "X-Request-ID"

	// MaxRequestSize bounds request bodies accepted by DecodePredictRequest
	MaxRequestSize = 256 << 20
)

// ErrInvalidRequest is returned for malformed request bodies
var ErrInvalidRequest = errors.New("protocol: invalid predict request")

// PredictRequest is the JSON body POSTed to a remote inference endpoint:
//
//	{"data": [{"name": "audio.wav", "data": "<base64 WAV>"}]}
type PredictRequest struct {
	Data []FileData `json:"data"`
}

// FileData is one named file inside a request
type FileData struct {
	Name string     `json:"name"`
	Data Base64Data `json:"data"`
}

// NewPredictRequest wraps one WAV file
func NewPredictRequest(name string, wav []byte) *PredictRequest {
	return &PredictRequest{Data: []FileData{{Name: name, Data: wav}}}
}

// Encode serializes the request as JSON
func (r *PredictRequest) Encode() ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode predict request: %w", err)
	}
	return body, nil
}

// Validate checks that the request carries at least one non-empty file
func (r *PredictRequest) Validate() error {
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: no files in data", ErrInvalidRequest)
	}
	for i, f := range r.Data {
		if len(f.Data) == 0 {
			return fmt.Errorf("%w: file %d (%q) is empty", ErrInvalidRequest, i, f.Name)
		}
	}
	return nil
}

// Audio returns the bytes of the first file
func (r *PredictRequest) Audio() []byte {
	if len(r.Data) == 0 {
		return nil
	}
	return r.Data[0].Data
}

// DecodePredictRequest reads and validates a request body of at most MaxRequestSize bytes
func DecodePredictRequest(r io.Reader) (*PredictRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxRequestSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > MaxRequestSize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidRequest, MaxRequestSize)
	}

	var req PredictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Base64Data is a byte slice that serializes to/from standard base64 in JSON
type Base64Data []byte

// MarshalJSON implements json.Marshaler.
func (b Base64Data) MarshalJSON() ([]byte, error) {
	return []byte(`"` + base64.StdEncoding.EncodeToString(b) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Base64Data) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("unmarshal base64 data: empty data")
	}
	switch data[0] {
	case 'n': // null
		return nil
	case '"':
		if len(data) < 2 || data[len(data)-1] != '"' {
			return errors.New("unmarshal base64 data: invalid string")
		}
		decoded, err := base64.StdEncoding.DecodeString(string(data[1 : len(data)-1]))
		if err != nil {
			return fmt.Errorf("unmarshal base64 data: %w", err)
		}
		*b = decoded
		return nil
	default:
		return fmt.Errorf("unmarshal base64 data: expected string, got %s", string(data))
	}
}

// String returns the base64-encoded representation
func (b Base64Data) String() string {
	return base64.StdEncoding.EncodeToString(b)
}
