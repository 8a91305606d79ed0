package api

// maxBodyBytes bounds request bodies. A sealed record of the largest
// accepted plaintext is about 14 MiB once base64 encoded.
const maxBodyBytes = 16 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PutEntryRequest is the body of PUT /entries/{name}.
type PutEntryRequest struct {
	Value      string `json:"value" validate:"required,max=10485760"`
	Passphrase string `json:"passphrase,omitempty"`
}

// EntryResponse is returned by GET /entries/{name}.
type EntryResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListEntriesResponse is returned by GET /entries.
type ListEntriesResponse struct {
	Names []string `json:"names"`
}

type EncryptRequest struct {
	Plaintext  string `json:"plaintext" validate:"required,max=10485760"`
	Passphrase string `json:"passphrase,omitempty"`
}

type EncryptResponse struct {
	Sealed string `json:"sealed"`
}

type DecryptRequest struct {
	Sealed     string `json:"sealed" validate:"required,max=14680064"`
	Passphrase string `json:"passphrase,omitempty"`
}

type DecryptResponse struct {
	Plaintext string `json:"plaintext"`
}

type HashRequest struct {
	Value string `json:"value" validate:"max=10485760"`
}

type HashResponse struct {
	Hash string `json:"hash"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// SafetyRequest is the body of POST /safety.
type SafetyRequest struct {
	Input string `json:"input" validate:"max=10485760"`
}

// SafetyResponse reports whether the input is free of known script vectors,
// along with its HTML-escaped form.
type SafetyResponse struct {
	Safe      bool   `json:"safe"`
	Sanitized string `json:"sanitized"`
}
