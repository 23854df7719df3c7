// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slogfold

import (
	"bytes"
	"encoding/json"
)

// Encoder serializes one log entry to JSON. Implementations may return the
// bytes with or without a trailing newline; the Handler normalizes to
// exactly one before writing.
//
// Swapping the encoder changes only the byte serialization. Entry structure,
// field names, and write behavior stay with the Handler.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// EncoderFunc adapts a plain function to the Encoder interface.
type EncoderFunc func(v any) ([]byte, error)

// Encode calls f.
func (f EncoderFunc) Encode(v any) ([]byte, error) { return f(v) }

// jsonEncoder is the default Encoder. HTML escaping is disabled so URLs and
// message text survive round-trips through log viewers unmangled.
type jsonEncoder struct{}

func (jsonEncoder) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// defaultEncoder also serves as the fallback when a configured encoder
// fails, so the degraded entry always reaches the writer.
var defaultEncoder Encoder = jsonEncoder{}
