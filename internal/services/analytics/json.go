package analytics

import (
    "bytes"
    "encoding/json"
)

// decodeJSON keeps numbers as json.Number so large volumes survive untouched.
func decodeJSON(b []byte, dest interface{}) error {
    dec := json.NewDecoder(bytes.NewReader(b))
    dec.UseNumber()
    return dec.Decode(dest)
}
