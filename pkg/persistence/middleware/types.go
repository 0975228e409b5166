package middleware

import (
	"encoding/json"

	"github.com/aretw0/formdraft/pkg/ports"
)

// Middleware allows wrapping a KVStore to add behavior.
type Middleware func(ports.KVStore) ports.KVStore

// Chain wraps store with mws. The first middleware is the outermost one and
// sees writes first, e.g. Chain(s, Sanitize, PII, Encryption) encrypts last.
func Chain(store ports.KVStore, mws ...Middleware) ports.KVStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// rewriteObject applies fn to value when it is a JSON object and re-encodes it.
// Other values (step numbers, opaque blobs) are returned untouched.
func rewriteObject(value string, fn func(map[string]any)) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(value), &obj); err != nil || obj == nil {
		return value
	}
	fn(obj)
	out, err := json.Marshal(obj)
	if err != nil {
		return value
	}
	return string(out)
}
