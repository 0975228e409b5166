package draft

import (
	"io"
	"os"
	"reflect"

	"github.com/aretw0/formdraft/pkg/domain"
)

// Strip returns a copy of d without excluded fields and without values that
// cannot be persisted: files, readers, raw bytes, funcs and channels.
func (s *Store) Strip(d domain.Draft) domain.Draft {
	out := make(domain.Draft, len(d))
	for name, v := range d {
		if _, skip := s.excluded[name]; skip {
			continue
		}
		if !Serializable(v) {
			continue
		}
		out[name] = v
	}
	return out.Clone()
}

// Serializable reports whether v may be written to a draft.
func Serializable(v any) bool {
	switch v.(type) {
	case nil:
		return true
	case *os.File, domain.FileRef, *domain.FileRef, []byte, []domain.FileRef:
		return false
	case io.Reader:
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return false
	}
	return true
}
