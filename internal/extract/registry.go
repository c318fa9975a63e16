package extract

import "fmt"

// Registry is an ordered dispatch table: extractors are tried in
// registration order and the first Matches wins. Registering a
// catch-all last (the plain-text extractor) makes resolution total.
type Registry struct {
	extractors []Extractor
}

func NewRegistry() *Registry {
	return &Registry{extractors: make([]Extractor, 0)}
}

func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

func (r *Registry) Resolve(f Format, fileName string) (Extractor, error) {
	for _, e := range r.extractors {
		if e.Matches(f, fileName) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no extractor registered for kind=%q file=%q", f.Kind, fileName)
}
