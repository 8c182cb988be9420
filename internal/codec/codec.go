package codec

import (
	"fmt"
	"sort"
	"sync"

	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/models"
)

// Codec turns one raw payload into a structured message. A nil message with
// a nil error means the payload decoded to nothing.
type Codec interface {
	Decode(raw *models.RawMessage) (*models.Message, error)
}

type Factory interface {
	Create(cfg Configuration) (Codec, error)
}

type FactoryFunc func(cfg Configuration) (Codec, error)

func (f FactoryFunc) Create(cfg Configuration) (Codec, error) {
	return f(cfg)
}

type UnknownCodecError struct {
	Name string
}

func (e *UnknownCodecError) Error() string {
	return fmt.Sprintf("no codec registered for name %q", e.Name)
}

func (e *UnknownCodecError) Is(target error) bool {
	return target == pkgerrors.ErrUnknownCodec
}

// Registry maps codec names to factories. Lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewDefaultRegistry returns a registry preloaded with the builtin codecs.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RawCodecName, FactoryFunc(NewRawCodec))
	r.Register(JSONCodecName, FactoryFunc(NewJSONCodec))
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Create builds a codec instance for one message.
func (r *Registry) Create(name string, cfg Configuration) (Codec, error) {
	factory, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownCodecError{Name: name}
	}
	return factory.Create(cfg)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
