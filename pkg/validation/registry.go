package validation

import "errors"

// Factory constructs a validator variant from a shared configuration.
type Factory func(cfg Config) (*ServiceValidator, error)

var (
	ErrNilFactory    = errors.New("validation: factory is nil")
	ErrEmptyName     = errors.New("validation: factory name is empty")
	ErrDuplicateName = errors.New("validation: factory already exists")
)

// Registry maps protocol variant names to validator constructors. It is
// the fixed, build-time replacement for choosing validator
// implementations by class name at startup.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
	}
}

func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return ErrNilFactory
	}
	if name == "" {
		return ErrEmptyName
	}
	if _, exists := r.factories[name]; exists {
		return ErrDuplicateName
	}

	r.factories[name] = factory
	return nil
}

func (r *Registry) Factory(name string) (Factory, bool) {
	factory, ok := r.factories[name]
	return factory, ok
}

// DefaultRegistry carries the two CAS 2.0 endpoint variants: service
// ticket validation, and proxy ticket validation which additionally
// accepts tickets issued through a proxy chain.
func DefaultRegistry() *Registry {
	registry := NewRegistry()

	_ = registry.Register("serviceValidate", func(cfg Config) (*ServiceValidator, error) {
		cfg.URLSuffix = "serviceValidate"
		return NewServiceValidator(cfg)
	})
	_ = registry.Register("proxyValidate", func(cfg Config) (*ServiceValidator, error) {
		cfg.URLSuffix = "proxyValidate"
		return NewServiceValidator(cfg)
	})

	return registry
}
