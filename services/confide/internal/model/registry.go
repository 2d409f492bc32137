package model

// DefaultModel is the name the built-in User factory is registered under.
const DefaultModel = "User"

// Factory creates a fresh, unsaved user record.
type Factory func() *User

// Registry maps configured model names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding the default User factory.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{DefaultModel: NewUser},
	}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Lookup returns the factory for name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	if name == "" {
		return nil, false
	}

	f, ok := r.factories[name]
	return f, ok && f != nil
}
