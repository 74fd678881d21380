// Package registry provides discovery of the tool wrappers shipped in
// this module. Tools are registered once as descriptors; the client
// behind a descriptor is only constructed when a caller resolves it
// explicitly, so an environment missing one provider's credentials
// never breaks discovery of the others.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/clawinfra/agent-tools/internal/config"
	"github.com/clawinfra/agent-tools/internal/vision"
)

// Descriptor is the registry metadata record for one tool, independent
// of whether the tool has ever been instantiated. Descriptors are
// immutable after registration.
type Descriptor struct {
	// Name is the dotted identifier, e.g. "vision.ollama". Unique
	// within a registry.
	Name string

	// Description is a one-line human summary.
	Description string

	// Package is the Go package hosting the implementation.
	Package string

	// Client is the implementation type name within Package.
	Client string

	// RequiresEnv lists the environment variables the tool needs.
	RequiresEnv []string

	// Available reports whether the tool can currently be used. It must
	// be a side-effect-free environment check.
	Available func() bool

	// New is the deferred constructor. Nothing is instantiated until a
	// caller invokes it.
	New func(logger *slog.Logger) (vision.Client, error)
}

// UnknownToolError reports a lookup for an identifier that was never
// registered.
type UnknownToolError struct {
	Name  string
	Known []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q not found, available: %v", e.Name, e.Known)
}

// Registry is an ordered collection of tool descriptors.
type Registry struct {
	order []*Descriptor
	index map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Identifiers are unique; registering the
// same name twice is an error.
func (r *Registry) Register(d *Descriptor) error {
	if _, exists := r.index[d.Name]; exists {
		return fmt.Errorf("tool %q already registered", d.Name)
	}
	r.index[d.Name] = d
	r.order = append(r.order, d)
	return nil
}

// List returns descriptors in registration order. With onlyAvailable,
// entries whose availability check fails are filtered out, so the
// result is always a subset of the full listing.
func (r *Registry) List(onlyAvailable bool) []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, d := range r.order {
		if onlyAvailable && !d.Available() {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Get resolves an identifier to its descriptor without instantiating
// the client.
func (r *Registry) Get(name string) (*Descriptor, error) {
	d, ok := r.index[name]
	if !ok {
		return nil, &UnknownToolError{Name: name, Known: r.Names()}
	}
	return d, nil
}

// Names returns all registered identifiers in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, d := range r.order {
		names = append(names, d.Name)
	}
	return names
}

// Summary is a point-in-time discovery snapshot.
type Summary struct {
	Total     int          `json:"total"`
	Available int          `json:"available"`
	Tools     []ToolStatus `json:"tools"`
}

// ToolStatus is the serializable view of one descriptor.
type ToolStatus struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Package     string   `json:"package"`
	Client      string   `json:"client"`
	RequiresEnv []string `json:"requires_env"`
	Available   bool     `json:"available"`
}

// Discover builds a snapshot of all tools and their availability. It
// is recomputed on every call; the environment may change between
// calls, so nothing is cached.
func (r *Registry) Discover() Summary {
	s := Summary{Total: len(r.order)}
	for _, d := range r.order {
		available := d.Available()
		if available {
			s.Available++
		}
		s.Tools = append(s.Tools, ToolStatus{
			Name:        d.Name,
			Description: d.Description,
			Package:     d.Package,
			Client:      d.Client,
			RequiresEnv: d.RequiresEnv,
			Available:   available,
		})
	}
	return s
}

// Default returns a registry populated with every tool wrapper shipped
// in this module. Registration order is the order tools are preferred
// by callers that pick the first available one.
func Default() *Registry {
	r := NewRegistry()

	must(r.Register(&Descriptor{
		Name:        "vision.ollama",
		Description: "Ollama Cloud vision analysis (free tier, preferred)",
		Package:     "github.com/clawinfra/agent-tools/internal/vision",
		Client:      "OllamaClient",
		RequiresEnv: []string{"OLLAMA_HOST"},
		Available:   func() bool { return config.IsSet("OLLAMA_HOST") },
		New: func(logger *slog.Logger) (vision.Client, error) {
			return vision.NewOllamaClientFromEnv(logger)
		},
	}))

	must(r.Register(&Descriptor{
		Name:        "vision.venice",
		Description: "Venice AI vision analysis (paid, reliable fallback)",
		Package:     "github.com/clawinfra/agent-tools/internal/vision",
		Client:      "VeniceClient",
		RequiresEnv: []string{"VENICE_API_KEY"},
		Available:   func() bool { return config.IsSet("VENICE_API_KEY") },
		New: func(logger *slog.Logger) (vision.Client, error) {
			return vision.NewVeniceClientFromEnv(logger)
		},
	}))

	return r
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
