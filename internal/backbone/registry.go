package backbone

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/segnetgo/internal/ctxlog"
	"github.com/vk/segnetgo/internal/tensor"
)

// ErrUnknownBackbone is returned when a name has no registry entry.
var ErrUnknownBackbone = errors.New("unknown backbone")

// BuildOptions carries everything a backbone builder needs. InputH/InputW may
// be 0 for variable-size input; InputC must be concrete.
type BuildOptions struct {
	InputH, InputW, InputC int
	Format                 tensor.DataFormat

	// Weights is a pretrained-weights identifier such as "imagenet", or
	// empty for random initialization. Resolution clears it for entries
	// that disable pretrained loading.
	Weights string

	// EncoderActivation overrides the activation used inside the encoder.
	// Only honored by entries that declare the capability; resolution clears
	// it otherwise. Empty means the builder's default ("relu").
	EncoderActivation string
}

// Builder constructs a backbone graph from options.
type Builder func(ctx context.Context, name string, opts BuildOptions) (*Backbone, error)

// Entry describes one registered backbone.
type Entry struct {
	Name  string
	Build Builder

	// FeatureLayers are the default skip-connection layer names, ordered
	// from the deepest decoder stage's skip to the shallowest.
	FeatureLayers []string

	// SupportsEncoderActivation marks entries whose builder accepts an
	// alternate internal activation function.
	SupportsEncoderActivation bool

	// DisablesPretrained marks entries that must never load pretrained
	// weights, regardless of what the caller asked for.
	DisablesPretrained bool
}

// Registry is the backbone catalog for one application instance.
type Registry struct {
	entries map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds an entry. Re-registering a name is an error; the catalog is
// meant to be assembled once at startup.
func (r *Registry) Register(e *Entry) error {
	if e.Name == "" || e.Build == nil {
		return fmt.Errorf("backbone entry needs a name and a builder")
	}
	if _, ok := r.entries[e.Name]; ok {
		return fmt.Errorf("backbone %q already registered", e.Name)
	}
	r.entries[e.Name] = e
	return nil
}

// Lookup returns the entry for a name.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns all registered backbone names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	return names
}

// Resolve builds the named backbone, applying the entry's capability flags
// to the requested options first.
func (r *Registry) Resolve(ctx context.Context, name string, opts BuildOptions) (*Backbone, error) {
	logger := ctxlog.FromContext(ctx)
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackbone, name)
	}

	if entry.DisablesPretrained && opts.Weights != "" {
		logger.Debug("Registry: entry disables pretrained weights, ignoring request.",
			"backbone", name, "weights", opts.Weights)
		opts.Weights = ""
	}
	if !entry.SupportsEncoderActivation && opts.EncoderActivation != "" {
		logger.Debug("Registry: entry does not support an encoder activation override, ignoring.",
			"backbone", name)
		opts.EncoderActivation = ""
	}

	bb, err := entry.Build(ctx, name, opts)
	if err != nil {
		return nil, err
	}
	bb.PretrainedWeights = opts.Weights
	logger.Debug("Registry: backbone resolved.",
		"backbone", name, "layers", len(bb.Layers()), "pretrained", bb.PretrainedWeights)
	return bb, nil
}

// FeatureLayers returns the first n default skip-connection layer names for
// a backbone, ordered for decoder stages 0..n-1.
func (r *Registry) FeatureLayers(name string, n int) ([]string, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackbone, name)
	}
	if n > len(entry.FeatureLayers) {
		n = len(entry.FeatureLayers)
	}
	return append([]string(nil), entry.FeatureLayers[:n]...), nil
}

// Default returns a registry with every built-in backbone registered.
func Default() *Registry {
	r := NewRegistry()
	for _, e := range builtins() {
		// Built-in names are unique by construction.
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []*Entry {
	return []*Entry{
		{
			Name:          "vgg16",
			Build:         buildVGG16,
			FeatureLayers: []string{"block5_conv3", "block4_conv3", "block3_conv3", "block2_conv2"},
		},
		{
			Name:          "vgg19",
			Build:         buildVGG19,
			FeatureLayers: []string{"block5_conv4", "block4_conv4", "block3_conv4", "block2_conv2"},
		},
		{
			Name:          "resnet18",
			Build:         buildResNet18,
			FeatureLayers: []string{"stage4_unit1_relu1", "stage3_unit1_relu1", "stage2_unit1_relu1", "relu0"},
		},
		{
			Name:          "resnet34",
			Build:         buildResNet34,
			FeatureLayers: []string{"stage4_unit1_relu1", "stage3_unit1_relu1", "stage2_unit1_relu1", "relu0"},
		},
		{
			// Legacy variant kept for compatibility with models trained
			// before the stock resnet18 encoder existed. It opts out of
			// pretrained weights and accepts an activation override.
			Name:                      "resnet18_modified",
			Build:                     buildResNet18,
			FeatureLayers:             []string{"stage4_unit1_relu1", "stage3_unit1_relu1", "stage2_unit1_relu1", "relu0"},
			SupportsEncoderActivation: true,
			DisablesPretrained:        true,
		},
	}
}
