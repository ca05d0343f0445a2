package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrActivationExists   = errors.New("activation already registered")
	ErrActivationNotFound = errors.New("activation not found")
)

type ActivationFunc func(x float64) float64

type registry struct {
	mu sync.RWMutex
	m  map[string]ActivationFunc
}

var activations = newRegistry()

func newRegistry() *registry {
	return &registry{m: map[string]ActivationFunc{
		"identity": func(x float64) float64 { return x },
		"relu":     func(x float64) float64 { return math.Max(0, x) },
		"tanh":     math.Tanh,
		"sigmoid":  Sigmoid,
		// Steepened sigmoid of NEAT feed-forward policies; the clamp keeps
		// exp from overflowing.
		"neat_sigmoid": func(x float64) float64 { return Sigmoid(4.9 * Clamp(x, -60, 60)) },
	}}
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// RegisterActivation adds a named activation usable by genomes compiled
// afterwards.
func RegisterActivation(name string, fn ActivationFunc) error {
	if name == "" {
		return errors.New("activation name is required")
	}
	if fn == nil {
		return errors.New("activation function is required")
	}

	activations.mu.Lock()
	defer activations.mu.Unlock()
	if _, exists := activations.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrActivationExists, name)
	}
	activations.m[name] = fn
	return nil
}

func GetActivation(name string) (ActivationFunc, error) {
	activations.mu.RLock()
	defer activations.mu.RUnlock()
	fn, ok := activations.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivationNotFound, name)
	}
	return fn, nil
}

func ListActivations() []string {
	activations.mu.RLock()
	defer activations.mu.RUnlock()
	names := make([]string, 0, len(activations.m))
	for name := range activations.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
