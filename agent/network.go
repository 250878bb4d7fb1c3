package agent

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
)

// Layer is a dense layer: Out = W·In + B.
type Layer struct {
	W [][]float64 // len(out) rows of len(in)
	B []float64
}

// Network is a multilayer perceptron with ReLU hidden layers and a linear
// output layer, trained one sample at a time with plain SGD on squared error.
type Network struct {
	Sizes  []int
	Layers []Layer
	// Clip bounds the output error fed back through the net, so the huge
	// game over penalty cannot blow the weights up.
	Clip float64
}

func NewNetwork(sizes []int, rng *rand.Rand) *Network {
	n := &Network{Sizes: append([]int(nil), sizes...), Clip: 1}
	for i := 1; i < len(sizes); i++ {
		in, out := sizes[i-1], sizes[i]
		scale := math.Sqrt(2 / float64(in))
		l := Layer{W: make([][]float64, out), B: make([]float64, out)}
		for o := range l.W {
			l.W[o] = make([]float64, in)
			for j := range l.W[o] {
				l.W[o][j] = rng.NormFloat64() * scale
			}
		}
		n.Layers = append(n.Layers, l)
	}
	return n
}

// forward returns the activations of every layer, input included.
func (n *Network) forward(x []float64) [][]float64 {
	acts := make([][]float64, 0, len(n.Layers)+1)
	acts = append(acts, x)
	for li, l := range n.Layers {
		in := acts[len(acts)-1]
		out := make([]float64, len(l.W))
		for o, row := range l.W {
			sum := l.B[o]
			for j, w := range row {
				sum += w * in[j]
			}
			if li < len(n.Layers)-1 && sum < 0 {
				sum = 0
			}
			out[o] = sum
		}
		acts = append(acts, out)
	}
	return acts
}

func (n *Network) Predict(x []float64) []float64 {
	acts := n.forward(x)
	return acts[len(acts)-1]
}

// Fit takes one gradient step towards target and returns the squared error
// before the step.
func (n *Network) Fit(x, target []float64, lr float64) float64 {
	acts := n.forward(x)
	out := acts[len(acts)-1]

	var loss float64
	delta := make([]float64, len(out))
	for i := range out {
		e := out[i] - target[i]
		loss += e * e
		if n.Clip > 0 {
			e = max(-n.Clip, min(n.Clip, e))
		}
		delta[i] = e
	}

	for li := len(n.Layers) - 1; li >= 0; li-- {
		l := n.Layers[li]
		in := acts[li]
		var prev []float64
		if li > 0 {
			prev = make([]float64, len(in))
			for o, row := range l.W {
				for j, w := range row {
					prev[j] += w * delta[o]
				}
			}
			for j := range prev {
				if in[j] <= 0 {
					prev[j] = 0
				}
			}
		}
		for o, row := range l.W {
			g := lr * delta[o]
			if g == 0 {
				continue
			}
			for j := range row {
				row[j] -= g * in[j]
			}
			l.B[o] -= g
		}
		delta = prev
	}
	return loss / float64(len(out))
}

func (n *Network) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(n); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return f.Close()
}

func LoadNetwork(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()
	var n Network
	if err := gob.NewDecoder(f).Decode(&n); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if len(n.Layers) == 0 || len(n.Layers) != len(n.Sizes)-1 {
		return nil, errors.New("model file holds no layers")
	}
	return &n, nil
}
