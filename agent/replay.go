package agent

// Transition is one step of experience.
type Transition struct {
	State    []float64
	Action   int
	Reward   float64
	Next     []float64
	Terminal bool
}

// Replay is a fixed size ring of transitions. Once full, the oldest entry is
// overwritten.
type Replay struct {
	buf  []Transition
	size int
	next int
	seen int
}

func NewReplay(size int) *Replay {
	return &Replay{buf: make([]Transition, 0, size), size: size}
}

func (r *Replay) Add(t Transition) {
	r.seen++
	if len(r.buf) < r.size {
		r.buf = append(r.buf, t)
		return
	}
	r.buf[r.next] = t
	r.next = (r.next + 1) % r.size
}

func (r *Replay) Len() int { return len(r.buf) }

// Seen is the number of transitions ever added.
func (r *Replay) Seen() int { return r.seen }

func (r *Replay) At(i int) Transition { return r.buf[i] }
