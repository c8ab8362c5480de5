package mesh

const (
	chunkBits = 10
	chunkSize = 1 << chunkBits
	chunkMask = chunkSize - 1
)

// arena is an append-only store split into fixed-size chunks so element
// addresses never move.
type arena[T any] struct {
	chunks [][]T
	n      int
}

func (a *arena[T]) len() int { return a.n }

func (a *arena[T]) add() (int, *T) {
	if a.n>>chunkBits == len(a.chunks) {
		a.chunks = append(a.chunks, make([]T, chunkSize))
	}
	i := a.n
	a.n++
	return i, &a.chunks[i>>chunkBits][i&chunkMask]
}

func (a *arena[T]) at(i int) *T {
	return &a.chunks[i>>chunkBits][i&chunkMask]
}

func (a *arena[T]) clone(deep func(*T)) arena[T] {
	c := arena[T]{chunks: make([][]T, len(a.chunks)), n: a.n}
	for i, ch := range a.chunks {
		c.chunks[i] = append([]T(nil), ch...)
		if deep == nil {
			continue
		}
		for j := range c.chunks[i] {
			if i<<chunkBits+j >= a.n {
				break
			}
			deep(&c.chunks[i][j])
		}
	}
	return c
}
