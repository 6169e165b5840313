package domain

import (
	"sync"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 8
)

var (
	idMu  sync.Mutex
	genID = mustGenerator(idAlphabet, idLength)
)

func mustGenerator(alphabet string, length int) func() string {
	gen, err := nanoid.CustomASCII(alphabet, length)
	if err != nil {
		panic(err)
	}
	return gen
}

// NewID returns a short base-36 identifier for rooms, users and todos.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return genID()
}
