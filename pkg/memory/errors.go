package memory

import (
	"fmt"

	"github.com/loomrt/loom/pkg/loomerr"
)

func errSessionNotFound(id string) error {
	return loomerr.New(loomerr.NotFound, "memory.Store", fmt.Errorf("session %q not found", id))
}

func errInvalidTransition(from, to State) error {
	return loomerr.New(loomerr.Validation, "memory.Store.UpdateState", fmt.Errorf("cannot transition from %q to %q", from, to))
}
