package memory

import (
	"testing"

	"carteira/internal/ports"
	"carteira/internal/ports/porttest"
)

func TestStore(t *testing.T) {
	porttest.Run(t, func(t *testing.T) ports.Store { return New() })
}
