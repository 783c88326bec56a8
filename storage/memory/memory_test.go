package memory

import (
	"testing"

	"github.com/AstrobaseTech/Astrobase-sub000/storage/testkit"
)

func TestBackendConformance(t *testing.T) {
	testkit.RunBackendConformance(t, func(t *testing.T) testkit.Backend {
		return New()
	})
}
