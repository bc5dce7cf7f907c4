package memory

import (
	"testing"

	"github.com/vovakirdan/wirestream/internal/store"
	"github.com/vovakirdan/wirestream/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}
