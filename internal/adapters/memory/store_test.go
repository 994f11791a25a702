package memory_test

import (
	"testing"

	"github.com/loopwise/loopwise/internal/adapters/memory"
	"github.com/loopwise/loopwise/pkg/ports"
)

func TestStoreContract(t *testing.T) {
	ports.RunRecorderContract(t, memory.NewStore())
}
