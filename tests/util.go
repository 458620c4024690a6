package tests

import (
	"math/rand"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T) *neotest.Executor {
	bc, acc := chain.NewSingle(t)
	return neotest.NewExecutor(t, bc, acc, acc)
}

func randomBytes(n int) []byte {
	a := make([]byte, n)
	rand.Read(a)
	return a
}

func iteratorToArray(iter *storage.Iterator) []stackitem.Item {
	stackItems := make([]stackitem.Item, 0)
	for iter.Next() {
		stackItems = append(stackItems, iter.Value())
	}
	return stackItems
}

// gasBalance returns the native GAS balance of the account.
func gasBalance(t *testing.T, e *neotest.Executor, acc util.Uint160) int64 {
	c := e.CommitteeInvoker(e.NativeHash(t, nativenames.Gas))

	s, err := c.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)

	return s.Top().BigInt().Int64()
}

// addBlockAt appends an empty block with the given timestamp, ms. Subsequent
// invocations are executed at a later time.
func addBlockAt(t *testing.T, e *neotest.Executor, timestamp uint64) {
	b := e.NewUnsignedBlock(t)
	b.Timestamp = timestamp
	require.NoError(t, e.Chain.AddBlock(e.SignBlock(b)))
}
