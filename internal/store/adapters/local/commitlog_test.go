package local_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/dataledger/internal/cluster"
	"github.com/dropDatabas3/dataledger/internal/domain/repository"
	"github.com/dropDatabas3/dataledger/internal/ledger"
	"github.com/dropDatabas3/dataledger/internal/store/adapters/local"
)

func newLog() (*local.CommitLog, *cluster.FSM) {
	fsm := cluster.NewFSM(ledger.New(ledger.Genesis{Admin: "admin", Treasury: "treasury", FaucetAmount: 10}))
	return local.NewCommitLog("", fsm), fsm
}

func TestSubmit_IndexesAreSequential(t *testing.T) {
	cl, fsm := newLog()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := cl.Submit(ctx, repository.Mutation{
				Type:      repository.MutationTokenFaucet,
				Caller:    "acct-" + string(rune('a'+i)),
				Timestamp: time.Now(),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	st, err := cl.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), st.CommitIndex)
	assert.Equal(t, "local", st.NodeID)
	assert.Equal(t, "off", st.Mode)
	assert.Equal(t, uint64(200), fsm.State().TotalSupply())
	assert.Equal(t, uint64(20), fsm.State().LastSeq())
}

func TestSubmit_ReturnsApplyResult(t *testing.T) {
	cl, _ := newLog()
	payload, err := json.Marshal(cluster.MintDTO{To: "bob", Amount: 5})
	require.NoError(t, err)

	commit, err := cl.Submit(context.Background(), repository.Mutation{Type: repository.MutationTokenMint, Caller: "mallory", Payload: payload, Timestamp: time.Now()})
	require.NoError(t, err)
	res := commit.Result.(cluster.ApplyResult)
	require.ErrorIs(t, res.Err, ledger.ErrPermissionDenied)
}

func TestSubmit_AfterCloseIsNotSubmitted(t *testing.T) {
	cl, _ := newLog()
	ctx := context.Background()
	require.NoError(t, cl.Close())

	_, err := cl.Submit(ctx, repository.Mutation{Type: repository.MutationTokenFaucet, Caller: "a", Timestamp: time.Now()})
	require.ErrorIs(t, err, repository.ErrClusterUnavailable)
	assert.True(t, repository.IsNotSubmitted(err))

	leader, _ := cl.IsLeader(ctx)
	assert.False(t, leader)
	require.ErrorIs(t, cl.Ping(ctx), repository.ErrClusterUnavailable)
	require.ErrorIs(t, cl.AddPeer(ctx, "n2", "x"), repository.ErrNotImplemented)
}
