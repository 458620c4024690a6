package tests

import (
	"path"
	"testing"

	"github.com/lgmnemesis/justdoit-core/common"
	"github.com/lgmnemesis/justdoit-core/justdoit"
	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const justDoItPath = "../justdoit"

const (
	minuteMS = 60 * 1000
	hourMS   = 60 * minuteMS
)

// challengeState mirrors the stored challenge record.
type challengeState struct {
	committer        []byte
	stake            int64
	deadline         int64
	ownerReported    bool
	ownerSuccess     bool
	evidence         []byte
	failureVotes     int64
	reporterCount    int64
	committerClaimed bool
	feesClaimed      bool
}

// supporterState mirrors a single stored supporter entry.
type supporterState struct {
	account      []byte
	stake        int64
	reported     bool
	votedFailure bool
	claimed      bool
}

func newJustDoItInvoker(t *testing.T) (*neotest.ContractInvoker, *neotest.ContractInvoker, neotest.Signer) {
	e := newExecutor(t)

	tokenHash := deployTokenContract(t, e)
	admin := e.NewAccount(t)

	ctr := neotest.CompileFile(t, e.CommitteeHash, justDoItPath, path.Join(justDoItPath, "config.yml"))
	e.DeployContract(t, ctr, []interface{}{admin.ScriptHash(), tokenHash})

	tok := e.CommitteeInvoker(tokenHash)
	tok.Invoke(t, stackitem.Null{}, "setMinter", ctr.Hash)

	return e.CommitteeInvoker(ctr.Hash), tok, admin
}

// addChallenge creates a challenge on behalf of a fresh funded account and
// returns the account together with the absolute challenge deadline, ms.
func addChallenge(t *testing.T, c *neotest.ContractInvoker, id []byte, stake int64) (neotest.Signer, uint64) {
	committer := c.NewAccount(t)
	deadline := c.TopBlock(t).Timestamp + justdoit.MinDeadlineDelta + hourMS

	cc := c.WithSigners(committer)
	cc.Invoke(t, stackitem.Null{}, "addChallenge",
		committer.ScriptHash(), id, int64(deadline), stake)

	return committer, deadline
}

// supportChallenge co-stakes a challenge on behalf of a fresh funded account.
func supportChallenge(t *testing.T, c *neotest.ContractInvoker, id []byte, stake int64) neotest.Signer {
	supporter := c.NewAccount(t)

	cs := c.WithSigners(supporter)
	cs.Invoke(t, stackitem.Null{}, "supportChallenge",
		supporter.ScriptHash(), id, stake)

	return supporter
}

func getChallengeState(t *testing.T, c *neotest.ContractInvoker, id []byte) challengeState {
	s, err := c.TestInvoke(t, "getChallenge", id)
	require.NoError(t, err)

	arr, ok := s.Top().Item().Value().([]stackitem.Item)
	require.True(t, ok)
	require.Len(t, arr, 10)

	var (
		ch   challengeState
		err2 error
	)

	ch.committer, err2 = arr[0].TryBytes()
	require.NoError(t, err2)

	num := func(it stackitem.Item) int64 {
		v, err := it.TryInteger()
		require.NoError(t, err)
		return v.Int64()
	}
	flag := func(it stackitem.Item) bool {
		v, err := it.TryBool()
		require.NoError(t, err)
		return v
	}

	ch.stake = num(arr[1])
	ch.deadline = num(arr[2])
	ch.ownerReported = flag(arr[3])
	ch.ownerSuccess = flag(arr[4])
	ch.evidence, err2 = arr[5].TryBytes()
	require.NoError(t, err2)
	ch.failureVotes = num(arr[6])
	ch.reporterCount = num(arr[7])
	ch.committerClaimed = flag(arr[8])
	ch.feesClaimed = flag(arr[9])

	return ch
}

func getSupporterStates(t *testing.T, c *neotest.ContractInvoker, id []byte) []supporterState {
	s, err := c.TestInvoke(t, "getSupporters", id)
	require.NoError(t, err)

	arr, ok := s.Top().Item().Value().([]stackitem.Item)
	require.True(t, ok)

	res := make([]supporterState, len(arr))
	for i := range arr {
		fields, ok := arr[i].Value().([]stackitem.Item)
		require.True(t, ok)
		require.Len(t, fields, 5)

		var err error
		res[i].account, err = fields[0].TryBytes()
		require.NoError(t, err)

		stake, err := fields[1].TryInteger()
		require.NoError(t, err)
		res[i].stake = stake.Int64()

		res[i].reported, err = fields[2].TryBool()
		require.NoError(t, err)
		res[i].votedFailure, err = fields[3].TryBool()
		require.NoError(t, err)
		res[i].claimed, err = fields[4].TryBool()
		require.NoError(t, err)
	}

	return res
}

func checkPhase(t *testing.T, c *neotest.ContractInvoker, id []byte, expected int64) {
	s, err := c.TestInvoke(t, "phase", id)
	require.NoError(t, err)
	require.Equal(t, expected, s.Top().BigInt().Int64())
}

func checkTotalFees(t *testing.T, c *neotest.ContractInvoker, expected int64) {
	s, err := c.TestInvoke(t, "totalFeesAmount")
	require.NoError(t, err)
	require.Equal(t, expected, s.Top().BigInt().Int64())
}

func TestAddChallenge(t *testing.T) {
	c, _, _ := newJustDoItInvoker(t)

	id := randomBytes(8)
	committer := c.NewAccount(t)
	cc := c.WithSigners(committer)
	deadline := int64(c.TopBlock(t).Timestamp) + justdoit.MinDeadlineDelta + hourMS

	c.InvokeFail(t, common.ErrOwnerWitnessFailed, "addChallenge",
		committer.ScriptHash(), id, deadline, int64(100))
	cc.InvokeFail(t, "empty challenge id", "addChallenge",
		committer.ScriptHash(), []byte{}, deadline, int64(100))
	cc.InvokeFail(t, justdoit.ErrNoFunds, "addChallenge",
		committer.ScriptHash(), id, deadline, int64(0))
	cc.InvokeFail(t, justdoit.ErrDeadlineTooShort, "addChallenge",
		committer.ScriptHash(), id,
		int64(c.TopBlock(t).Timestamp)+justdoit.MinDeadlineDelta, int64(100))

	cc.Invoke(t, stackitem.Null{}, "addChallenge",
		committer.ScriptHash(), id, deadline, int64(100))
	require.EqualValues(t, 100, gasBalance(t, c.Executor, c.Hash))

	cc.InvokeFail(t, justdoit.ErrChallengeExists, "addChallenge",
		committer.ScriptHash(), id, deadline, int64(100))

	ch := getChallengeState(t, c, id)
	require.Equal(t, committer.ScriptHash().BytesBE(), ch.committer)
	require.EqualValues(t, 100, ch.stake)
	require.EqualValues(t, deadline, ch.deadline)
	require.False(t, ch.ownerReported)
	require.Empty(t, ch.evidence)
	require.Zero(t, ch.failureVotes)
	require.Zero(t, ch.reporterCount)

	require.Empty(t, getSupporterStates(t, c, id))
	checkPhase(t, c, id, justdoit.PhaseOpen)

	c.InvokeFail(t, justdoit.ErrChallengeNotFound, "getChallenge", randomBytes(8))
}

func TestSupportChallenge(t *testing.T) {
	c, _, _ := newJustDoItInvoker(t)

	id := randomBytes(8)
	_, deadline := addChallenge(t, c, id, 1000)

	supporter := c.NewAccount(t)
	cs := c.WithSigners(supporter)

	cs.InvokeFail(t, justdoit.ErrChallengeNotFound, "supportChallenge",
		supporter.ScriptHash(), randomBytes(8), int64(100))
	c.InvokeFail(t, common.ErrOwnerWitnessFailed, "supportChallenge",
		supporter.ScriptHash(), id, int64(100))
	cs.InvokeFail(t, justdoit.ErrNoFunds, "supportChallenge",
		supporter.ScriptHash(), id, int64(0))

	cs.Invoke(t, stackitem.Null{}, "supportChallenge",
		supporter.ScriptHash(), id, int64(100))
	require.EqualValues(t, 1100, gasBalance(t, c.Executor, c.Hash))

	cs.InvokeFail(t, justdoit.ErrAlreadySupporting, "supportChallenge",
		supporter.ScriptHash(), id, int64(50))

	supporters := getSupporterStates(t, c, id)
	require.Len(t, supporters, 1)
	require.Equal(t, supporter.ScriptHash().BytesBE(), supporters[0].account)
	require.EqualValues(t, 100, supporters[0].stake)
	require.False(t, supporters[0].reported)

	addBlockAt(t, c.Executor, deadline+minuteMS)

	late := c.NewAccount(t)
	cLate := c.WithSigners(late)
	cLate.InvokeFail(t, justdoit.ErrSupportOver, "supportChallenge",
		late.ScriptHash(), id, int64(100))
}

func TestPhaseBoundaries(t *testing.T) {
	c, _, _ := newJustDoItInvoker(t)

	id := randomBytes(8)
	_, deadline := addChallenge(t, c, id, 100)

	checkPhase(t, c, id, justdoit.PhaseOpen)

	// test invoke is done with +1 timestamp
	addBlockAt(t, c.Executor, deadline-2)
	checkPhase(t, c, id, justdoit.PhaseOpen)

	addBlockAt(t, c.Executor, deadline-1)
	checkPhase(t, c, id, justdoit.PhaseReporting)

	addBlockAt(t, c.Executor, deadline+justdoit.ReportWindow-2)
	checkPhase(t, c, id, justdoit.PhaseReporting)

	addBlockAt(t, c.Executor, deadline+justdoit.ReportWindow-1)
	checkPhase(t, c, id, justdoit.PhaseClosed)
}

func TestReports(t *testing.T) {
	c, _, _ := newJustDoItInvoker(t)

	id := randomBytes(8)
	committer, deadline := addChallenge(t, c, id, 1000)
	s1 := supportChallenge(t, c, id, 300)
	s2 := supportChallenge(t, c, id, 200)

	cCommitter := c.WithSigners(committer)
	cS1 := c.WithSigners(s1)
	cS2 := c.WithSigners(s2)

	evidence := randomBytes(32)

	cCommitter.InvokeFail(t, justdoit.ErrNotInReportWindow, "ownerReport",
		id, true, evidence)
	cS1.InvokeFail(t, justdoit.ErrNotInReportWindow, "supporterReport",
		s1.ScriptHash(), id, true)

	addBlockAt(t, c.Executor, deadline+minuteMS)

	c.InvokeFail(t, common.ErrOwnerWitnessFailed, "ownerReport", id, true, evidence)

	stranger := c.NewAccount(t)
	cStranger := c.WithSigners(stranger)
	cStranger.InvokeFail(t, justdoit.ErrNotSupporter, "supporterReport",
		stranger.ScriptHash(), id, true)

	cCommitter.Invoke(t, stackitem.Null{}, "ownerReport", id, true, evidence)
	cCommitter.InvokeFail(t, justdoit.ErrAlreadyReported, "ownerReport",
		id, false, []byte{})

	cS1.Invoke(t, stackitem.Null{}, "supporterReport", s1.ScriptHash(), id, true)
	cS1.InvokeFail(t, justdoit.ErrAlreadyReported, "supporterReport",
		s1.ScriptHash(), id, false)
	cS2.Invoke(t, stackitem.Null{}, "supporterReport", s2.ScriptHash(), id, false)

	ch := getChallengeState(t, c, id)
	require.True(t, ch.ownerReported)
	require.True(t, ch.ownerSuccess)
	require.Equal(t, evidence, ch.evidence)
	require.EqualValues(t, 1, ch.failureVotes)
	require.EqualValues(t, 2, ch.reporterCount)

	supporters := getSupporterStates(t, c, id)
	require.Len(t, supporters, 2)
	require.True(t, supporters[0].reported)
	require.False(t, supporters[0].votedFailure)
	require.True(t, supporters[1].reported)
	require.True(t, supporters[1].votedFailure)

	addBlockAt(t, c.Executor, deadline+justdoit.ReportWindow+minuteMS)

	cS2.InvokeFail(t, justdoit.ErrNotInReportWindow, "supporterReport",
		s2.ScriptHash(), id, true)
}

// A kept challenge: one failure vote out of two reports is not a strict
// majority, the committer gets the stake back and all supporter stakes
// become the platform fee.
func TestSettleKeptChallenge(t *testing.T) {
	c, tok, admin := newJustDoItInvoker(t)

	id := randomBytes(8)
	committer, deadline := addChallenge(t, c, id, 1000)
	s1 := supportChallenge(t, c, id, 300)
	s2 := supportChallenge(t, c, id, 200)

	cCommitter := c.WithSigners(committer)
	cS1 := c.WithSigners(s1)
	cS2 := c.WithSigners(s2)
	cAdmin := c.WithSigners(admin)

	addBlockAt(t, c.Executor, deadline+minuteMS)

	cS1.Invoke(t, stackitem.Null{}, "supporterReport", s1.ScriptHash(), id, true)
	cS2.Invoke(t, stackitem.Null{}, "supporterReport", s2.ScriptHash(), id, false)

	cCommitter.InvokeFail(t, justdoit.ErrNotClosed, "collectCommitterRewards", id)
	cS2.InvokeFail(t, justdoit.ErrNotClosed, "collectSupporterRewards",
		s2.ScriptHash(), id)
	cAdmin.InvokeFail(t, justdoit.ErrNotClosed, "collectChallengeFees", id)

	addBlockAt(t, c.Executor, deadline+justdoit.ReportWindow+minuteMS)

	cS1.InvokeFail(t, justdoit.ErrNoRewards, "collectSupporterRewards",
		s1.ScriptHash(), id)
	cS2.InvokeFail(t, justdoit.ErrNoRewards, "collectSupporterRewards",
		s2.ScriptHash(), id)

	require.EqualValues(t, 1500, gasBalance(t, c.Executor, c.Hash))

	cCommitter.Invoke(t, stackitem.Null{}, "collectCommitterRewards", id)
	require.EqualValues(t, 500, gasBalance(t, c.Executor, c.Hash))
	cCommitter.InvokeFail(t, justdoit.ErrNoRewards, "collectCommitterRewards", id)

	c.InvokeFail(t, common.ErrAdminWitnessFailed, "collectChallengeFees", id)

	checkTotalFees(t, c, 0)
	cAdmin.Invoke(t, stackitem.Null{}, "collectChallengeFees", id)
	checkTotalFees(t, c, 500)
	cAdmin.InvokeFail(t, justdoit.ErrNoRewards, "collectChallengeFees", id)

	c.InvokeFail(t, common.ErrAdminWitnessFailed, "collectFees")
	cAdmin.Invoke(t, stackitem.Null{}, "collectFees")
	checkTotalFees(t, c, 0)
	require.EqualValues(t, 0, gasBalance(t, c.Executor, c.Hash))

	// nothing was distributed, so no reward tokens exist
	tok.Invoke(t, stackitem.Make(0), "totalSupply")
}

// A failed challenge: the forfeited stake is split between the supporters
// that predicted the failure, proportionally to their stakes and net of the
// platform fee, with the same share minted in reward tokens.
func TestSettleFailedChallenge(t *testing.T) {
	c, tok, admin := newJustDoItInvoker(t)

	id := randomBytes(8)
	committer, deadline := addChallenge(t, c, id, 1000)
	s1 := supportChallenge(t, c, id, 500)
	s2 := supportChallenge(t, c, id, 300)
	s3 := supportChallenge(t, c, id, 200)
	s4 := supportChallenge(t, c, id, 100)

	cCommitter := c.WithSigners(committer)
	cS1 := c.WithSigners(s1)
	cS2 := c.WithSigners(s2)
	cS3 := c.WithSigners(s3)
	cS4 := c.WithSigners(s4)
	cAdmin := c.WithSigners(admin)

	addBlockAt(t, c.Executor, deadline+minuteMS)

	cS1.Invoke(t, stackitem.Null{}, "supporterReport", s1.ScriptHash(), id, false)
	cS2.Invoke(t, stackitem.Null{}, "supporterReport", s2.ScriptHash(), id, false)
	cS3.Invoke(t, stackitem.Null{}, "supporterReport", s3.ScriptHash(), id, true)
	// s4 stays silent

	addBlockAt(t, c.Executor, deadline+justdoit.ReportWindow+minuteMS)
	require.EqualValues(t, 2100, gasBalance(t, c.Executor, c.Hash))

	// 2 of 3 reports voted failure, the challenge is resolved as failed
	cCommitter.InvokeFail(t, justdoit.ErrNoRewards, "collectCommitterRewards", id)
	cS3.InvokeFail(t, justdoit.ErrNoRewards, "collectSupporterRewards",
		s3.ScriptHash(), id)
	cS4.InvokeFail(t, justdoit.ErrNoRewards, "collectSupporterRewards",
		s4.ScriptHash(), id)

	// the platform share is computed from the recorded votes alone and may
	// be collected before any reward claim
	cAdmin.Invoke(t, stackitem.Null{}, "collectChallengeFees", id)
	checkTotalFees(t, c, 399)
	tok.Invoke(t, stackitem.Make(100), "balanceOf", c.Hash)

	// s1 share of the forfeited stake: 1000*500/800 = 625, fee 62
	cS1.Invoke(t, stackitem.Null{}, "collectSupporterRewards", s1.ScriptHash(), id)
	require.EqualValues(t, 2100-(500+625-62), gasBalance(t, c.Executor, c.Hash))
	tok.Invoke(t, stackitem.Make(625), "balanceOf", s1.ScriptHash())
	cS1.InvokeFail(t, justdoit.ErrNoRewards, "collectSupporterRewards",
		s1.ScriptHash(), id)

	// s2 share: 1000*300/800 = 375, fee 37
	cS2.Invoke(t, stackitem.Null{}, "collectSupporterRewards", s2.ScriptHash(), id)
	require.EqualValues(t, 399, gasBalance(t, c.Executor, c.Hash))
	tok.Invoke(t, stackitem.Make(375), "balanceOf", s2.ScriptHash())

	tok.Invoke(t, stackitem.Make(1100), "totalSupply")

	// the sweep burns 10% of the escrowed reward tokens and forwards the
	// remainder to the administrative account
	cAdmin.Invoke(t, stackitem.Null{}, "collectFees")
	checkTotalFees(t, c, 0)
	require.EqualValues(t, 0, gasBalance(t, c.Executor, c.Hash))
	tok.Invoke(t, stackitem.Make(0), "balanceOf", c.Hash)
	tok.Invoke(t, stackitem.Make(90), "balanceOf", admin.ScriptHash())
	tok.Invoke(t, stackitem.Make(1090), "totalSupply")
}

// The proportional split truncates, the remainder goes to the platform fee.
func TestCollectChallengeFeesRemainder(t *testing.T) {
	c, tok, admin := newJustDoItInvoker(t)

	id := randomBytes(8)
	_, deadline := addChallenge(t, c, id, 100)

	supporters := make([]neotest.Signer, 3)
	for i := range supporters {
		supporters[i] = supportChallenge(t, c, id, 1)
	}

	addBlockAt(t, c.Executor, deadline+minuteMS)
	for _, s := range supporters {
		c.WithSigners(s).Invoke(t, stackitem.Null{}, "supporterReport",
			s.ScriptHash(), id, false)
	}

	addBlockAt(t, c.Executor, deadline+justdoit.ReportWindow+minuteMS)

	// each share is 100*1/3 = 33, distributed 99, remainder 1;
	// fee per share is 3
	cAdmin := c.WithSigners(admin)
	cAdmin.Invoke(t, stackitem.Null{}, "collectChallengeFees", id)
	checkTotalFees(t, c, 3*3+1)
	tok.Invoke(t, stackitem.Make(9), "balanceOf", c.Hash)

	for _, s := range supporters {
		c.WithSigners(s).Invoke(t, stackitem.Null{}, "collectSupporterRewards",
			s.ScriptHash(), id)
		tok.Invoke(t, stackitem.Make(33), "balanceOf", s.ScriptHash())
	}

	// everything escrowed is either paid out or accrued as fee
	require.EqualValues(t, 10, gasBalance(t, c.Executor, c.Hash))
}

func TestCollectFeesEmpty(t *testing.T) {
	c, tok, admin := newJustDoItInvoker(t)

	cAdmin := c.WithSigners(admin)
	cAdmin.Invoke(t, stackitem.Null{}, "collectFees")

	checkTotalFees(t, c, 0)
	tok.Invoke(t, stackitem.Make(0), "totalSupply")
}

func TestListChallenges(t *testing.T) {
	c, _, _ := newJustDoItInvoker(t)

	s, err := c.TestInvoke(t, "listChallenges")
	require.NoError(t, err)
	iter, ok := s.Top().Value().(*storage.Iterator)
	require.True(t, ok)
	require.Empty(t, iteratorToArray(iter))

	ids := [][]byte{randomBytes(8), randomBytes(8)}
	for i := range ids {
		addChallenge(t, c, ids[i], 100)
	}

	s, err = c.TestInvoke(t, "listChallenges")
	require.NoError(t, err)
	iter, ok = s.Top().Value().(*storage.Iterator)
	require.True(t, ok)

	items := iteratorToArray(iter)
	listed := make([][]byte, len(items))
	for i := range items {
		listed[i], err = items[i].TryBytes()
		require.NoError(t, err)
	}
	require.ElementsMatch(t, ids, listed)
}

func TestOnNEP17Payment(t *testing.T) {
	c, _, _ := newJustDoItInvoker(t)

	// plain GAS donations are accepted
	gasInv := c.CommitteeInvoker(c.NativeHash(t, nativenames.Gas))
	gasInv.Invoke(t, stackitem.NewBool(true), "transfer",
		gasInv.Committee.ScriptHash(), c.Hash, int64(42), nil)

	require.EqualValues(t, 42, gasBalance(t, c.Executor, c.Hash))
}

func TestJustDoItVersion(t *testing.T) {
	c, tok, _ := newJustDoItInvoker(t)

	c.Invoke(t, stackitem.Make(common.Version), "version")
	tok.Invoke(t, stackitem.Make(common.Version), "version")
}
