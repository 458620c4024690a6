package justdoit

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"

	"github.com/lgmnemesis/justdoit-core/common"
)

type (
	// Challenge is a single staked commitment with a deadline.
	Challenge struct {
		// Committer is the account that created the challenge and staked
		// against its own success.
		Committer interop.Hash160
		// Stake is the GAS amount deposited at creation, immutable.
		Stake int
		// Deadline is the commitment deadline, block time in milliseconds.
		Deadline int
		// OwnerReported is set once the committer self-reported.
		OwnerReported bool
		// OwnerSuccess is the committer's self-reported outcome. It is
		// recorded for audit and does not affect settlement.
		OwnerSuccess bool
		// Evidence is an optional reference to outcome evidence
		// (a content hash or path), supplied with the self-report.
		Evidence []byte
		// FailureVotes is the number of supporters that reported failure.
		FailureVotes int
		// ReporterCount is the number of supporters that reported at all.
		ReporterCount int
		// CommitterClaimed is set once the committer settled.
		CommitterClaimed bool
		// FeesClaimed is set once the platform share was settled.
		FeesClaimed bool
	}

	// Supporter is a single co-staking entry of a challenge. Report and
	// claim flags are kept here, one-shot per supporter.
	Supporter struct {
		Account      interop.Hash160
		Stake        int
		Reported     bool
		VotedFailure bool
		Claimed      bool
	}
)

// Derived challenge phases. The phase is never stored, it is computed from
// the deadline and the current block time on every call.
const (
	PhaseOpen = iota
	PhaseReporting
	PhaseClosed
)

const (
	// MinDeadlineDelta is the minimum distance between the creation time
	// and the deadline of a new challenge, in milliseconds.
	MinDeadlineDelta = 24 * 60 * 60 * 1000
	// ReportWindow is the length of the outcome reporting window that
	// follows the deadline, in milliseconds.
	ReportWindow = 48 * 60 * 60 * 1000

	// FeePercent is the platform share of distributed native rewards.
	FeePercent = 10
	// TokenFeePercent is the platform share of minted reward tokens.
	TokenFeePercent = 10
	// BurnPercent is the fraction of contract-held reward tokens destroyed
	// during the fee sweep.
	BurnPercent = 10

	adminKey = "serviceAdmin"
	tokenKey = "tokenScriptHash"
	feesKey  = "accruedFees"

	challengePrefix  = "c:"
	supportersPrefix = "p:"

	// hardcoded value to ignore deposit notification in onNEP17Payment
	ignoreDepositNotification = "\x57\x0b"
)

// Reasons of failed invocations.
const (
	// ErrChallengeExists is returned on an attempt to create a challenge
	// with an already used id.
	ErrChallengeExists = "challenge already exists"
	// ErrChallengeNotFound is returned when the challenge id is unknown.
	ErrChallengeNotFound = "challenge not found"
	// ErrNoFunds is returned when a funded call carries no value.
	ErrNoFunds = "no funds supplied"
	// ErrDeadlineTooShort is returned when the deadline is closer than
	// MinDeadlineDelta to the current block time.
	ErrDeadlineTooShort = "deadline too short"
	// ErrSupportOver is returned on support attempts past the deadline.
	ErrSupportOver = "support period is over"
	// ErrAlreadySupporting is returned on repeated support of the same
	// challenge by the same account.
	ErrAlreadySupporting = "already supporting this challenge"
	// ErrNotInReportWindow is returned on report attempts outside
	// [deadline, deadline+ReportWindow).
	ErrNotInReportWindow = "not in report window"
	// ErrAlreadyReported is returned on a second report of the same party.
	ErrAlreadyReported = "already reported"
	// ErrNotSupporter is returned when the account never supported the
	// challenge.
	ErrNotSupporter = "not a supporter of this challenge"
	// ErrNotClosed is returned on settlement attempts before the report
	// window has elapsed.
	ErrNotClosed = "challenge is not closed yet"
	// ErrNoRewards is returned on repeated settlement claims and on
	// claims that the resolved outcome leaves nothing to collect for.
	ErrNoRewards = "no more rewards"
	// ErrTransferFailed is returned when the GAS contract rejected a
	// transfer; the whole invocation is rolled back.
	ErrTransferFailed = "failed to transfer funds, aborting"
)

func _deploy(data interface{}, isUpdate bool) {
	ctx := storage.GetContext()
	if isUpdate {
		args := data.([]interface{})
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		admin interop.Hash160
		token interop.Hash160
	})

	if len(args.admin) != interop.Hash160Len || len(args.token) != interop.Hash160Len {
		panic("incorrect length of account script hash")
	}

	storage.Put(ctx, adminKey, args.admin)
	storage.Put(ctx, tokenKey, args.token)

	runtime.Log("justdoit contract initialized")
}

// Update method updates contract source code and manifest. Can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data interface{}) {
	if !common.HasUpdateAccess() {
		panic("only committee can update contract")
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("justdoit contract updated")
}

// AddChallenge creates a new challenge with a unique id, staking the given
// GAS amount of the committer behind it. The deadline is an absolute block
// time in milliseconds and must be at least MinDeadlineDelta away. Can be
// invoked only by the committer.
//
// Produces ChallengeAdded notification.
func AddChallenge(committer interop.Hash160, id []byte, deadline int, stake int) {
	common.CheckOwnerWitness(committer)

	if len(id) == 0 {
		panic("empty challenge id")
	}

	ctx := storage.GetContext()
	if storage.Get(ctx, challengeKey(id)) != nil {
		panic(ErrChallengeExists)
	}

	if stake <= 0 {
		panic(ErrNoFunds)
	}

	if deadline < runtime.GetTime()+MinDeadlineDelta {
		panic(ErrDeadlineTooShort)
	}

	depositGAS(committer, stake)

	ch := Challenge{
		Committer: committer,
		Stake:     stake,
		Deadline:  deadline,
		Evidence:  []byte{},
	}
	common.SetSerialized(ctx, challengeKey(id), ch)
	common.SetSerialized(ctx, supportersKey(id), []Supporter{})

	runtime.Notify("ChallengeAdded", id, committer, deadline, stake)
}

// SupportChallenge co-stakes the given GAS amount in favor of the
// commitment being kept. Supporting is allowed only before the deadline
// and only once per account. Can be invoked only by the supporter.
//
// Produces SupportChallenge notification.
func SupportChallenge(supporter interop.Hash160, id []byte, amount int) {
	common.CheckOwnerWitness(supporter)

	ctx := storage.GetContext()
	ch := getChallenge(ctx, id)

	if amount <= 0 {
		panic(ErrNoFunds)
	}

	if currentPhase(ch.Deadline) != PhaseOpen {
		panic(ErrSupportOver)
	}

	supporters := getSupporters(ctx, id)
	for i := range supporters {
		if common.BytesEqual(supporters[i].Account, supporter) {
			panic(ErrAlreadySupporting)
		}
	}

	depositGAS(supporter, amount)

	supporters = append(supporters, Supporter{
		Account: supporter,
		Stake:   amount,
	})
	common.SetSerialized(ctx, supportersKey(id), supporters)

	runtime.Notify("SupportChallenge", id, supporter, amount)
}

// OwnerReport records the committer's self-reported outcome with an
// optional evidence reference. The report is accepted only inside the
// report window, at most once, and is kept for audit: settlement is
// resolved from supporter votes alone. Can be invoked only by the
// committer.
//
// Produces Reported notification.
func OwnerReport(id []byte, success bool, evidence []byte) {
	ctx := storage.GetContext()
	ch := getChallenge(ctx, id)

	common.CheckOwnerWitness(ch.Committer)

	if currentPhase(ch.Deadline) != PhaseReporting {
		panic(ErrNotInReportWindow)
	}

	if ch.OwnerReported {
		panic(ErrAlreadyReported)
	}

	ch.OwnerReported = true
	ch.OwnerSuccess = success
	if len(evidence) != 0 {
		ch.Evidence = evidence
	}
	common.SetSerialized(ctx, challengeKey(id), ch)

	runtime.Notify("Reported", id, ch.Committer, success)
}

// SupporterReport records a supporter's vote on the challenge outcome.
// The vote is accepted only inside the report window and at most once per
// supporter. Can be invoked only by a registered supporter.
//
// Produces Reported notification.
func SupporterReport(supporter interop.Hash160, id []byte, success bool) {
	common.CheckOwnerWitness(supporter)

	ctx := storage.GetContext()
	ch := getChallenge(ctx, id)

	if currentPhase(ch.Deadline) != PhaseReporting {
		panic(ErrNotInReportWindow)
	}

	supporters := getSupporters(ctx, id)
	ind := supporterIndex(supporters, supporter)
	if ind < 0 {
		panic(ErrNotSupporter)
	}

	if supporters[ind].Reported {
		panic(ErrAlreadyReported)
	}

	supporters[ind].Reported = true
	supporters[ind].VotedFailure = !success
	common.SetSerialized(ctx, supportersKey(id), supporters)

	ch.ReporterCount = ch.ReporterCount + 1 // neo-go#953
	if !success {
		ch.FailureVotes = ch.FailureVotes + 1 // neo-go#953
	}
	common.SetSerialized(ctx, challengeKey(id), ch)

	runtime.Notify("Reported", id, supporter, success)
}

// CollectCommitterRewards settles the committer's side of a closed
// challenge. A challenge resolved as kept returns exactly the original
// stake; a challenge resolved as failed leaves nothing to collect. Can be
// invoked only by the committer and succeeds at most once.
//
// Produces RewardsCollected notification.
func CollectCommitterRewards(id []byte) {
	ctx := storage.GetContext()
	ch := getChallenge(ctx, id)

	common.CheckOwnerWitness(ch.Committer)
	requireClosed(ch)

	if ch.CommitterClaimed || resolvedFailed(ch) {
		panic(ErrNoRewards)
	}

	payGAS(ch.Committer, ch.Stake)

	ch.CommitterClaimed = true
	common.SetSerialized(ctx, challengeKey(id), ch)

	runtime.Notify("RewardsCollected", id, ch.Committer, ch.Stake, 0)
}

// CollectSupporterRewards settles a supporter's side of a closed
// challenge. A supporter that predicted the failure of a failed challenge
// gets the own stake back plus a proportional share of the forfeited
// committer stake net of the platform fee, and the same share minted in
// JDI. Everyone else has nothing to collect. Can be invoked only by the
// supporter and succeeds at most once per supporter.
//
// Produces RewardsCollected notification.
func CollectSupporterRewards(supporter interop.Hash160, id []byte) {
	common.CheckOwnerWitness(supporter)

	ctx := storage.GetContext()
	ch := getChallenge(ctx, id)
	requireClosed(ch)

	supporters := getSupporters(ctx, id)
	ind := supporterIndex(supporters, supporter)
	if ind < 0 {
		panic(ErrNotSupporter)
	}

	s := supporters[ind]
	if s.Claimed || !resolvedFailed(ch) || !s.Reported || !s.VotedFailure {
		panic(ErrNoRewards)
	}

	share := ch.Stake * s.Stake / correctStake(supporters)
	fee := share * FeePercent / 100

	payGAS(supporter, s.Stake+share-fee)
	mintJDI(ctx, supporter, share)

	supporters[ind].Claimed = true
	common.SetSerialized(ctx, supportersKey(id), supporters)

	runtime.Notify("RewardsCollected", id, supporter, s.Stake+share-fee, share)
}

// TotalFeesAmount returns the accrued, unclaimed native fee balance.
func TotalFeesAmount() int {
	ctx := storage.GetReadOnlyContext()
	return common.GetInt(ctx, feesKey)
}

// CollectChallengeFees settles the platform share of a closed challenge:
// the native share is credited to the fee balance and the token share is
// minted to the contract's own account. The amounts are computed from the
// recorded stakes and votes alone, so the call does not depend on which
// rewards have been claimed already. Can be invoked only by the
// administrative account and succeeds once per challenge.
//
// Produces ChallengeFeesCollected notification.
func CollectChallengeFees(id []byte) {
	ctx := storage.GetContext()
	common.CheckAdminWitness(getAdmin(ctx))

	ch := getChallenge(ctx, id)
	requireClosed(ch)

	if ch.FeesClaimed {
		panic(ErrNoRewards)
	}

	supporters := getSupporters(ctx, id)

	var feeNative, distributed int
	if resolvedFailed(ch) {
		total := correctStake(supporters)
		for i := range supporters {
			s := supporters[i]
			if s.Reported && s.VotedFailure {
				share := ch.Stake * s.Stake / total
				feeNative += share * FeePercent / 100
				distributed += share
			} else {
				// stakes of wrong and silent supporters are forfeited
				feeNative += s.Stake
			}
		}
		// truncation remainder of the proportional split
		feeNative += ch.Stake - distributed
	} else {
		for i := range supporters {
			feeNative += supporters[i].Stake
		}
	}

	tokenFee := distributed * TokenFeePercent / 100
	if tokenFee > 0 {
		mintJDI(ctx, runtime.GetExecutingScriptHash(), tokenFee)
	}

	storage.Put(ctx, feesKey, common.GetInt(ctx, feesKey)+feeNative)

	ch.FeesClaimed = true
	common.SetSerialized(ctx, challengeKey(id), ch)

	runtime.Notify("ChallengeFeesCollected", id, feeNative, tokenFee)
}

// CollectFees sweeps the entire accrued native fee balance to the
// administrative account, burns BurnPercent of the JDI held by the
// contract at sweep time and forwards the remaining JDI to the
// administrative account. This is the only burn path in the system. Can be
// invoked only by the administrative account.
//
// Produces FeesCollected notification.
func CollectFees() {
	ctx := storage.GetContext()
	admin := getAdmin(ctx)
	common.CheckAdminWitness(admin)

	amount := common.GetInt(ctx, feesKey)
	if amount > 0 {
		payGAS(admin, amount)
		storage.Put(ctx, feesKey, 0)
	}

	self := runtime.GetExecutingScriptHash()
	tokenHash := getToken(ctx)

	balance := contract.Call(tokenHash, "balanceOf", contract.ReadStates, self).(int)
	burned := balance * BurnPercent / 100
	if burned > 0 {
		contract.Call(tokenHash, "burn", contract.All, self, burned)
	}

	if remainder := balance - burned; remainder > 0 {
		ok := contract.Call(tokenHash, "transfer", contract.All,
			self, admin, remainder, nil).(bool)
		if !ok {
			panic(ErrTransferFailed)
		}
	}

	runtime.Notify("FeesCollected", admin, amount, burned)
}

// GetChallenge returns the stored challenge record.
func GetChallenge(id []byte) Challenge {
	ctx := storage.GetReadOnlyContext()
	return getChallenge(ctx, id)
}

// GetSupporters returns all supporters of the challenge in support order.
func GetSupporters(id []byte) []Supporter {
	ctx := storage.GetReadOnlyContext()
	getChallenge(ctx, id) // existence check
	return getSupporters(ctx, id)
}

// Phase returns the challenge phase derived from the current block time:
// PhaseOpen, PhaseReporting or PhaseClosed.
func Phase(id []byte) int {
	ctx := storage.GetReadOnlyContext()
	ch := getChallenge(ctx, id)
	return currentPhase(ch.Deadline)
}

// ListChallenges returns an iterator over all challenge ids.
func ListChallenges() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	return storage.Find(ctx, challengePrefix, storage.KeysOnly|storage.RemovePrefix)
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
func OnNEP17Payment(from interop.Hash160, amount int, data interface{}) {
	if data != nil && common.BytesEqual(data.([]byte), []byte(ignoreDepositNotification)) {
		return
	}

	caller := runtime.GetCallingScriptHash()
	if !common.BytesEqual(caller, interop.Hash160(gas.Hash)) {
		panic("only GAS can be accepted for deposit")
	}
}

// Version returns version of the contract.
func Version() int {
	return common.Version
}

// currentPhase derives the challenge phase from the current block time.
func currentPhase(deadline int) int {
	now := runtime.GetTime()
	if now < deadline {
		return PhaseOpen
	}
	if now < deadline+ReportWindow {
		return PhaseReporting
	}
	return PhaseClosed
}

// resolvedFailed tells whether a strict majority of the supporters that
// reported voted failure.
func resolvedFailed(ch Challenge) bool {
	return ch.FailureVotes*2 > ch.ReporterCount
}

func requireClosed(ch Challenge) {
	if currentPhase(ch.Deadline) != PhaseClosed {
		panic(ErrNotClosed)
	}
}

// correctStake sums the stakes of supporters that voted failure. It is
// positive for any challenge resolved as failed.
func correctStake(supporters []Supporter) int {
	var total int
	for i := range supporters {
		if supporters[i].Reported && supporters[i].VotedFailure {
			total += supporters[i].Stake
		}
	}
	return total
}

func supporterIndex(supporters []Supporter, account interop.Hash160) int {
	for i := range supporters {
		if common.BytesEqual(supporters[i].Account, account) {
			return i
		}
	}
	return -1
}

func challengeKey(id []byte) []byte {
	return append([]byte(challengePrefix), id...)
}

func supportersKey(id []byte) []byte {
	return append([]byte(supportersPrefix), id...)
}

func getChallenge(ctx storage.Context, id []byte) Challenge {
	data := storage.Get(ctx, challengeKey(id))
	if data == nil {
		panic(ErrChallengeNotFound)
	}
	return std.Deserialize(data.([]byte)).(Challenge)
}

func getSupporters(ctx storage.Context, id []byte) []Supporter {
	data := storage.Get(ctx, supportersKey(id))
	if data == nil {
		return []Supporter{}
	}
	return std.Deserialize(data.([]byte)).([]Supporter)
}

func getAdmin(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, adminKey).(interop.Hash160)
}

func getToken(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, tokenKey).(interop.Hash160)
}

// depositGAS pulls the given GAS amount from the account into the contract
// escrow.
func depositGAS(from interop.Hash160, amount int) {
	self := runtime.GetExecutingScriptHash()
	if !gas.Transfer(from, self, amount, []byte(ignoreDepositNotification)) {
		panic(ErrTransferFailed)
	}
}

// payGAS pushes the given GAS amount out of the contract escrow.
func payGAS(to interop.Hash160, amount int) {
	self := runtime.GetExecutingScriptHash()
	if !gas.Transfer(self, to, amount, nil) {
		panic(ErrTransferFailed)
	}
}

// mintJDI mints reward tokens through the JDI token contract, which has
// this contract configured as its only minter.
func mintJDI(ctx storage.Context, to interop.Hash160, amount int) {
	if amount <= 0 {
		return
	}
	contract.Call(getToken(ctx), "mint", contract.All, to, amount)
}
