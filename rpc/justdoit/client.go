// Package justdoit contains RPC wrappers for the JustDoIt contract.
//
// The contract has no fixed hash, so the wrappers are constructed with the
// hash of a concrete deployment.
package justdoit

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Challenge is a contract-side challenge record.
type Challenge struct {
	Committer        util.Uint160
	Stake            *big.Int
	Deadline         *big.Int
	OwnerReported    bool
	OwnerSuccess     bool
	Evidence         []byte
	FailureVotes     *big.Int
	ReporterCount    *big.Int
	CommitterClaimed bool
	FeesClaimed      bool
}

// Supporter is a contract-side supporter record.
type Supporter struct {
	Account      util.Uint160
	Stake        *big.Int
	Reported     bool
	VotedFailure bool
	Claimed      bool
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract
// hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and
// the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// GetChallenge invokes `getChallenge` method of contract.
func (c *ContractReader) GetChallenge(id []byte) (*Challenge, error) {
	return itemToChallenge(unwrap.Item(c.invoker.Call(c.hash, "getChallenge", id)))
}

// GetSupporters invokes `getSupporters` method of contract.
func (c *ContractReader) GetSupporters(id []byte) ([]*Supporter, error) {
	items, err := unwrap.Array(c.invoker.Call(c.hash, "getSupporters", id))
	if err != nil {
		return nil, err
	}

	res := make([]*Supporter, len(items))
	for i := range items {
		res[i] = new(Supporter)
		if err := res[i].FromStackItem(items[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}

// Phase invokes `phase` method of contract.
func (c *ContractReader) Phase(id []byte) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "phase", id))
}

// TotalFeesAmount invokes `totalFeesAmount` method of contract.
func (c *ContractReader) TotalFeesAmount() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "totalFeesAmount"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// ListChallenges invokes `listChallenges` method of contract, returning an
// iterator session over all challenge ids.
func (c *ContractReader) ListChallenges() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "listChallenges"))
}

// ListChallengesExpanded is similar to ListChallenges (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) ListChallengesExpanded(_numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "listChallenges", _numOfIteratorItems))
}

// AddChallenge creates a transaction invoking `addChallenge` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) AddChallenge(committer util.Uint160, id []byte, deadline *big.Int, stake *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "addChallenge", committer, id, deadline, stake)
}

// AddChallengeTransaction creates a transaction invoking `addChallenge` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) AddChallengeTransaction(committer util.Uint160, id []byte, deadline *big.Int, stake *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "addChallenge", committer, id, deadline, stake)
}

// SupportChallenge creates a transaction invoking `supportChallenge` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SupportChallenge(supporter util.Uint160, id []byte, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "supportChallenge", supporter, id, amount)
}

// SupportChallengeTransaction creates a transaction invoking `supportChallenge` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SupportChallengeTransaction(supporter util.Uint160, id []byte, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "supportChallenge", supporter, id, amount)
}

// OwnerReport creates a transaction invoking `ownerReport` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) OwnerReport(id []byte, success bool, evidence []byte) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "ownerReport", id, success, evidence)
}

// SupporterReport creates a transaction invoking `supporterReport` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SupporterReport(supporter util.Uint160, id []byte, success bool) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "supporterReport", supporter, id, success)
}

// CollectCommitterRewards creates a transaction invoking `collectCommitterRewards` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) CollectCommitterRewards(id []byte) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "collectCommitterRewards", id)
}

// CollectSupporterRewards creates a transaction invoking `collectSupporterRewards` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) CollectSupporterRewards(supporter util.Uint160, id []byte) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "collectSupporterRewards", supporter, id)
}

// CollectChallengeFees creates a transaction invoking `collectChallengeFees` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) CollectChallengeFees(id []byte) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "collectChallengeFees", id)
}

// CollectFees creates a transaction invoking `collectFees` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) CollectFees() (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "collectFees")
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

func itemToChallenge(item stackitem.Item, err error) (*Challenge, error) {
	if err != nil {
		return nil, err
	}
	res := new(Challenge)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of Challenge from the given stack item.
func (res *Challenge) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 10 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	if res.Committer, err = itemToUint160(arr[0]); err != nil {
		return fmt.Errorf("field Committer: %w", err)
	}
	if res.Stake, err = arr[1].TryInteger(); err != nil {
		return fmt.Errorf("field Stake: %w", err)
	}
	if res.Deadline, err = arr[2].TryInteger(); err != nil {
		return fmt.Errorf("field Deadline: %w", err)
	}
	if res.OwnerReported, err = arr[3].TryBool(); err != nil {
		return fmt.Errorf("field OwnerReported: %w", err)
	}
	if res.OwnerSuccess, err = arr[4].TryBool(); err != nil {
		return fmt.Errorf("field OwnerSuccess: %w", err)
	}
	if res.Evidence, err = arr[5].TryBytes(); err != nil {
		return fmt.Errorf("field Evidence: %w", err)
	}
	if res.FailureVotes, err = arr[6].TryInteger(); err != nil {
		return fmt.Errorf("field FailureVotes: %w", err)
	}
	if res.ReporterCount, err = arr[7].TryInteger(); err != nil {
		return fmt.Errorf("field ReporterCount: %w", err)
	}
	if res.CommitterClaimed, err = arr[8].TryBool(); err != nil {
		return fmt.Errorf("field CommitterClaimed: %w", err)
	}
	if res.FeesClaimed, err = arr[9].TryBool(); err != nil {
		return fmt.Errorf("field FeesClaimed: %w", err)
	}

	return nil
}

// FromStackItem retrieves fields of Supporter from the given stack item.
func (res *Supporter) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 5 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	if res.Account, err = itemToUint160(arr[0]); err != nil {
		return fmt.Errorf("field Account: %w", err)
	}
	if res.Stake, err = arr[1].TryInteger(); err != nil {
		return fmt.Errorf("field Stake: %w", err)
	}
	if res.Reported, err = arr[2].TryBool(); err != nil {
		return fmt.Errorf("field Reported: %w", err)
	}
	if res.VotedFailure, err = arr[3].TryBool(); err != nil {
		return fmt.Errorf("field VotedFailure: %w", err)
	}
	if res.Claimed, err = arr[4].TryBool(); err != nil {
		return fmt.Errorf("field Claimed: %w", err)
	}

	return nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}

// ChallengeAddedEvent represents "ChallengeAdded" event emitted by the
// contract.
type ChallengeAddedEvent struct {
	ID        []byte
	Committer util.Uint160
	Deadline  *big.Int
	Stake     *big.Int
}

// SupportChallengeEvent represents "SupportChallenge" event emitted by the
// contract.
type SupportChallengeEvent struct {
	ID        []byte
	Supporter util.Uint160
	Amount    *big.Int
}

// ReportedEvent represents "Reported" event emitted by the contract.
type ReportedEvent struct {
	ID       []byte
	Reporter util.Uint160
	Success  bool
}

// RewardsCollectedEvent represents "RewardsCollected" event emitted by the
// contract.
type RewardsCollectedEvent struct {
	ID      []byte
	Account util.Uint160
	Amount  *big.Int
	Tokens  *big.Int
}

// ChallengeFeesCollectedEvent represents "ChallengeFeesCollected" event
// emitted by the contract.
type ChallengeFeesCollectedEvent struct {
	ID          []byte
	Amount      *big.Int
	TokenAmount *big.Int
}

// FeesCollectedEvent represents "FeesCollected" event emitted by the
// contract.
type FeesCollectedEvent struct {
	Admin  util.Uint160
	Amount *big.Int
	Burned *big.Int
}

// ChallengeAddedEventsFromApplicationLog retrieves a set of all emitted
// events with "ChallengeAdded" name from the provided [result.ApplicationLog].
func ChallengeAddedEventsFromApplicationLog(log *result.ApplicationLog) ([]*ChallengeAddedEvent, error) {
	return eventsFromApplicationLog[ChallengeAddedEvent](log, "ChallengeAdded")
}

// SupportChallengeEventsFromApplicationLog retrieves a set of all emitted
// events with "SupportChallenge" name from the provided [result.ApplicationLog].
func SupportChallengeEventsFromApplicationLog(log *result.ApplicationLog) ([]*SupportChallengeEvent, error) {
	return eventsFromApplicationLog[SupportChallengeEvent](log, "SupportChallenge")
}

// ReportedEventsFromApplicationLog retrieves a set of all emitted events
// with "Reported" name from the provided [result.ApplicationLog].
func ReportedEventsFromApplicationLog(log *result.ApplicationLog) ([]*ReportedEvent, error) {
	return eventsFromApplicationLog[ReportedEvent](log, "Reported")
}

// RewardsCollectedEventsFromApplicationLog retrieves a set of all emitted
// events with "RewardsCollected" name from the provided [result.ApplicationLog].
func RewardsCollectedEventsFromApplicationLog(log *result.ApplicationLog) ([]*RewardsCollectedEvent, error) {
	return eventsFromApplicationLog[RewardsCollectedEvent](log, "RewardsCollected")
}

// ChallengeFeesCollectedEventsFromApplicationLog retrieves a set of all
// emitted events with "ChallengeFeesCollected" name from the provided
// [result.ApplicationLog].
func ChallengeFeesCollectedEventsFromApplicationLog(log *result.ApplicationLog) ([]*ChallengeFeesCollectedEvent, error) {
	return eventsFromApplicationLog[ChallengeFeesCollectedEvent](log, "ChallengeFeesCollected")
}

// FeesCollectedEventsFromApplicationLog retrieves a set of all emitted
// events with "FeesCollected" name from the provided [result.ApplicationLog].
func FeesCollectedEventsFromApplicationLog(log *result.ApplicationLog) ([]*FeesCollectedEvent, error) {
	return eventsFromApplicationLog[FeesCollectedEvent](log, "FeesCollected")
}

func eventsFromApplicationLog[E any, P interface {
	*E
	FromStackItem(*stackitem.Array) error
}](log *result.ApplicationLog, name string) ([]*E, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*E
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != name {
				continue
			}
			event := P(new(E))
			if err := event.FromStackItem(e.Item); err != nil {
				return nil, fmt.Errorf("failed to deserialize %s from stackitem (execution #%d, event #%d): %w", name, i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to ChallengeAddedEvent
// or returns an error if it's not possible to do to so.
func (e *ChallengeAddedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventElements(item, 4)
	if err != nil {
		return err
	}

	if e.ID, err = arr[0].TryBytes(); err != nil {
		return fmt.Errorf("field ID: %w", err)
	}
	if e.Committer, err = itemToUint160(arr[1]); err != nil {
		return fmt.Errorf("field Committer: %w", err)
	}
	if e.Deadline, err = arr[2].TryInteger(); err != nil {
		return fmt.Errorf("field Deadline: %w", err)
	}
	if e.Stake, err = arr[3].TryInteger(); err != nil {
		return fmt.Errorf("field Stake: %w", err)
	}

	return nil
}

// FromStackItem converts provided [stackitem.Array] to SupportChallengeEvent
// or returns an error if it's not possible to do to so.
func (e *SupportChallengeEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventElements(item, 3)
	if err != nil {
		return err
	}

	if e.ID, err = arr[0].TryBytes(); err != nil {
		return fmt.Errorf("field ID: %w", err)
	}
	if e.Supporter, err = itemToUint160(arr[1]); err != nil {
		return fmt.Errorf("field Supporter: %w", err)
	}
	if e.Amount, err = arr[2].TryInteger(); err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

// FromStackItem converts provided [stackitem.Array] to ReportedEvent or
// returns an error if it's not possible to do to so.
func (e *ReportedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventElements(item, 3)
	if err != nil {
		return err
	}

	if e.ID, err = arr[0].TryBytes(); err != nil {
		return fmt.Errorf("field ID: %w", err)
	}
	if e.Reporter, err = itemToUint160(arr[1]); err != nil {
		return fmt.Errorf("field Reporter: %w", err)
	}
	if e.Success, err = arr[2].TryBool(); err != nil {
		return fmt.Errorf("field Success: %w", err)
	}

	return nil
}

// FromStackItem converts provided [stackitem.Array] to RewardsCollectedEvent
// or returns an error if it's not possible to do to so.
func (e *RewardsCollectedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventElements(item, 4)
	if err != nil {
		return err
	}

	if e.ID, err = arr[0].TryBytes(); err != nil {
		return fmt.Errorf("field ID: %w", err)
	}
	if e.Account, err = itemToUint160(arr[1]); err != nil {
		return fmt.Errorf("field Account: %w", err)
	}
	if e.Amount, err = arr[2].TryInteger(); err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}
	if e.Tokens, err = arr[3].TryInteger(); err != nil {
		return fmt.Errorf("field Tokens: %w", err)
	}

	return nil
}

// FromStackItem converts provided [stackitem.Array] to
// ChallengeFeesCollectedEvent or returns an error if it's not possible to
// do to so.
func (e *ChallengeFeesCollectedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventElements(item, 3)
	if err != nil {
		return err
	}

	if e.ID, err = arr[0].TryBytes(); err != nil {
		return fmt.Errorf("field ID: %w", err)
	}
	if e.Amount, err = arr[1].TryInteger(); err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}
	if e.TokenAmount, err = arr[2].TryInteger(); err != nil {
		return fmt.Errorf("field TokenAmount: %w", err)
	}

	return nil
}

// FromStackItem converts provided [stackitem.Array] to FeesCollectedEvent
// or returns an error if it's not possible to do to so.
func (e *FeesCollectedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventElements(item, 3)
	if err != nil {
		return err
	}

	if e.Admin, err = itemToUint160(arr[0]); err != nil {
		return fmt.Errorf("field Admin: %w", err)
	}
	if e.Amount, err = arr[1].TryInteger(); err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}
	if e.Burned, err = arr[2].TryInteger(); err != nil {
		return fmt.Errorf("field Burned: %w", err)
	}

	return nil
}

func eventElements(item *stackitem.Array, expected int) ([]stackitem.Item, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != expected {
		return nil, errors.New("wrong number of structure elements")
	}
	return arr, nil
}
