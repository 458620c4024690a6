package jditoken

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"

	"github.com/lgmnemesis/justdoit-core/common"
)

// Token holds all token info.
type Token struct {
	// Ticker symbol
	Symbol string
	// Amount of decimals
	Decimals int
	// Storage key for circulation value
	CirculationKey string
}

const (
	symbol      = "JDI"
	decimals    = 8
	circulation = "TokenCirculation"

	minterKey = "tokenMinter"
)

const (
	// ErrMinterSet is returned on an attempt to reassign the minter.
	ErrMinterSet = "minter already set"
	// ErrNotMinter is returned when mint is invoked by anyone but the
	// configured minter contract.
	ErrNotMinter = "not invoked by the minter"
	// ErrInsufficientBalance is returned when burn or transfer exceeds
	// the holder balance.
	ErrInsufficientBalance = "insufficient balance"
)

var token Token

func createToken() Token {
	return Token{
		Symbol:         symbol,
		Decimals:       decimals,
		CirculationKey: circulation,
	}
}

func init() {
	token = createToken()
}

func _deploy(data interface{}, isUpdate bool) {
	if isUpdate {
		args := data.([]interface{})
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	runtime.Log("jditoken contract initialized")
}

// Update method updates contract source code and manifest. Can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data interface{}) {
	if !common.HasUpdateAccess() {
		panic("only committee can update contract")
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("jditoken contract updated")
}

// Symbol is a NEP-17 standard method that returns JDI token symbol.
func Symbol() string {
	return token.Symbol
}

// Decimals is a NEP-17 standard method that returns precision of JDI
// balances.
func Decimals() int {
	return token.Decimals
}

// TotalSupply is a NEP-17 standard method that returns the total amount of
// JDI in circulation.
func TotalSupply() int {
	ctx := storage.GetReadOnlyContext()
	return token.getSupply(ctx)
}

// BalanceOf is a NEP-17 standard method that returns JDI balance of the
// specified account.
func BalanceOf(account interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()
	return token.balanceOf(ctx, account)
}

// Transfer is a NEP-17 standard method that transfers JDI from one account
// to another. Can be invoked only by the account owner.
//
// Produces Transfer notification.
func Transfer(from, to interop.Hash160, amount int, data interface{}) bool {
	ctx := storage.GetContext()
	return token.transfer(ctx, from, to, amount)
}

// Minter returns script hash of the contract authorized to mint JDI or
// nil if it has not been set yet.
func Minter() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	minter := storage.Get(ctx, minterKey)
	if minter == nil {
		return nil
	}

	return minter.(interop.Hash160)
}

// SetMinter assigns the only contract authorized to mint JDI. Can be
// invoked only by committee and only once; the minting authority is not
// reassignable afterwards.
func SetMinter(minter interop.Hash160) {
	if !common.HasUpdateAccess() {
		panic("only committee can set minter")
	}

	if len(minter) != interop.Hash160Len {
		panic("incorrect length of contract script hash")
	}

	ctx := storage.GetContext()
	if storage.Get(ctx, minterKey) != nil {
		panic(ErrMinterSet)
	}

	storage.Put(ctx, minterKey, minter)
	runtime.Log("jditoken minter has been set")
}

// Mint increases the given account balance and the total JDI supply. Can be
// invoked only by the minter contract configured with SetMinter.
//
// Produces Transfer and Mint notifications.
func Mint(to interop.Hash160, amount int) {
	ctx := storage.GetContext()

	minter := storage.Get(ctx, minterKey)
	if minter == nil || !common.BytesEqual(runtime.GetCallingScriptHash(), minter.(interop.Hash160)) {
		panic(ErrNotMinter)
	}

	if amount <= 0 {
		panic("non positive amount")
	}

	balance := token.balanceOf(ctx, to)
	storage.Put(ctx, to, balance+amount)

	supply := token.getSupply(ctx)
	storage.Put(ctx, token.CirculationKey, supply+amount)

	runtime.Notify("Transfer", interop.Hash160(nil), to, amount)
	runtime.Notify("Mint", to, amount)
}

// Burn destroys the given amount of JDI on the holder's own balance,
// decreasing the total supply. Can be invoked by the account owner or by
// the holder contract itself.
//
// Produces Transfer and Burn notifications.
func Burn(from interop.Hash160, amount int) {
	if !isUsableAddress(from) {
		panic(common.ErrOwnerWitnessFailed)
	}

	if amount < 0 {
		panic("negative amount")
	}

	ctx := storage.GetContext()

	balance := token.balanceOf(ctx, from)
	if balance < amount {
		panic(ErrInsufficientBalance)
	}

	if balance == amount {
		storage.Delete(ctx, from)
	} else {
		storage.Put(ctx, from, balance-amount)
	}

	supply := token.getSupply(ctx)
	if supply < amount {
		panic("negative supply after burn")
	}
	storage.Put(ctx, token.CirculationKey, supply-amount)

	runtime.Notify("Transfer", from, interop.Hash160(nil), amount)
	runtime.Notify("Burn", from, amount)
}

// Version returns version of the contract.
func Version() int {
	return common.Version
}

// getSupply gets the token totalSupply value from VM storage.
func (t Token) getSupply(ctx storage.Context) int {
	supply := storage.Get(ctx, t.CirculationKey)
	if supply != nil {
		return supply.(int)
	}

	return 0
}

func (t Token) balanceOf(ctx storage.Context, holder interop.Hash160) int {
	balance := storage.Get(ctx, holder)
	if balance != nil {
		return balance.(int)
	}

	return 0
}

func (t Token) transfer(ctx storage.Context, from, to interop.Hash160, amount int) bool {
	if len(to) != interop.Hash160Len || !isUsableAddress(from) {
		runtime.Log("bad script hashes")
		return false
	}

	if amount < 0 {
		return false
	}

	balance := t.balanceOf(ctx, from)
	if balance < amount {
		runtime.Log("not enough assets")
		return false
	}

	if balance == amount {
		storage.Delete(ctx, from)
	} else {
		storage.Put(ctx, from, balance-amount)
	}

	storage.Put(ctx, to, t.balanceOf(ctx, to)+amount)

	runtime.Notify("Transfer", from, to, amount)

	return true
}

// isUsableAddress checks if the sender is either a signer of the carrier
// transaction or the calling contract itself.
func isUsableAddress(addr interop.Hash160) bool {
	if len(addr) == interop.Hash160Len {
		if runtime.CheckWitness(addr) {
			return true
		}

		callingScriptHash := runtime.GetCallingScriptHash()
		if common.BytesEqual(callingScriptHash, addr) {
			return true
		}
	}

	return false
}
