// Deploy tool puts the JustDoIt contracts on the chain and wires them
// together: it deploys the JDI token, deploys the JustDoIt contract with
// the administrative account and the token hash, then assigns the
// JustDoIt contract as the only token minter.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"golang.org/x/term"
)

// passwordEnv overrides the interactive password prompt.
const passwordEnv = "JUSTDOIT_DEPLOY_PASSWORD"

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	walletPath := flag.String("wallet", "", "Path to the deployer NEP-6 wallet")
	adminAddress := flag.String("admin", "", "Script hash of the administrative (fee) account, LE hex")
	tokenDir := flag.String("token", "jditoken", "Directory with compiled jditoken contract (contract.nef, manifest.json)")
	justDoItDir := flag.String("justdoit", "justdoit", "Directory with compiled justdoit contract (contract.nef, manifest.json)")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *walletPath == "":
		log.Fatal("missing deployer wallet")
	case *adminAddress == "":
		log.Fatal("missing administrative account")
	}

	admin, err := util.Uint160DecodeStringLE(*adminAddress)
	if err != nil {
		log.Fatal(fmt.Errorf("invalid administrative account: %w", err))
	}

	password, err := readPassword()
	if err != nil {
		log.Fatal(err)
	}

	err = deploy(*neoRPCEndpoint, *walletPath, password, admin, *tokenDir, *justDoItDir)
	if err != nil {
		log.Fatal(err)
	}
}

// readPassword takes the deployer account password from the environment or
// prompts for it on the terminal. The password never appears in the process
// argument list.
func readPassword() (string, error) {
	if pass, ok := os.LookupEnv(passwordEnv); ok {
		return pass, nil
	}

	fmt.Fprint(os.Stderr, "Password for the deployer account: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(raw), nil
}

func deploy(endpoint, walletPath, password string, admin util.Uint160, tokenDir, justDoItDir string) error {
	c, err := rpcclient.New(context.Background(), endpoint, rpcclient.Options{
		DialTimeout:    15 * time.Second,
		RequestTimeout: 15 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init Neo RPC client: %w", err)
	}

	defer c.Close()

	w, err := wallet.NewWalletFromFile(walletPath)
	if err != nil {
		return fmt.Errorf("open deployer wallet: %w", err)
	}

	acc := w.GetAccount(w.GetChangeAddress())
	if acc == nil {
		return fmt.Errorf("deployer wallet has no usable account")
	}

	err = acc.Decrypt(password, keys.NEP2ScryptParams())
	if err != nil {
		return fmt.Errorf("decrypt deployer account: %w", err)
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		return fmt.Errorf("init transaction sender: %w", err)
	}

	mgmt := management.New(act)
	sender := acc.Contract.ScriptHash()

	tokenNEF, tokenManifest, err := readContract(tokenDir)
	if err != nil {
		return fmt.Errorf("read jditoken contract: %w", err)
	}

	tokenHash := state.CreateContractHash(sender, tokenNEF.Checksum, tokenManifest.Name)

	err = sendAndWait(act)(mgmt.Deploy(tokenNEF, tokenManifest, nil))
	if err != nil {
		return fmt.Errorf("deploy jditoken contract: %w", err)
	}

	log.Printf("jditoken contract deployed at %s\n", tokenHash.StringLE())

	justDoItNEF, justDoItManifest, err := readContract(justDoItDir)
	if err != nil {
		return fmt.Errorf("read justdoit contract: %w", err)
	}

	justDoItHash := state.CreateContractHash(sender, justDoItNEF.Checksum, justDoItManifest.Name)

	err = sendAndWait(act)(mgmt.Deploy(justDoItNEF, justDoItManifest, []any{admin, tokenHash}))
	if err != nil {
		return fmt.Errorf("deploy justdoit contract: %w", err)
	}

	log.Printf("justdoit contract deployed at %s\n", justDoItHash.StringLE())

	err = sendAndWait(act)(act.SendCall(tokenHash, "setMinter", justDoItHash))
	if err != nil {
		return fmt.Errorf("set justdoit contract as the token minter: %w", err)
	}

	log.Println("contracts are successfully deployed and wired")

	return nil
}

// readContract reads a compiled contract (NEF and manifest) from dir.
func readContract(dir string) (*nef.File, *manifest.Manifest, error) {
	rawNEF, err := os.ReadFile(dir + "/contract.nef")
	if err != nil {
		return nil, nil, fmt.Errorf("read NEF: %w", err)
	}

	ne, err := nef.FileFromBytes(rawNEF)
	if err != nil {
		return nil, nil, fmt.Errorf("parse NEF: %w", err)
	}

	rawManifest, err := os.ReadFile(dir + "/manifest.json")
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}

	m := new(manifest.Manifest)
	err = json.Unmarshal(rawManifest, m)
	if err != nil {
		return nil, nil, fmt.Errorf("parse manifest: %w", err)
	}

	return &ne, m, nil
}

// sendAndWait adapts a (hash, vub, error) transaction sending result into
// a single error of the whole apply-and-wait step.
func sendAndWait(act *actor.Actor) func(util.Uint256, uint32, error) error {
	return func(txHash util.Uint256, vub uint32, err error) error {
		if err != nil {
			return err
		}

		res, err := act.Wait(txHash, vub, nil)
		if err != nil {
			return fmt.Errorf("wait for transaction %s: %w", txHash.StringLE(), err)
		}

		if res.VMState.HasFlag(vmstate.Halt) {
			return nil
		}

		return fmt.Errorf("transaction %s failed: %s", txHash.StringLE(), res.FaultException)
	}
}
