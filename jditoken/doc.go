/*
JDIToken contract is the reward token of the JustDoIt commitment service.

It is a NEP-17 compatible fungible token with a single authorized minter:
the JustDoIt contract. The minter is assigned once after both contracts
are deployed and cannot be reassigned. JDI is minted by the settlement
logic of the JustDoIt contract as a reward for supporters that predicted
a challenge outcome correctly, and burned during the administrative fee
sweep, which is the only burn path in the system.

Contract notifications

Transfer notification. This is NEP-17 standard notification.

  Transfer:
    - name: from
      type: Hash160
    - name: to
      type: Hash160
    - name: amount
      type: Integer

Mint notification. This notification is produced when the JustDoIt
contract mints reward tokens during settlement.

  Mint:
    - name: to
      type: Hash160
    - name: amount
      type: Integer

Burn notification. This notification is produced when a fraction of the
contract-held token fees is destroyed during the fee sweep.

  Burn:
    - name: from
      type: Hash160
    - name: amount
      type: Integer
*/
package jditoken
