/*
JustDoIt contract is the challenge lifecycle and settlement engine of the
JustDoIt commitment service.

A committer stakes GAS behind a personal commitment with a deadline at
least 24 hours away. Until the deadline anyone else can co-stake in favor
of the commitment being kept. For a fixed window after the deadline the
committer and the supporters report the outcome; the committer's
self-report is recorded for audit only, while the supporter votes are
authoritative: the challenge resolves as failed iff a strict majority of
the supporters that reported voted failure.

Once the window elapses the challenge is settled lazily, one claim per
party. A kept challenge returns the committer's stake in full and forfeits
the supporter co-stakes to the platform. A failed challenge forfeits the
committer's stake and splits it proportionally between the supporters that
voted failure, net of the platform fee, together with an equal amount of
freshly minted JDI reward tokens. The administrative account collects the
platform share per challenge and periodically sweeps the accrued fees,
burning a fixed fraction of the contract-held JDI.

Every mutation re-validates the derived challenge phase and the one-shot
claim flags against the stored state, and any failed validation or
transfer faults the whole invocation, so no partial payout is observable.
Challenges are never deleted and stay queryable as an audit record.

Contract notifications

ChallengeAdded notification. Produced when a new challenge is created.

  ChallengeAdded:
    - name: id
      type: ByteArray
    - name: committer
      type: Hash160
    - name: deadline
      type: Integer
    - name: stake
      type: Integer

SupportChallenge notification. Produced when an account co-stakes.

  SupportChallenge:
    - name: id
      type: ByteArray
    - name: supporter
      type: Hash160
    - name: amount
      type: Integer

Reported notification. Produced for both committer and supporter reports.

  Reported:
    - name: id
      type: ByteArray
    - name: reporter
      type: Hash160
    - name: success
      type: Boolean

RewardsCollected notification. Produced when a party settles its claim.

  RewardsCollected:
    - name: id
      type: ByteArray
    - name: account
      type: Hash160
    - name: amount
      type: Integer
    - name: tokens
      type: Integer

ChallengeFeesCollected notification. Produced when the platform share of a
single challenge is settled.

  ChallengeFeesCollected:
    - name: id
      type: ByteArray
    - name: amount
      type: Integer
    - name: tokenAmount
      type: Integer

FeesCollected notification. Produced by the fee sweep.

  FeesCollected:
    - name: admin
      type: Hash160
    - name: amount
      type: Integer
    - name: burned
      type: Integer
*/
package justdoit
