package state

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidState                 = errors.New("invalid state")
	ErrSlotNotAvailable             = errors.New("slot not available")
	ErrRequestNotReady              = errors.New("request not ready")
	ErrNothingToSettle              = errors.New("nothing to settle")
	ErrInsufficientStake            = errors.New("insufficient stake")
	ErrInsufficientChallengeDeposit = errors.New("insufficient challenge deposit")
	ErrNotGovernor                  = errors.New("you need to be the governor")

	ErrSettingsNoexists      = errors.New("settings noexists")
	ErrListNoexists          = errors.New("list noexists")
	ErrSettingsMismatch      = errors.New("settings do not match list")
	ErrStakeNotRepresentable = errors.New("stake not representable in stake units")
	ErrNotArbitrator         = errors.New("caller is not the arbitrator")
	ErrNoArbitrator          = errors.New("no arbitrator bound")
	ErrNotAppealable         = errors.New("dispute not appealable")
	ErrInvalidRuling         = errors.New("invalid ruling")
	ErrInvalidSide           = errors.New("invalid side")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrAmountOverflow        = errors.New("amount overflow")
	ErrNothingToWithdraw     = errors.New("nothing to withdraw")
	ErrInvalidPeriod         = errors.New("invalid period")

	ErrTxNonceInvalid       = errors.New("nonce invalid")
	ErrStateHeightUnmatched = errors.New("state height unmatched")
	ErrAccountAlreadyExists = errors.New("account already exists")
)
