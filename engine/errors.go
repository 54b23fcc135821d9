package engine

import "errors"

// Rejection reasons carried in Outcome.Rejected. The reducer never panics and
// never returns these as Go errors; a rejected action leaves state untouched.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAction     = errors.New("invalid action payload")
	ErrUnknownLesson     = errors.New("unknown lesson")
	ErrUnknownChallenge  = errors.New("unknown challenge")
	ErrUnknownQuest      = errors.New("unknown quest")
	ErrUnknownReward     = errors.New("unknown reward")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrRewardLocked      = errors.New("reward is locked")
	ErrInvalidPiggyBank  = errors.New("piggy bank ledger is not conserved")
	ErrOverflow          = errors.New("integer overflow")
)

// ErrUnknownAction is returned by DecodeAction for unrecognised action names.
var ErrUnknownAction = errors.New("unknown action type")
