package types

import "errors"

// Failure taxonomy shared by the resolver, the approval gate and the
// submission pipeline. Wrap with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	ErrInputInvalid     = errors.New("input invalid")
	ErrPairInvalid      = errors.New("pair invalid")
	ErrApprovalNotReady = errors.New("approval not ready")
	ErrEstimationFailed = errors.New("gas estimation failed")
	ErrUserRejected     = errors.New("user rejected the request")
	ErrExecutionFailed  = errors.New("execution failed")
)
