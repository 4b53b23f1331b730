package host

import (
	"github.com/wippyai/canvas-host/abi"
	"github.com/wippyai/canvas-host/errors"
)

// ErrorCode maps a host error onto the guest's error-code enum.
func ErrorCode(err error) abi.ErrorCode {
	switch errors.KindOf(err) {
	case errors.KindNoSuchHandle, errors.KindStaleHandle:
		return abi.ErrorNoSuchHandle
	case errors.KindUnconfigured:
		return abi.ErrorUnconfigured
	case errors.KindSurfaceLost:
		return abi.ErrorSurfaceLost
	case errors.KindSurfaceTimeout:
		return abi.ErrorSurfaceTimeout
	case errors.KindSurfaceOutdated:
		return abi.ErrorSurfaceOutdated
	case errors.KindSubscriptionLag:
		return abi.ErrorSubscriptionLag
	case errors.KindCanceled, errors.KindClosed:
		return abi.ErrorCanceled
	case errors.KindInvalidInput:
		return abi.ErrorInvalidInput
	default:
		return abi.ErrorInternal
	}
}
