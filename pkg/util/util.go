package util

import (
	"context"
	"time"
)

// NewTimeoutContext detaches from the parent's cancellation while keeping its
// values, so background work started by a request survives the response.
func NewTimeoutContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func ConvertList[A any, B any](listA []A, convert func(A) B) []B {
	listB := make([]B, len(listA))
	for i, a := range listA {
		listB[i] = convert(a)
	}
	return listB
}
