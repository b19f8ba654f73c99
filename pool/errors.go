package pool

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrWorkerFailure is rejected to a submission's completion handle when the
// worker it was assigned to exits while the task is still in flight.
var ErrWorkerFailure = status.Error(codes.Aborted, "pool: worker failed while executing task")

// ErrShutdown is rejected to every handle still pending when Terminate is
// called.
var ErrShutdown = status.Error(codes.Unavailable, "pool: task cancelled by pool shutdown")

func isWorkerFailure(err error) bool {
	return status.Code(err) == codes.Aborted
}
