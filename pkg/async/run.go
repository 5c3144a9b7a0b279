package async

import "context"

// Run calls fn on its own goroutine and hands the outcome to exactly one of
// onSuccess or onFailure, exactly once.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error), onSuccess func(T), onFailure func(error)) {
	go func() {
		result, err := fn(ctx)
		if err != nil {
			onFailure(err)
			return
		}

		onSuccess(result)
	}()
}
