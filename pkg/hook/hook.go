package hook

import (
	"context"
	"errors"
)

// Hook is notified with a value T.
type Hook[T any] interface {
	Notify(context.Context, T) error
}

var ErrHookFailed = errors.New("hook failed")

// None is a hook that does nothing.
type None[T any] struct{}

func (None[T]) Notify(context.Context, T) error {
	return nil
}

// Func calls Fn on notification. Nil Fn is no-op.
type Func[T any] struct {
	Fn func(context.Context, T) error
}

func (f Func[T]) Notify(ctx context.Context, value T) error {
	if f.Fn == nil {
		return nil
	}
	if err := f.Fn(ctx, value); err != nil {
		return errors.Join(err, ErrHookFailed)
	}
	return nil
}

// Multi notifies each hook in order.
//
// All hooks are notified even if some of them fail. Errors are joined.
type Multi[T any] []Hook[T]

func (m Multi[T]) Notify(ctx context.Context, value T) error {
	errs := []error{}
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := h.Notify(ctx, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
