package domain

import "errors"

// Result is the two-variant outcome returned by every fallible core
// operation: either a success carrying a value or an error carrying a
// message. The zero value is a success holding the zero T.
//
// Go has no generic methods, so the sequencing combinators (Map, FlatMap,
// Then, Match) are package functions taking the Result as first argument.
type Result[T any] struct {
	value T
	err   error
}

// Success wraps v in a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps err in a failed Result. A nil err is replaced with a generic
// validation error so a Failure is never mistaken for a Success.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = Errorf(ErrValidation, "unknown error")
	}
	return Result[T]{err: err}
}

// Fail builds a failed Result whose message is exactly msg and whose error
// matches kind under errors.Is.
func Fail[T any](kind error, msg string) Result[T] {
	return Result[T]{err: &Error{Kind: kind, Message: msg}}
}

// Try converts a conventional (value, error) pair into a Result.
func Try[T any](v T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

// IsSuccess reports whether r holds a value.
func (r Result[T]) IsSuccess() bool { return r.err == nil }

// Value returns the success value, or the zero T for an error Result.
func (r Result[T]) Value() T { return r.value }

// Err returns the error, or nil for a success Result.
func (r Result[T]) Err() error { return r.err }

// Message returns the error message, or "" for a success Result.
func (r Result[T]) Message() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// Unwrap returns the Result in (value, error) form.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// Is reports whether r failed with an error matching target.
func (r Result[T]) Is(target error) bool {
	return r.err != nil && errors.Is(r.err, target)
}

// Map transforms a success value with f. Errors pass through untouched and f
// is never called.
func Map[T, R any](r Result[T], f func(T) R) Result[R] {
	if r.err != nil {
		return Result[R]{err: r.err}
	}
	return Success(f(r.value))
}

// FlatMap chains f, which itself returns a Result, flattening one level.
// Errors short-circuit and f is never called.
func FlatMap[T, R any](r Result[T], f func(T) Result[R]) Result[R] {
	if r.err != nil {
		return Result[R]{err: r.err}
	}
	return f(r.value)
}

// Then is FlatMap.
func Then[T, R any](r Result[T], f func(T) Result[R]) Result[R] {
	return FlatMap(r, f)
}

// Match eliminates the Result into a single value by calling exactly one of
// onSuccess or onError.
func Match[T, R any](r Result[T], onSuccess func(T) R, onError func(error) R) R {
	if r.err != nil {
		return onError(r.err)
	}
	return onSuccess(r.value)
}
