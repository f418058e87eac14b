// Package flow provides a robust, composable pipeline framework for creating data processing workflows.
package flow

import (
	"context"
	"errors"
)

// Processor represents a function that transforms input data into output data.
//
// The Processor type encapsulates the core processing logic that each node in a flow
// pipeline executes. It takes an input value of type I and a context for cancellation
// support, and returns an output value of type O or an error.
//
// Processor is the fundamental building block for data transformation in the flow
// framework. By defining processing logic as a first-class type, the framework
// enables flexible composition and reuse of processing functions.
//
// Example:
//
//	// Define a processor that converts strings to uppercase
//	uppercase := Processor[string, string](func(ctx context.Context,input string) (string, error) {
//		return strings.ToUpper(input), nil
//	})
type Processor[I any, O any] func(context.Context, I) (O, error)

// Run invokes the processor. It exists so Batch and Parallel can call
// p.Run(ctx, in) uniformly. A nil processor returns an error instead
// of panicking.
func (p Processor[I, O]) Run(ctx context.Context, input I) (O, error) {
	if p == nil {
		var zero O
		return zero, errors.New("processor cannot be nil")
	}
	return p(ctx, input)
}

// checkContextCancellation returns ctx's error if it has already been
// cancelled or timed out, otherwise nil. Batch and Parallel call this
// before running a processor so a dead context short-circuits instead
// of spending work on a segment nobody will collect.
func (p Processor[I, O]) checkContextCancellation(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// validateProcessor reports whether a processor was actually supplied.
func validateProcessor[I, O any](p Processor[I, O]) error {
	if p == nil {
		return errors.New("processor is required")
	}
	return nil
}

// AsProcessor converts a regular function to a Processor type.
//
// This utility function allows regular functions that match the Processor signature
// to be explicitly converted to the Processor type. This is useful when passing
// functions to methods that expect a Processor parameter.
//
// The conversion is type-safe and preserves the input and output types of the
// original function.
//
// Example:
//
//	// Convert a regular function to a Processor
//	validateData := flow.AsProcessor(func(ctx context.Context, data Record) (ValidatedRecord, error) {
//		// Validation logic
//		return validated, nil
//	})
func AsProcessor[I any, O any](fn func(context.Context, I) (O, error)) Processor[I, O] {
	return fn
}
