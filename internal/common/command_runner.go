package common

import (
	"context"
	"fmt"

	"atstailor/internal/errors"
)

// Runner bundles the helpers every file-based command needs
type Runner struct {
	Loader *DocumentLoader
	Output *OutputHandler
	Logger *errors.Logger
}

// CreateInputFunc defines how to create the operation input from loaded documents.
type CreateInputFunc[Input any] func(docs []Document) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is a generic function signature for any tailoring operation.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunCommand loads the documents named by args, runs the operation and writes its formatted output.
func RunCommand[Input, Output any](
	ctx context.Context,
	runner *Runner,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	docs, err := runner.Loader.LoadAll(ctx, args...)
	if err != nil {
		return err
	}

	input, err := createInput(docs)
	if err != nil {
		return fmt.Errorf("failed to create input from documents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return runner.Output.HandleOutput(ctx, result, cmdConfig)
}
