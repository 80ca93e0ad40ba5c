/*
Package errors provides semantic error types for the genericrepo library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound            = errors.New("item not found")
	    ErrInvalidInput        = errors.New("invalid input")
	    ErrConditionFailed     = errors.New("condition check failed")
	    ErrUnsupportedOperator = errors.New("unsupported operator")
	)

Usage:

	// Check error type
	item, err := repo.LoadOrFail(ctx, "123")
	if err != nil {
	    if errors.IsNotFound(err) {
	        // Handle not found case
	        return nil, fmt.Errorf("order %s does not exist", "123")
	    }
	    return nil, err
	}

	// Create typed errors
	err := errors.NewNotFoundError("orders", "id=123")
	err := errors.NewValidationError("between", "requires a list of two values")
	err := errors.NewUnsupportedOperatorError("regex")

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.

Note that a rejected conditional update is not surfaced through this package
at all: the repository returns it as a structured UpdateResult value, since a
failed condition is an expected outcome of concurrent writes rather than an
error.
*/
package errors
