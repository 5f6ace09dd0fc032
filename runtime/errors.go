package runtime

import "fmt"

// Every error in this taxonomy is fatal to the run: nothing is caught and
// retried, and a later unit never executes once an earlier one has failed.

// ConfigError reports an invalid or inconsistent unit configuration, such as
// a flow entry with no matching action or a pagination bound that does not
// resolve to a number.
type ConfigError struct {
	Unit   string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in unit %q: %s", e.Unit, e.Detail)
}

// SecretNotFoundError reports a !secret path with no value in the secret
// store. It aborts loading the whole unit, before any request is built.
type SecretNotFoundError struct {
	Path string
}

func (e *SecretNotFoundError) Error() string {
	return fmt.Sprintf("secret not found: %s", e.Path)
}

// ExpressionError reports a malformed !jq query, a query that failed during
// evaluation, or a query result that cannot fill the field it was written in.
type ExpressionError struct {
	Query string
	Err   error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression error in %q: %v", e.Query, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// HTTPStatusError reports a non-success response status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("request to %s failed: %s", e.URL, e.Status)
}
