package errors

import (
	"errors"
	"fmt"
)

// ConfigurationError is returned when a strategy definition or rule cannot be
// evaluated as written. It is fatal for that strategy's evaluation only.
type ConfigurationError struct {
	Code       ErrorCode
	StrategyID string
	Message    string
	Cause      error
}

// NewConfigurationError creates a ConfigurationError for the given strategy.
func NewConfigurationError(strategyID, message string, cause error) *ConfigurationError {
	return &ConfigurationError{
		Code:       ErrCodeStrategyConfigError,
		StrategyID: strategyID,
		Message:    message,
		Cause:      cause,
	}
}

// NewConfigurationErrorf creates a ConfigurationError with a formatted message.
func NewConfigurationErrorf(strategyID, format string, args ...any) *ConfigurationError {
	return NewConfigurationError(strategyID, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	prefix := "configuration error"
	if e.StrategyID != "" {
		prefix = fmt.Sprintf("configuration error in strategy %s", e.StrategyID)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// UnknownConditionError reports a rule whose condition name is not registered.
// It unwraps to a ConfigurationError so it is handled the same way.
type UnknownConditionError struct {
	StrategyID string
	RuleType   string
	Condition  string
}

// NewUnknownConditionError creates a new UnknownConditionError.
func NewUnknownConditionError(strategyID, ruleType, condition string) *UnknownConditionError {
	return &UnknownConditionError{
		StrategyID: strategyID,
		RuleType:   ruleType,
		Condition:  condition,
	}
}

// Error implements the error interface.
func (e *UnknownConditionError) Error() string {
	return fmt.Sprintf("unknown condition %q (type %q) in strategy %s", e.Condition, e.RuleType, e.StrategyID)
}

// Unwrap exposes the configuration error category.
func (e *UnknownConditionError) Unwrap() error {
	return &ConfigurationError{
		Code:       ErrCodeUnknownCondition,
		StrategyID: e.StrategyID,
		Message:    fmt.Sprintf("unknown condition %q", e.Condition),
		Cause:      nil,
	}
}

// IsConfigurationError checks if an error is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfg *ConfigurationError

	return errors.As(err, &cfg)
}

// IsUnknownConditionError checks if an error is (or wraps) an UnknownConditionError.
func IsUnknownConditionError(err error) bool {
	var unknown *UnknownConditionError

	return errors.As(err, &unknown)
}

// ComputationError reports a numeric failure that aborts the current trigger.
type ComputationError struct {
	Code    ErrorCode
	Stage   string
	Message string
	Cause   error
}

// NewComputationError creates a new ComputationError for the given stage.
func NewComputationError(stage, message string, cause error) *ComputationError {
	return &ComputationError{
		Code:    ErrCodeComputation,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// NewOverflowError creates a ComputationError for a non-finite intermediate value.
func NewOverflowError(stage string, format string, args ...any) *ComputationError {
	return &ComputationError{
		Code:    ErrCodeNumericOverflow,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("computation error in %s: %s: %v", e.Stage, e.Message, e.Cause)
	}

	return fmt.Sprintf("computation error in %s: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *ComputationError) Unwrap() error {
	return e.Cause
}

// IsComputationError checks if an error is (or wraps) a ComputationError.
func IsComputationError(err error) bool {
	var comp *ComputationError

	return errors.As(err, &comp)
}

// InsufficientDataError represents an error when there is not enough data
// for a calculation (e.g., zero historical trades for a strategy).
type InsufficientDataError struct {
	Required int    // Minimum data points required
	Actual   int    // Actual data points available
	Subject  string // Optional: strategy or symbol context
	Message  string // Human-readable message
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, subject, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Subject:  subject,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, subject, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Subject:  subject,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
// It uses errors.As to check the error chain.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
