package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/segmentio/kafka-go"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrConsumerClosed = errors.New("kafka consumer is closed")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// ErrorType decides what the consumer does with a message its handler rejected.
type ErrorType int

const (
	ErrorTypeNone ErrorType = iota
	// ErrorTypeTransient is retried with backoff until the retry budget runs out.
	ErrorTypeTransient
	// ErrorTypePermanent goes straight to the DLQ: the message can never succeed.
	ErrorTypePermanent
	// ErrorTypeBusiness goes straight to the DLQ: the message is well formed but
	// the domain refused it.
	ErrorTypeBusiness
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeBusiness:
		return "business"
	default:
		return "none"
	}
}

// HandlerError is returned by a MessageHandler to steer retries. Details are
// copied onto the DLQ message headers.
type HandlerError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]any
}

func (e *HandlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

func (e *HandlerError) WithDetail(key string, value any) *HandlerError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newHandlerError(t ErrorType, message string, err error) *HandlerError {
	return &HandlerError{Type: t, Message: message, Err: err}
}

func NewTransientError(message string, err error) *HandlerError {
	return newHandlerError(ErrorTypeTransient, message, err)
}

func NewPermanentError(message string, err error) *HandlerError {
	return newHandlerError(ErrorTypePermanent, message, err)
}

func NewBusinessError(message string, err error) *HandlerError {
	return newHandlerError(ErrorTypeBusiness, message, err)
}

// ClassifyError reports how err should be handled. Unclassified errors are
// treated as permanent so a poison message cannot stall its partition.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeNone
	}

	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		return handlerErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return ErrorTypeTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeTransient
	}

	var brokerErr kafka.Error
	if errors.As(err, &brokerErr) && brokerErr.Temporary() {
		return ErrorTypeTransient
	}

	return ErrorTypePermanent
}

// ShouldRetry reports whether a message that failed with err after retries
// attempts gets another one.
func ShouldRetry(err error, retries, maxRetries int) bool {
	return retries < maxRetries && ClassifyError(err) == ErrorTypeTransient
}

// dlqHeaders describes why a message was dead-lettered.
func dlqHeaders(err error) map[string]string {
	headers := map[string]string{
		"dlq-error":      err.Error(),
		"dlq-error-type": ClassifyError(err).String(),
	}

	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		for k, v := range handlerErr.Details {
			headers["dlq-detail-"+k] = fmt.Sprint(v)
		}
	}
	return headers
}
