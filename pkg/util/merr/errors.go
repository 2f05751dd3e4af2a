// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Wire format related
	ErrUnexpectedEOF         = newNBTError("unexpected EOF", 100, false, WithErrorType(InputError))
	ErrUnknownTagID          = newNBTError("unknown tag id", 101, false, WithErrorType(InputError))
	ErrInvalidLength         = newNBTError("invalid length", 102, false, WithErrorType(InputError))
	ErrInvalidStringEncoding = newNBTError("invalid modified UTF-8 string", 103, false, WithErrorType(InputError))
	ErrTrailingData          = newNBTError("trailing data after document", 104, false, WithErrorType(InputError))

	// Data model related
	ErrTypeMismatch         = newNBTError("type mismatch", 200, false, WithErrorType(InputError))
	ErrUnrepresentableValue = newNBTError("value has no NBT representation", 201, false, WithErrorType(InputError))
	ErrNestingTooDeep       = newNBTError("nesting too deep", 202, false, WithErrorType(InputError))
	ErrDuplicateKey         = newNBTError("duplicate compound key", 203, false, WithErrorType(InputError))
	ErrInvalidArgument      = newNBTError("invalid argument", 204, false, WithErrorType(InputError))

	// IO related
	ErrIoFailed    = newNBTError("IO failed", 300, false)
	ErrCompression = newNBTError("compression failed", 301, false)

	// Runtime related
	ErrServiceUnavailable = newNBTError("service unavailable", 400, true)
	ErrTaskPanicked       = newNBTError("task panicked", 401, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to nbtError
	errUnexpected = newNBTError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*nbtError)

func WithDetail(detail string) errorOption {
	return func(err *nbtError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *nbtError) {
		err.errType = etype
	}
}

type nbtError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newNBTError(msg string, code int32, retriable bool, options ...errorOption) nbtError {
	err := nbtError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e nbtError) code() int32 {
	return e.errCode
}

func (e nbtError) Error() string {
	return e.msg
}

func (e nbtError) Detail() string {
	return e.detail
}

func (e nbtError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(nbtError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
