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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
// 非 nbtError 的错误统一归为 errUnexpected。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case nbtError:
		return specificErr.code()

	default:
		return errUnexpected.code()
	}
}

// IsRetryableErr 判断错误是否可以重试。
// 格式类错误都不是瞬时错误，重试同样的输入只会得到同样的结果。
func IsRetryableErr(err error) bool {
	if err, ok := errors.Cause(err).(nbtError); ok {
		return err.retriable
	}

	return false
}

// GetErrorType 返回错误的分类，未知错误视为系统错误。
func GetErrorType(err error) ErrorType {
	if nbtErr, ok := errors.Cause(err).(nbtError); ok {
		return nbtErr.errType
	}
	return SystemError
}

// Wire format related
func WrapErrUnexpectedEOF(offset int, need, remaining int, msg ...string) error {
	err := wrapFields(ErrUnexpectedEOF,
		value("offset", offset),
		value("need", need),
		value("remaining", remaining),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnknownTagID(offset int, id byte) error {
	return wrapFields(ErrUnknownTagID, value("offset", offset), value("id", fmt.Sprintf("0x%02X", id)))
}

// WrapErrUnknownTagIDValue 用于没有字节偏移可报告的场景。
func WrapErrUnknownTagIDValue(id byte) error {
	return wrapFields(ErrUnknownTagID, value("id", fmt.Sprintf("0x%02X", id)))
}

func WrapErrInvalidLength(offset int, length int64, msg ...string) error {
	err := wrapFields(ErrInvalidLength, value("offset", offset), value("length", length))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidStringEncoding(offset int, reason string) error {
	return wrapFieldsWithDesc(ErrInvalidStringEncoding, reason, value("offset", offset))
}

func WrapErrTrailingData(offset int, remaining int) error {
	return wrapFields(ErrTrailingData, value("offset", offset), value("remaining", remaining))
}

// Data model related
func WrapErrTypeMismatch[T any](path string, expected, actual T, msg ...string) error {
	err := wrapFields(ErrTypeMismatch,
		value("path", pathOrRoot(path)),
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrUnrepresentableValue(path string, reason string) error {
	return wrapFieldsWithDesc(ErrUnrepresentableValue, reason, value("path", pathOrRoot(path)))
}

// WrapErrUnrepresentableReason 用于尚不知道所在路径的底层写入，调用方负责补充路径。
func WrapErrUnrepresentableReason(reason string) error {
	return wrapFieldsWithDesc(ErrUnrepresentableValue, reason)
}

func WrapErrNestingTooDeep(path string, limit int) error {
	return wrapFields(ErrNestingTooDeep, value("path", pathOrRoot(path)), value("limit", limit))
}

func WrapErrNestingTooDeepAt(offset int, limit int) error {
	return wrapFields(ErrNestingTooDeep, value("offset", offset), value("limit", limit))
}

func WrapErrDuplicateKey(path string, key string) error {
	return wrapFields(ErrDuplicateKey, value("path", pathOrRoot(path)), value("key", key))
}

func WrapErrDuplicateKeyAt(offset int, key string) error {
	return wrapFields(ErrDuplicateKey, value("offset", offset), value("key", key))
}

func WrapErrInvalidArgument(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrInvalidArgument, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// IO related
func WrapErrIoFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrIoFailed, err.Error(), value("op", op))
}

func WrapErrCompression(algorithm string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrCompression, err.Error(), value("algorithm", algorithm))
}

// Runtime related
func WrapErrServiceUnavailable(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrServiceUnavailable, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTaskPanicked(recovered any) error {
	return wrapFieldsWithDesc(ErrTaskPanicked, fmt.Sprint(recovered))
}

func pathOrRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

func wrapFields(err nbtError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err nbtError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
