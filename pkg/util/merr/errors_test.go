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
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrTypeMismatch("a.b", "Int", "Long")
	err = errors.Wrap(err, "failed to decode field")
	s.ErrorIs(err, ErrTypeMismatch)
	s.Equal(Code(ErrTypeMismatch), Code(err))
	s.Equal(errUnexpected.errCode, Code(io.EOF))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newNBTError("new error", ErrTypeMismatch.errCode, false)
	s.True(sameCodeErr.Is(ErrTypeMismatch))
	s.False(ErrUnexpectedEOF.Is(ErrTypeMismatch))
}

func (s *ErrSuite) TestWrap() {
	// 线格式相关错误。
	s.ErrorIs(WrapErrUnexpectedEOF(3, 4, 1), ErrUnexpectedEOF)
	s.ErrorIs(WrapErrUnexpectedEOF(3, 4, 1, "reading list"), ErrUnexpectedEOF)
	s.ErrorIs(WrapErrUnknownTagID(0, 0x0D), ErrUnknownTagID)
	s.ErrorIs(WrapErrInvalidLength(7, -1, "negative list length"), ErrInvalidLength)
	s.ErrorIs(WrapErrInvalidStringEncoding(2, "truncated sequence"), ErrInvalidStringEncoding)
	s.ErrorIs(WrapErrTrailingData(10, 2), ErrTrailingData)

	// 数据模型相关错误。
	s.ErrorIs(WrapErrTypeMismatch("list[1]", "Short", "Int"), ErrTypeMismatch)
	s.ErrorIs(WrapErrUnrepresentableValue("m", "non-string map key"), ErrUnrepresentableValue)
	s.ErrorIs(WrapErrNestingTooDeep("", 512), ErrNestingTooDeep)
	s.ErrorIs(WrapErrNestingTooDeepAt(9000, 512), ErrNestingTooDeep)
	s.ErrorIs(WrapErrDuplicateKey("a.b", "c"), ErrDuplicateKey)
	s.ErrorIs(WrapErrDuplicateKeyAt(12, "a"), ErrDuplicateKey)
	s.ErrorIs(WrapErrInvalidArgument("nil pointer"), ErrInvalidArgument)

	// IO 相关错误。
	s.ErrorIs(WrapErrIoFailed("write", io.ErrShortWrite), ErrIoFailed)
	s.ErrorIs(WrapErrCompression("gzip", io.ErrUnexpectedEOF), ErrCompression)
	s.Nil(WrapErrIoFailed("write", nil))
	s.Nil(WrapErrCompression("gzip", nil))

	// 运行时相关错误。
	s.ErrorIs(WrapErrServiceUnavailable("pool overload"), ErrServiceUnavailable)
	s.ErrorIs(WrapErrTaskPanicked("boom"), ErrTaskPanicked)
	s.Equal("task panicked: boom", WrapErrTaskPanicked("boom").Error())
}

func (s *ErrSuite) TestMessageCarriesContext() {
	err := WrapErrUnexpectedEOF(5, 4, 2)
	s.Equal("unexpected EOF[offset=5][need=4][remaining=2]", err.Error())

	err = WrapErrTypeMismatch("", "Compound", "Int")
	s.Equal("type mismatch[path=<root>][expected=Compound][actual=Int]", err.Error())

	err = WrapErrUnrepresentableValue("items[2]", "list element kind Short differs from Int")
	s.Equal("value has no NBT representation[path=items[2]]: list element kind Short differs from Int", err.Error())
}

func (s *ErrSuite) TestErrorType() {
	s.Equal(InputError, GetErrorType(WrapErrInvalidLength(0, -5)))
	s.Equal(SystemError, GetErrorType(WrapErrIoFailed("read", io.ErrClosedPipe)))
	s.Equal(SystemError, GetErrorType(io.EOF))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestNotRetryable() {
	s.False(IsRetryableErr(WrapErrUnexpectedEOF(0, 1, 0)))
	s.False(IsRetryableErr(io.EOF))
	s.True(IsRetryableErr(WrapErrServiceUnavailable("pool closed")))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func (s *ErrSuite) TestCombineCode() {
	err := Combine(WrapErrUnknownTagID(0, 0x20), WrapErrInvalidLength(1, -1))
	s.Equal(Code(ErrInvalidLength), Code(err))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
