package nbt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

// sample 是一个根名为空、包含 a: Int(42) 与 b: List<Short>[1, 2] 的文档。
var sample = []byte{
	0x0A, 0x00, 0x00,
	0x03, 0x00, 0x01, 'a', 0x00, 0x00, 0x00, 0x2A,
	0x09, 0x00, 0x01, 'b', 0x02, 0x00, 0x00, 0x00, 0x02, 0x00, 0x01, 0x00, 0x02,
	0x00,
}

func sampleRoot() *Compound {
	return CompoundOf(
		Entry("a", Int(42)),
		Entry("b", MustList(Short(1), Short(2))),
	)
}

// nestedLists 返回根 Compound 中嵌套 depth 层 List 的文档。
func nestedLists(depth int) []byte {
	var b bytes.Buffer
	b.Write([]byte{0x0A, 0x00, 0x00, 0x09, 0x00, 0x01, 'x'})
	for i := 0; i < depth; i++ {
		b.Write([]byte{0x09, 0x00, 0x00, 0x00, 0x01})
	}
	b.Write([]byte{0x00, 0x00, 0x00, 0x00, 0x00})
	b.WriteByte(0x00)
	return b.Bytes()
}

// nestedCompounds 返回根 Compound 中嵌套 depth 层 Compound 的文档。
func nestedCompounds(depth int) []byte {
	var b bytes.Buffer
	b.Write([]byte{0x0A, 0x00, 0x00})
	for i := 0; i < depth; i++ {
		b.Write([]byte{0x0A, 0x00, 0x01, 'c'})
	}
	for i := 0; i <= depth; i++ {
		b.WriteByte(0x00)
	}
	return b.Bytes()
}

type DocumentSuite struct {
	suite.Suite
}

func (s *DocumentSuite) TestWriteSample() {
	doc := NewDocument("", sampleRoot())
	data, err := doc.MarshalBinary()
	s.Require().NoError(err)
	s.Equal(sample, data)

	var buf bytes.Buffer
	s.Require().NoError(WriteDocument(&buf, doc))
	s.Equal(sample, buf.Bytes())

	buf.Reset()
	n, err := doc.WriteTo(&buf)
	s.Require().NoError(err)
	s.EqualValues(len(sample), n)
}

func (s *DocumentSuite) TestReadSample() {
	doc, err := ReadDocument(sample)
	s.Require().NoError(err)
	s.Equal("", doc.Name)
	s.True(Equal(sampleRoot(), doc.Root))
	s.Equal([]string{"a", "b"}, doc.Root.Keys())

	var d Document
	s.Require().NoError(d.UnmarshalBinary(sample))
	s.True(doc.Equal(&d))
}

func (s *DocumentSuite) TestRoundTripAllKinds() {
	root := CompoundOf(
		Entry("byte", Byte(-1)),
		Entry("short", Short(-300)),
		Entry("int", Int(1<<30)),
		Entry("long", Long(-1<<40)),
		Entry("float", Float(1.5)),
		Entry("double", Double(-2.25)),
		Entry("bytes", ByteArray{-128, 0, 127}),
		Entry("string", String("aé日😀\x00")),
		Entry("list", MustList(CompoundOf(Entry("k", String("v"))), NewCompound())),
		Entry("empty", EmptyList(KindLong)),
		Entry("compound", CompoundOf(Entry("inner", LongArray{1, -1}))),
		Entry("ints", IntArray{}),
		Entry("longs", LongArray{1 << 62}),
	)
	doc := NewDocument("The root name‽", root)
	data, err := doc.MarshalBinary()
	s.Require().NoError(err)

	back, err := ReadDocument(data)
	s.Require().NoError(err)
	s.True(doc.Equal(back))
	s.Equal(root.Keys(), back.Root.Keys())

	empty, _ := Get[*List](back.Root, "empty")
	s.Equal(KindLong, empty.ElemKind())

	again, err := back.MarshalBinary()
	s.Require().NoError(err)
	s.Equal(data, again)
}

func (s *DocumentSuite) TestTruncationIsUnexpectedEOF() {
	doc := NewDocument("name", CompoundOf(
		Entry("s", String("aé日")),
		Entry("l", MustList(IntArray{1, 2}, IntArray{3})),
		Entry("c", CompoundOf(Entry("d", Double(1)))),
	))
	full, err := doc.MarshalBinary()
	s.Require().NoError(err)

	for _, data := range [][]byte{sample, full} {
		for i := 0; i < len(data); i++ {
			_, err := ReadDocument(data[:i])
			s.ErrorIs(err, merr.ErrUnexpectedEOF, "prefix of %d bytes", i)

			var v any
			s.ErrorIs(Unmarshal(data[:i], &v), merr.ErrUnexpectedEOF, "prefix of %d bytes", i)
		}
	}
}

func (s *DocumentSuite) TestDeepNestingFails() {
	data := nestedLists(10000)

	_, err := ReadDocument(data)
	s.ErrorIs(err, merr.ErrNestingTooDeep)

	var v any
	s.ErrorIs(Unmarshal(data, &v), merr.ErrNestingTooDeep)

	var skipped struct{}
	s.ErrorIs(Unmarshal(data, &skipped), merr.ErrNestingTooDeep)

	doc, err := ReadDocument(nestedLists(100))
	s.Require().NoError(err)
	s.Equal(1, doc.Root.Len())

	_, err = ReadDocument(nestedLists(100), WithMaxDepth(50))
	s.ErrorIs(err, merr.ErrNestingTooDeep)
}

func (s *DocumentSuite) TestDeepCompoundNestingFails() {
	data := nestedCompounds(10000)

	_, err := ReadDocument(data)
	s.ErrorIs(err, merr.ErrNestingTooDeep)

	var v any
	s.ErrorIs(Unmarshal(data, &v), merr.ErrNestingTooDeep)

	var skipped struct{}
	s.ErrorIs(Unmarshal(data, &skipped), merr.ErrNestingTooDeep)

	type node struct {
		C *node `nbt:"c"`
	}
	var n node
	s.ErrorIs(Unmarshal(data, &n), merr.ErrNestingTooDeep)

	_, err = ReadDocument(nestedCompounds(DefaultMaxDepth - 1))
	s.NoError(err)
	_, err = ReadDocument(nestedCompounds(DefaultMaxDepth))
	s.ErrorIs(err, merr.ErrNestingTooDeep)
}

func (s *DocumentSuite) TestTrailingData() {
	_, err := ReadDocument(append(append([]byte(nil), sample...), 0xFF))
	s.ErrorIs(err, merr.ErrTrailingData)
}

func (s *DocumentSuite) TestRootMustBeCompound() {
	_, err := ReadDocument([]byte{0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01})
	s.ErrorIs(err, merr.ErrTypeMismatch)
}

func (s *DocumentSuite) TestEmptyDocument() {
	_, err := ReadDocument(nil)
	s.ErrorIs(err, merr.ErrUnexpectedEOF)
	_, err = ReadDocument([]byte{0x00})
	s.ErrorIs(err, merr.ErrTypeMismatch)

	doc, err := ReadDocument(nil, WithAllowEmptyDocument(true))
	s.Require().NoError(err)
	s.Equal(0, doc.Root.Len())
	doc, err = ReadDocument([]byte{0x00}, WithAllowEmptyDocument(true))
	s.Require().NoError(err)
	s.Equal(0, doc.Root.Len())
}

func (s *DocumentSuite) TestUnknownTagID() {
	_, err := ReadDocument([]byte{0x0A, 0x00, 0x00, 0x0D, 0x00, 0x01, 'a', 0x00, 0x00})
	s.ErrorIs(err, merr.ErrUnknownTagID)
	s.ErrorContains(err, "offset=3")

	_, err = ReadDocument([]byte{0x0A, 0x00, 0x00, 0x09, 0x00, 0x01, 'a', 0x0F, 0x00, 0x00, 0x00, 0x00, 0x00})
	s.ErrorIs(err, merr.ErrUnknownTagID)
}

func (s *DocumentSuite) TestInvalidLengths() {
	negative := []byte{0x0A, 0x00, 0x00, 0x07, 0x00, 0x01, 'a', 0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	_, err := ReadDocument(negative)
	s.ErrorIs(err, merr.ErrInvalidLength)

	endList := []byte{0x0A, 0x00, 0x00, 0x09, 0x00, 0x01, 'a', 0x00, 0x00, 0x00, 0x00, 0x01, 0x00}
	_, err = ReadDocument(endList)
	s.ErrorIs(err, merr.ErrInvalidLength)

	huge := []byte{0x0A, 0x00, 0x00, 0x0C, 0x00, 0x01, 'a', 0x7F, 0xFF, 0xFF, 0xFF, 0x00}
	_, err = ReadDocument(huge)
	s.ErrorIs(err, merr.ErrUnexpectedEOF)
}

func (s *DocumentSuite) TestStrings() {
	doc := NewDocument("", CompoundOf(Entry("s", String("a\x00b"))))
	data, err := doc.MarshalBinary()
	s.Require().NoError(err)
	s.Equal([]byte{
		0x0A, 0x00, 0x00,
		0x08, 0x00, 0x01, 's', 0x00, 0x04, 'a', 0xC0, 0x80, 'b',
		0x00,
	}, data)

	bad := []byte{0x0A, 0x00, 0x00, 0x08, 0x00, 0x01, 's', 0x00, 0x01, 0xFF, 0x00}
	_, err = ReadDocument(bad)
	s.ErrorIs(err, merr.ErrInvalidStringEncoding)

	long := NewDocument("", CompoundOf(Entry("s", String(bytes.Repeat([]byte{'x'}, 70000)))))
	_, err = long.MarshalBinary()
	s.ErrorIs(err, merr.ErrUnrepresentableValue)
	s.ErrorContains(err, "s")
}

func (s *DocumentSuite) TestDuplicateKeys() {
	data := []byte{
		0x0A, 0x00, 0x00,
		0x01, 0x00, 0x01, 'a', 0x01,
		0x01, 0x00, 0x01, 'b', 0x02,
		0x01, 0x00, 0x01, 'a', 0x03,
		0x00,
	}
	doc, err := ReadDocument(data)
	s.Require().NoError(err)
	s.Equal([]string{"a", "b"}, doc.Root.Keys())
	a, _ := Get[Byte](doc.Root, "a")
	s.Equal(Byte(3), a)

	_, err = ReadDocument(data, WithStrictDuplicateKeys(true))
	s.ErrorIs(err, merr.ErrDuplicateKey)
	s.ErrorContains(err, "key=a")
}

func (s *DocumentSuite) TestWriteNilDocument() {
	var buf bytes.Buffer
	s.ErrorIs(WriteDocument(&buf, nil), merr.ErrInvalidArgument)
	s.Zero(buf.Len())
}

func (s *DocumentSuite) TestEncodeFailureWritesNothing() {
	doc := NewDocument("", CompoundOf(
		Entry("ok", Int(1)),
		Entry("bad", &List{elem: KindInt, values: []Value{Int(1), String("x")}}),
	))
	var buf bytes.Buffer
	err := WriteDocument(&buf, doc)
	s.ErrorIs(err, merr.ErrUnrepresentableValue)
	s.ErrorContains(err, "bad[1]")
	s.Zero(buf.Len())
}

func TestDocument(t *testing.T) {
	suite.Run(t, new(DocumentSuite))
}
