package nbt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/nbt-go/pkg/util/merr"
)

func TestCompoundKeepsInsertionOrder(t *testing.T) {
	c := NewCompound()
	assert.False(t, c.Set("b", Int(1)))
	assert.False(t, c.Set("a", Int(2)))
	assert.True(t, c.Set("b", Int(3)))

	assert.Equal(t, []string{"b", "a"}, c.Keys())
	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, Int(3), v)

	assert.True(t, c.Delete("b"))
	assert.False(t, c.Delete("b"))
	assert.Equal(t, []string{"a"}, c.Keys())
	assert.False(t, c.Has("b"))
	assert.Equal(t, 1, c.Len())
}

func TestCompoundZeroValue(t *testing.T) {
	var c Compound
	assert.False(t, c.Set("a", Int(1)))
	assert.True(t, c.Set("a", Int(2)))
	assert.Equal(t, []string{"a"}, c.Keys())

	doc := &Document{Root: &Compound{}}
	doc.Root.Set("b", String("x"))
	data, err := doc.MarshalBinary()
	require.NoError(t, err)
	got, err := ReadDocument(data)
	require.NoError(t, err)
	assert.True(t, doc.Equal(got))
}

func TestCompoundTypedGet(t *testing.T) {
	c := CompoundOf(Entry("DataVersion", Int(3465)), Entry("name", String("x")))

	n, ok := Get[Int](c, "DataVersion")
	assert.True(t, ok)
	assert.Equal(t, Int(3465), n)

	_, ok = Get[Long](c, "DataVersion")
	assert.False(t, ok)
	_, ok = Get[String](c, "missing")
	assert.False(t, ok)

	var nilCompound *Compound
	assert.Equal(t, 0, nilCompound.Len())
	_, ok = nilCompound.Get("a")
	assert.False(t, ok)
}

func TestCompoundRangeStops(t *testing.T) {
	c := CompoundOf(Entry("a", Byte(1)), Entry("b", Byte(2)), Entry("c", Byte(3)))
	var seen []string
	c.Range(func(key string, _ Value) bool {
		seen = append(seen, key)
		return key != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestListIsHomogeneous(t *testing.T) {
	l, err := NewList(Int(1), Int(2))
	require.NoError(t, err)
	assert.Equal(t, KindInt, l.ElemKind())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, Int(2), l.At(1))

	err = l.Append(String("x"))
	assert.ErrorIs(t, err, merr.ErrUnrepresentableValue)
	assert.ErrorContains(t, err, "[2]")
	assert.Equal(t, 2, l.Len())

	_, err = NewList(Byte(1), Short(1))
	assert.ErrorIs(t, err, merr.ErrUnrepresentableValue)

	assert.ErrorIs(t, l.Append(nil), merr.ErrUnrepresentableValue)
	assert.Panics(t, func() { MustList(Byte(1), Long(1)) })
}

func TestEmptyListKind(t *testing.T) {
	l := MustList()
	assert.Equal(t, KindEnd, l.ElemKind())
	require.NoError(t, l.Append(Double(1)))
	assert.Equal(t, KindDouble, l.ElemKind())

	typed := EmptyList(KindString)
	assert.Equal(t, KindString, typed.ElemKind())
	assert.ErrorIs(t, typed.Append(Int(1)), merr.ErrUnrepresentableValue)
}

func TestEqual(t *testing.T) {
	a := CompoundOf(Entry("x", Int(1)), Entry("y", MustList(String("a"), String("b"))))
	b := CompoundOf(Entry("y", MustList(String("a"), String("b"))), Entry("x", Int(1)))
	assert.True(t, Equal(a, b), "compound equality ignores order")

	c := CompoundOf(Entry("x", Int(1)), Entry("y", MustList(String("b"), String("a"))))
	assert.False(t, Equal(a, c), "list equality respects order")

	assert.False(t, Equal(Int(1), Long(1)))
	assert.True(t, Equal(IntArray{1, 2}, IntArray{1, 2}))
	assert.False(t, Equal(IntArray{1, 2}, IntArray{1}))

	nan := Double(math.NaN())
	assert.True(t, Equal(nan, nan))
	assert.False(t, Equal(Float(0), Float(float32(math.Copysign(0, -1)))))

	assert.True(t, Equal(MustList(), EmptyList(KindInt)))
}

func TestCloneIsDeep(t *testing.T) {
	inner := CompoundOf(Entry("arr", IntArray{1, 2, 3}))
	orig := CompoundOf(Entry("inner", inner), Entry("list", MustList(Byte(1))))

	cp := Clone(orig).(*Compound)
	require.True(t, Equal(orig, cp))

	inner.Set("extra", Byte(1))
	arr, _ := Get[IntArray](inner, "arr")
	arr[0] = 42

	assert.False(t, Equal(orig, cp))
	cpInner, _ := Get[*Compound](cp, "inner")
	cpArr, _ := Get[IntArray](cpInner, "arr")
	assert.Equal(t, IntArray{1, 2, 3}, cpArr)
	assert.False(t, cpInner.Has("extra"))
}

func TestDocumentEqual(t *testing.T) {
	a := NewDocument("root", CompoundOf(Entry("a", Byte(1))))
	b := NewDocument("root", CompoundOf(Entry("a", Byte(1))))
	assert.True(t, a.Equal(b))
	b.Name = "other"
	assert.False(t, a.Equal(b))
	assert.Equal(t, 0, NewDocument("", nil).Root.Len())
}

func TestBool(t *testing.T) {
	assert.Equal(t, Byte(1), Bool(true))
	assert.Equal(t, Byte(0), Bool(false))
}

func TestFieldPathString(t *testing.T) {
	p := fieldPath{keySeg("a"), keySeg("b"), indexSeg(1), keySeg("c")}
	assert.Equal(t, "a.b[1].c", p.String())
	assert.Equal(t, "[0][2]", fieldPath{indexSeg(0), indexSeg(2)}.String())
	assert.Equal(t, "", fieldPath(nil).String())
}
