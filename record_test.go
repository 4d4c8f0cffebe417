package binfield

import (
	"math/big"
	"testing"

	"github.com/bearlytools/binfield/errors"
	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	header := headerType(t)
	v := header.MustNew(big.NewInt(0xba))

	r, err := v.Record()
	require.NoError(t, err)
	assert.EqualValues(t, 0xba, r.X.Int64())

	restored, err := header.Restore(r)
	require.NoError(t, err)
	assert.True(t, restored.Equal(v))
	assert.Same(t, header, restored.Type())

	// The record is a copy.
	r.X.SetInt64(0)
	assert.EqualValues(t, 0xba, v.Int64())

	_, err = header.Restore(Record{})
	assert.ErrorIs(t, err, errors.ErrSerialization)
}

func TestRecordRefusesSubView(t *testing.T) {
	header := headerType(t)
	v := header.MustNew(big.NewInt(0xba))

	hi, err := v.Get(Name("hi"))
	require.NoError(t, err)

	_, err = hi.Record()
	assert.ErrorIs(t, err, errors.ErrSerialization)

	_, err = json.Marshal(hi)
	assert.Error(t, err)

	// A copy of a sub-view is a root and can be saved.
	_, err = hi.Copy().Record()
	assert.NoError(t, err)
}

func TestJSON(t *testing.T) {
	header := headerType(t)
	v := header.MustNew(big.NewInt(0xba))

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"x":186}`, string(b))

	got, err := header.UnmarshalValue(b)
	require.NoError(t, err)
	assert.True(t, got.Equal(v))

	// The mask applies on restore.
	got, err = header.UnmarshalValue([]byte(`{"x":511}`))
	require.NoError(t, err)
	assert.EqualValues(t, 0xff, got.Int64())

	big70 := MustNewType("Raw").MustNew(new(big.Int).Lsh(big.NewInt(1), 70))
	b, err = json.Marshal(big70)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1180591620717411303424}`, string(b))

	_, err = header.UnmarshalValue([]byte(`{}`))
	assert.ErrorIs(t, err, errors.ErrSerialization)

	_, err = header.UnmarshalValue([]byte(`{"x":`))
	assert.ErrorIs(t, err, errors.ErrSerialization)
}
