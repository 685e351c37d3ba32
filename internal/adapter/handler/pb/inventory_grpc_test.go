package pb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestIntField(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{
		"whole":    7,
		"fraction": 2.5,
		"text":     "7",
		"huge":     1e19,
	})
	require.NoError(t, err)

	n, err := IntField(s, "whole")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	for _, name := range []string{"fraction", "text", "huge"} {
		_, err := IntField(s, name)
		assert.ErrorIs(t, err, errNotInteger, name)
	}

	_, err = IntField(s, "missing")
	assert.EqualError(t, err, "missing is required")
}

func TestStringField(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"product": "widget", "quantity": 1})
	require.NoError(t, err)

	v, err := StringField(s, "product")
	require.NoError(t, err)
	assert.Equal(t, "widget", v)

	v, err = StringField(s, "order_id")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = StringField(s, "quantity")
	assert.EqualError(t, err, "quantity must be a string")
}
