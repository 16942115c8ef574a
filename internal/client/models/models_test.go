package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDescriptor_RoundTrip(t *testing.T) {
	d := FileDescriptor{StorageKey: "rooms/r1/k", Name: "a.txt", IV: []byte{1, 2, 3}, Size: 10}

	data, err := d.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalFileDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, d, *got)
}

func TestUnmarshalFileDescriptor_Rejects(t *testing.T) {
	_, err := UnmarshalFileDescriptor([]byte("hello"))
	assert.Error(t, err)

	_, err = UnmarshalFileDescriptor([]byte(`{"name":"x"}`))
	assert.Error(t, err)
}
