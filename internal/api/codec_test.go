package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	b, err := c.Marshal(&AmountRequest{UserID: "u1", Amount: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"u1","amount":7}`, string(b))

	var got AmountRequest
	require.NoError(t, c.Unmarshal(b, &got))
	assert.Equal(t, AmountRequest{UserID: "u1", Amount: 7}, got)
}
