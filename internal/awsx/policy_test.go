package awsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringListRoundTrip(t *testing.T) {
	doc, err := UnmarshalPolicy(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Sid": "grant",
			"Effect": "Allow",
			"Principal": {"AWS": "111122223333"},
			"Action": ["logs:PutSubscriptionFilter"],
			"Resource": "arn:aws:logs:us-east-1:1:destination:d"
		}]
	}`)
	require.NoError(t, err)
	require.Len(t, doc.Statement, 1)

	st := doc.Statement[0]
	assert.Equal(t, StringList{"111122223333"}, st.Principal.AWS)
	assert.Equal(t, StringList{"logs:PutSubscriptionFilter"}, st.Action)
	assert.True(t, st.Resource.Contains("arn:aws:logs:us-east-1:1:destination:d"))

	raw, err := MarshalPolicy(doc)
	require.NoError(t, err)
	// Single-element lists collapse back to the bare-string form.
	assert.Contains(t, raw, `"AWS":"111122223333"`)
	assert.Contains(t, raw, `"Action":"logs:PutSubscriptionFilter"`)
}

func TestStringListMany(t *testing.T) {
	var l StringList
	require.NoError(t, l.UnmarshalJSON([]byte(`["a","b"]`)))
	assert.Equal(t, StringList{"a", "b"}, l)
	assert.True(t, l.Contains("b"))
	assert.False(t, l.Contains("c"))

	out, err := l.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(out))
}

func TestUnmarshalPolicyInvalid(t *testing.T) {
	_, err := UnmarshalPolicy(`{"Statement": [{"Action": 42}]}`)
	require.Error(t, err)
}
