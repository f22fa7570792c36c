package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelWithEffort(t *testing.T) {
	stem, effort := ParseModelWithEffort("x-high")
	require.NotNil(t, effort)
	assert.Equal(t, "x", stem)
	assert.Equal(t, "high", *effort)

	stem, effort = ParseModelWithEffort("x-turbo")
	assert.Nil(t, effort)
	assert.Equal(t, "x-turbo", stem)

	for _, level := range []string{"minimal", "low", "medium", "high"} {
		stem, effort := ParseModelWithEffort("gpt-4o-" + level)
		require.NotNil(t, effort)
		assert.Equal(t, level, *effort)
		assert.Equal(t, "gpt-4o", stem)
	}
}

func TestCleanSchemaStripsURIFormatAtAnyDepth(t *testing.T) {
	in := json.RawMessage(`{
		"type": "object",
		"properties": {
			"homepage": {"type": "string", "format": "uri"},
			"nested": {
				"type": "object",
				"properties": {
					"avatar": {"type": "string", "format": "uri"},
					"count": {"type": "integer", "format": "int32"}
				}
			},
			"tags": {"type": "array", "items": {"type": "string", "format": "uri"}}
		}
	}`)

	out, err := CleanSchema(in)
	require.NoError(t, err)

	var tree map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &tree))

	props := tree["properties"].(map[string]interface{})
	homepage := props["homepage"].(map[string]interface{})
	_, hasFormat := homepage["format"]
	assert.False(t, hasFormat)

	nested := props["nested"].(map[string]interface{})["properties"].(map[string]interface{})
	avatar := nested["avatar"].(map[string]interface{})
	_, avatarHasFormat := avatar["format"]
	assert.False(t, avatarHasFormat)

	count := nested["count"].(map[string]interface{})
	assert.Equal(t, "int32", count["format"])

	items := props["tags"].(map[string]interface{})["items"].(map[string]interface{})
	_, itemsHasFormat := items["format"]
	assert.False(t, itemsHasFormat)
}

func TestStopReasonRoundTrip(t *testing.T) {
	pairs := map[string]string{
		"end_turn": "stop",
		"tool_use": "tool_calls",
		"max_tokens": "length",
	}
	for a, o := range pairs {
		a, o := a, o
		assert.Equal(t, o, StopReasonAToO(&a))
		assert.Equal(t, a, StopReasonOToA(&o))
	}

	assert.Equal(t, "stop", StopReasonAToO(nil))
	assert.Equal(t, "end_turn", StopReasonOToA(nil))

	unknown := "something_weird"
	assert.Equal(t, "stop", StopReasonAToO(&unknown))
	assert.Equal(t, "end_turn", StopReasonOToA(&unknown))
}

func TestParseDataURL(t *testing.T) {
	media, data, ok := ParseDataURL("data:image/png;base64,AAAA")
	require.True(t, ok)
	assert.Equal(t, "image/png", media)
	assert.Equal(t, "AAAA", data)

	_, _, ok = ParseDataURL("https://example.com/image.png")
	assert.False(t, ok)
}
