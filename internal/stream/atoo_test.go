package stream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateAToOLiteralToolCallScenario(t *testing.T) {
	input := strings.Join([]string{
		`event: message_start`,
		`data: {"type":"message_start","message":{"id":"m1","model":"claude-3-5-sonnet"}}`,
		``,
		`event: content_block_start`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"t1","name":"search"}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"q\":\"r"}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"ust\"}"}}`,
		``,
		`event: message_delta`,
		`data: {"type":"message_delta","delta":{"stop_reason":"tool_use"}}`,
		``,
		`event: message_stop`,
		`data: {"type":"message_stop"}`,
		``,
		``,
	}, "\n")

	var out bytes.Buffer
	err := TranslateAToO(strings.NewReader(input), &out, func() {}, discardLogger())
	require.NoError(t, err)

	got := out.String()
	assert.True(t, strings.Contains(got, `"id":"t1","type":"function","function":{"name":"search","arguments":""}`))
	assert.True(t, strings.Contains(got, `"arguments":"{\"q\":\"r"`))
	assert.True(t, strings.Contains(got, `"arguments":"ust\"}"`))
	assert.True(t, strings.Contains(got, `"finish_reason":"tool_calls"`))
	assert.True(t, strings.HasSuffix(got, "data: [DONE]\n\n"))

	openIdx := strings.Index(got, `"arguments":""`)
	delta1Idx := strings.Index(got, `"arguments":"{\"q\":\"r"`)
	delta2Idx := strings.Index(got, `"arguments":"ust\"}"`)
	finishIdx := strings.Index(got, "finish_reason\":\"tool_calls\"")
	doneIdx := strings.Index(got, "[DONE]")

	assert.True(t, openIdx < delta1Idx)
	assert.True(t, delta1Idx < delta2Idx)
	assert.True(t, delta2Idx < finishIdx)
	assert.True(t, finishIdx < doneIdx)
}

func TestTranslateAToOTextDeltaYieldsExactlyOneChunkPerDelta(t *testing.T) {
	input := strings.Join([]string{
		`data: {"type":"message_start","message":{"id":"m2","model":"claude-3-opus"}}`,
		``,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
		``,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}`,
		``,
		`data: {"type":"message_stop"}`,
		``,
		``,
	}, "\n")

	var out bytes.Buffer
	err := TranslateAToO(strings.NewReader(input), &out, func() {}, discardLogger())
	require.NoError(t, err)

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, `"content":"Hi"`))
	assert.Equal(t, 1, strings.Count(got, `"content":" there"`))
	assert.Equal(t, 1, strings.Count(got, "[DONE]"))
}

func TestTranslateAToOIgnoresUnrecognizedEvents(t *testing.T) {
	input := strings.Join([]string{
		`data: {"type":"ping"}`,
		``,
		`data: {"type":"content_block_stop","index":0}`,
		``,
		`data: {"type":"message_stop"}`,
		``,
		``,
	}, "\n")

	var out bytes.Buffer
	err := TranslateAToO(strings.NewReader(input), &out, func() {}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "data: [DONE]\n\n", out.String())
}

func TestTranslateAToOSkipsMalformedFrameAndContinues(t *testing.T) {
	input := strings.Join([]string{
		`data: {not json}`,
		``,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"ok"}}`,
		``,
		`data: {"type":"message_stop"}`,
		``,
		``,
	}, "\n")

	var out bytes.Buffer
	err := TranslateAToO(strings.NewReader(input), &out, func() {}, discardLogger())
	require.NoError(t, err)
	assert.True(t, strings.Contains(out.String(), `"content":"ok"`))
}

func TestTranslateAToODoesNotSynthesizeErrorFrame(t *testing.T) {
	var out bytes.Buffer
	err := TranslateAToO(errReader{"upstream dropped"}, &out, func() {}, discardLogger())
	require.Error(t, err)
	assert.Empty(t, out.String())
}
