package aisdk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionCallArgumentsAsString(t *testing.T) {
	raw := `{"id":"call_1","type":"function","function":{"name":"calculate","arguments":"{\"expression\":\"12*7\"}"}}`

	var call ToolCall
	require.NoError(t, json.Unmarshal([]byte(raw), &call))
	assert.Equal(t, "calculate", call.Function.Name)
	assert.JSONEq(t, `{"expression":"12*7"}`, string(call.Function.Arguments))

	out, err := json.Marshal(call)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestFunctionCallArgumentsAsObject(t *testing.T) {
	raw := `{"name":"calculate","arguments":{"expression":"1+1"}}`

	var fc FunctionCall
	require.NoError(t, json.Unmarshal([]byte(raw), &fc))
	assert.JSONEq(t, `{"expression":"1+1"}`, string(fc.Arguments))
}

func TestFunctionCallEmptyArguments(t *testing.T) {
	out, err := json.Marshal(FunctionCall{Name: "noop"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"noop","arguments":"{}"}`, string(out))
}
