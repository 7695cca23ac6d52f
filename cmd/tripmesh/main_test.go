package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tripmesh"
	"github.com/hupe1980/tripmesh/config"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestRoutesCmd(t *testing.T) {
	out, err := run(t, "", "routes", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "HANDLER")
	assert.Contains(t, out, "weather_agent")
	assert.Contains(t, out, "scholarship_pipeline")
	assert.Contains(t, out, "default")
}

func TestAskCmd(t *testing.T) {
	out, err := run(t, "", "ask", "--log-level", "error", "--user", "tester", "weather", "in", "Paris")
	require.NoError(t, err)

	assert.Contains(t, out, "Weather in Paris")
}

func TestAskCmd_JSON(t *testing.T) {
	out, err := run(t, "", "ask", "--log-level", "error", "--json", "tell me a joke")
	require.NoError(t, err)

	assert.Contains(t, out, "fallback_agent")
}

func TestAskCmd_InvalidLogLevel(t *testing.T) {
	_, err := run(t, "", "ask", "--log-level", "loud", "hello")
	assert.Error(t, err)
}

func TestChatLoop(t *testing.T) {
	a, err := tripmesh.NewAssistant(context.Background(), config.Default())
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	in := strings.NewReader("weather in Tokyo\n\nany activities?\nexit\nweather in Oslo\n")

	sid := a.Engine().StartSession("kenji")
	require.NoError(t, chatLoop(context.Background(), in, &out, a, sid))

	assert.Contains(t, out.String(), "Weather in Tokyo")
	assert.Equal(t, 2, strings.Count(out.String(), "Weather in Tokyo"))
	assert.NotContains(t, out.String(), "Oslo")
}
