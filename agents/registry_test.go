package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEmptyRender(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, "No previous agent registry.", reg.Render())
}

func TestRegistryRenderOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Add("serper_agent", "Searches the web.")
	reg.Add("reporter_agent", "Writes the final report.")

	rendered := reg.Render()
	lines := strings.Split(rendered, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "serper_agent: Searches the web.", lines[0])
	assert.Equal(t, "reporter_agent: Writes the final report.", lines[1])
}

func TestRegistryEmptyDescriptionFallback(t *testing.T) {
	reg := NewRegistry()
	reg.Add("mystery_agent", "")

	assert.Equal(t, "No description provided.", reg.Description("mystery_agent"))
	assert.Contains(t, reg.Render(), "mystery_agent: No description provided.")
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	reg.Add("b", "x")
	reg.Add("a", "y")

	assert.Equal(t, []string{"b", "a"}, reg.Names())
}

func TestBuildRegistrySkipsMeta(t *testing.T) {
	shadow := NewToolCalling(Config{Name: MetaAgentName, Description: "should not register"}, newFakeProvider(), ToolSpec{}, nil)
	reporter := NewReporter(Config{}, nil)

	reg := BuildRegistry(shadow, reporter)
	assert.Equal(t, []string{ReporterAgentName}, reg.Names())
	assert.Equal(t, reporterDescription, reg.Description(ReporterAgentName))
}
