package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtracted_JSONRoundTrip(t *testing.T) {
	in := NewExtracted(IntegrationData{Name: "Twilio", Purpose: "SMS reminders"}, 0.7)

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out Extracted
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestExtracted_UnknownTopic(t *testing.T) {
	var ex Extracted
	err := json.Unmarshal([]byte(`{"topic":"weather","data":{}}`), &ex)
	assert.True(t, errors.Is(err, ErrUnknownTopic))
}

func TestParseExtractions(t *testing.T) {
	reply := "Great, thanks! Who will use it day to day?\n\n" +
		"```json\n" +
		`{"topic":"overview","data":{"text":"A booking tool for yoga studios."},"confidence":0.9}` + "\n" +
		"```\n" +
		"```json\n" +
		`[{"topic":"key_features","data":{"features":["class booking"]},"confidence":0.8},` +
		`{"topic":"mvp_scope","data":{"out":["merchandise"]},"confidence":0.6}]` + "\n" +
		"```\n" +
		"```json\n{\"topic\":\"nonsense\"}\n```\n"

	got, err := ParseExtractions(reply)
	require.Error(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, OverviewData{Text: "A booking tool for yoga studios."}, got[0].Data)
	assert.Equal(t, FeaturesData{Features: []string{"class booking"}}, got[1].Data)
	assert.Equal(t, ScopeData{Out: []string{"merchandise"}}, got[2].Data)
	assert.Equal(t, TopicScope, got[2].Topic)

	assert.Equal(t, "Great, thanks! Who will use it day to day?", StripExtractions(reply))
}

func TestParseExtractions_NoBlocks(t *testing.T) {
	got, err := ParseExtractions("Just a question for you.")
	assert.NoError(t, err)
	assert.Empty(t, got)
}
