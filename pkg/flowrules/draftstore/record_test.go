package draftstore_test

import (
	"context"
	"testing"

	"github.com/randalmurphal/flowrules/pkg/flowrules"
	"github.com/randalmurphal/flowrules/pkg/flowrules/draftstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func translateEdgeFlow(t *testing.T) (*flowrules.Translator, *flowrules.Translation) {
	t.Helper()
	flow, err := flowrules.ParseFlow([]byte(`{"id":"f.1","service":"smartcity","flow":[
		{"id":"src","type":"device out","z":"f.1","_device_type":"virtual","_device_id":"sensor-1","wires":[["edge"]]},
		{"id":"edge","type":"edgedetection","z":"f.1","property":"payload.temperature",
		 "rules":[{"t":"edge-up","v":"30","vt":"num"}],"wires":[["out"]]},
		{"id":"out","type":"device in","z":"f.1","_device_id":"alarm","_device_type":"virtual","attrs":"payload","wires":[]}
	]}`))
	require.NoError(t, err)

	tr := flowrules.NewTranslator()
	result, err := tr.Translate(context.Background(), flow)
	require.NoError(t, err)
	require.Len(t, result.Drafts, 1)
	return tr, result
}

// TestSaveLoadDraft verifies identifiers can be assigned across store round trips.
func TestSaveLoadDraft(t *testing.T) {
	store := draftstore.NewMemoryStore()
	defer store.Close()

	tr, result := translateEdgeFlow(t)
	d := result.Drafts[0]
	require.NoError(t, draftstore.SaveDraft(store, d))

	// First identifier arrives.
	loaded, err := draftstore.LoadDraft(store, d.ID)
	require.NoError(t, err)
	rule, err := tr.Assign(context.Background(), loaded, flowrules.SlotFirst, "sub-1")
	require.NoError(t, err)
	assert.Nil(t, rule)
	require.NoError(t, draftstore.SaveDraft(store, loaded))

	// Second identifier arrives later, on a fresh reconstruction.
	loaded, err = draftstore.LoadDraft(store, d.ID)
	require.NoError(t, err)
	assert.Equal(t, flowrules.StatePartial, loaded.State())
	rule, err = tr.Assign(context.Background(), loaded, flowrules.SlotSecond, "sub-2")
	require.NoError(t, err)
	require.NotNil(t, rule)

	assert.Equal(t, "rule_f_1_1", rule.Name)
	assert.Contains(t, rule.Text, `"sub-1") -> ev2 = iotEvent(cast(subscriptionId?, String) = "sub-2")`)

	infos, err := store.List("f.1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, d.ID, infos[0].DraftID)
}

// TestLoadDraft_Errors verifies missing and malformed records.
func TestLoadDraft_Errors(t *testing.T) {
	store := draftstore.NewMemoryStore()
	defer store.Close()

	_, err := draftstore.LoadDraft(store, "missing")
	assert.ErrorIs(t, err, draftstore.ErrNotFound)

	require.NoError(t, store.Save("f", "bad", []byte("not json")))
	_, err = draftstore.LoadDraft(store, "bad")
	assert.Error(t, err)

	require.NoError(t, store.Save("f", "old", []byte(`{"version":99,"draft":{}}`)))
	_, err = draftstore.LoadDraft(store, "old")
	assert.ErrorContains(t, err, "unsupported record version 99")

	require.NoError(t, store.Save("f", "empty", []byte(`{"version":1}`)))
	_, err = draftstore.LoadDraft(store, "empty")
	assert.ErrorContains(t, err, "empty record")
}
