package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "smarttracing/pkg/domain-errors"
)

func TestPropertyMapMatches(t *testing.T) {
	props := PropertyMap{
		"deleted":  {false},
		"latitude": {int64(45)},
		"name":     {"Acme"},
		"symptoms": {"COUGH", "FEVER"},
	}

	assert.True(t, props.Matches(nil))
	assert.True(t, props.Matches(map[string]any{"deleted": false}))
	assert.True(t, props.Matches(map[string]any{"latitude": 45.0}), "numbers compare across types")
	assert.False(t, props.Matches(map[string]any{"deleted": true}))
	assert.False(t, props.Matches(map[string]any{"verified": true}), "unwritten property never matches")
}

func TestPropertyMapClone(t *testing.T) {
	props := PropertyMap{"symptoms": {"COUGH"}}
	clone := props.Clone()
	clone["symptoms"][0] = "FEVER"

	assert.Equal(t, "COUGH", props["symptoms"][0])
}

func TestToPropertyMap(t *testing.T) {
	got := ToPropertyMap(map[string]any{
		"name":     "Acme",
		"symptoms": []string{"COUGH", "FEVER"},
	})

	assert.Equal(t, []any{"Acme"}, got["name"])
	assert.Equal(t, []any{"COUGH", "FEVER"}, got["symptoms"])
}

func TestVertexSpecBuilders(t *testing.T) {
	lat := 1.5
	spec := NewVertex("Site", "site-1").
		SetString("name", "Default").
		SetString("phone", "").
		SetFloat("latitude", &lat).
		SetFloat("longitude", nil).
		EdgeFrom("HAS", "org-1")

	require.NoError(t, spec.Validate())
	assert.Equal(t, map[string]any{"name": "Default", "latitude": 1.5}, spec.Properties)
	assert.Equal(t, []EdgeSpec{{Label: "HAS", Direction: In, Other: "org-1"}}, spec.Edges)

	spec.Edges = append(spec.Edges, EdgeSpec{Label: "LINK", Direction: Both, Other: "x"})
	assert.Error(t, spec.Validate())
}

func TestDecoder(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 30, 0, 123, time.UTC)
	props := PropertyMap{
		"name":      {"Acme"},
		"verified":  {true},
		"latitude":  {int64(12)},
		"createdAt": {FormatTime(created)},
		"testDate":  {"2024-02-28"},
		"symptoms":  {"COUGH", "FEVER"},
	}

	t.Run("decodes typed values", func(t *testing.T) {
		d := NewDecoder("Organization", "org-1", props)
		assert.Equal(t, "Acme", d.String("name"))
		assert.True(t, d.Bool("verified"))
		assert.Equal(t, 12.0, *d.OptionalFloat("latitude"))
		assert.Nil(t, d.OptionalFloat("longitude"))
		assert.Equal(t, "", d.OptionalString("email"))
		assert.True(t, created.Equal(d.Time("createdAt")))
		assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), d.Date("testDate"))
		assert.Equal(t, []string{"COUGH", "FEVER"}, d.Strings("symptoms"))
		assert.Nil(t, d.Strings("missing"))
		require.NoError(t, d.Err())
	})

	t.Run("missing required property is a corrupt record", func(t *testing.T) {
		d := NewDecoder("Organization", "org-1", props)
		d.String("phone")
		d.Bool("multiSite")

		err := d.Err()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCorruptRecord))
		assert.Contains(t, err.Error(), "phone", "first failure wins")
	})

	t.Run("wrong type is a corrupt record", func(t *testing.T) {
		d := NewDecoder("Organization", "org-1", props)
		d.Bool("name")

		assert.True(t, dErrors.HasCode(d.Err(), dErrors.CodeCorruptRecord))
	})

	t.Run("malformed timestamp is a corrupt record", func(t *testing.T) {
		d := NewDecoder("Report", "r-1", PropertyMap{"createdAt": {"yesterday"}})
		d.Time("createdAt")

		assert.True(t, dErrors.HasCode(d.Err(), dErrors.CodeCorruptRecord))
	})
}

func TestTranslate(t *testing.T) {
	cause := assert.AnError

	assert.NoError(t, Translate(KindQuery, "noop", nil))
	assert.True(t, dErrors.HasCode(Translate(KindCreate, "create", cause), dErrors.CodeEntityCreation))
	assert.True(t, dErrors.HasCode(Translate(KindUpdate, "update", cause), dErrors.CodeUpdateFailed))
	assert.True(t, dErrors.HasCode(Translate(KindQuery, "query", cause), dErrors.CodeQueryFailed))

	invalid := dErrors.InvalidID("x")
	assert.Same(t, error(invalid), Translate(KindUpdate, "update", invalid))
}
