package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapRoundtrip(t *testing.T) {
	m := JSONMap{
		"demo": DemoQuestionSave,
		"next": map[string]interface{}{"type": NextGoodnight},
	}

	value, err := m.Value()
	require.NoError(t, err)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, DemoQuestionSave, decoded.String("demo"))

	next := decoded.Map("next")
	require.NotNil(t, next)
	assert.Equal(t, NextGoodnight, next.String("type"))
}

func TestJSONMapScanString(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(`{"demo":"todayList"}`))
	assert.Equal(t, "todayList", m.String("demo"))
}

func TestJSONMapNilAccessors(t *testing.T) {
	var m JSONMap
	assert.Empty(t, m.String("x"))
	assert.Nil(t, m.Map("x"))
	assert.False(t, m.Bool("x"))
	assert.Nil(t, m.Clone())
}

func TestJSONMapCloneIsShallowCopy(t *testing.T) {
	m := JSONMap{"a": 1}
	c := m.Clone()
	c["a"] = 2
	assert.Equal(t, 1, m["a"])
}

func TestComputeSticky(t *testing.T) {
	cases := []struct {
		name     string
		metadata JSONMap
		explicit bool
		want     bool
	}{
		{"questionSave demo", JSONMap{"demo": DemoQuestionSave}, false, true},
		{"questionInput demo", JSONMap{"demo": DemoQuestionInput}, false, true},
		{"question field", JSONMap{"question": "one_thing_learned"}, false, true},
		{"prompt field", JSONMap{"prompt": "how was today?"}, false, true},
		{"explicit", nil, true, true},
		{"other demo", JSONMap{"demo": DemoGoodnightCard}, false, false},
		{"empty prompt", JSONMap{"prompt": ""}, false, false},
		{"nil metadata", nil, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeSticky(tc.metadata, tc.explicit))
		})
	}
}

func TestStringListRoundtrip(t *testing.T) {
	l := StringList{"Start winddown", "I have something on my mind"}

	value, err := l.Value()
	require.NoError(t, err)

	var decoded StringList
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, l, decoded)
}
