package words

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_FiltersStopAndShortWords(t *testing.T) {
	c := NewCounter()
	c.Add("the gradient is a gradient of the loss")

	top := c.MostCommon(10)
	require.Len(t, top, 2)
	assert.Equal(t, WordCount{Word: "gradient", Count: 2}, top[0])
	assert.Equal(t, WordCount{Word: "loss", Count: 1}, top[1])
}

func TestCounter_StripsPunctuation(t *testing.T) {
	c := NewCounter()
	// "it's" collapses to "its", which is a stop word; "back-prop" to "backprop".
	c.Add("It's all about back-prop, obviously!")

	top := c.MostCommon(10)
	require.Len(t, top, 2)
	assert.Equal(t, "backprop", top[0].Word)
	assert.Equal(t, "obviously", top[1].Word)
}

func TestCounter_AccumulatesAcrossTexts(t *testing.T) {
	c := NewCounter()
	c.Add("neural networks learn")
	c.Add("networks learn representations")
	c.Add("networks everywhere")

	top := c.MostCommon(2)
	require.Len(t, top, 2)
	assert.Equal(t, WordCount{Word: "networks", Count: 3}, top[0])
	assert.Equal(t, WordCount{Word: "learn", Count: 2}, top[1])
}

func TestCounter_TiesBrokenAlphabetically(t *testing.T) {
	c := NewCounter()
	c.Add("zebra apple zebra apple")

	top := c.MostCommon(10)
	require.Len(t, top, 2)
	assert.Equal(t, "apple", top[0].Word)
	assert.Equal(t, "zebra", top[1].Word)
}

func TestCounter_LimitLargerThanVocabulary(t *testing.T) {
	c := NewCounter()
	c.Add("solitary")

	assert.Len(t, c.MostCommon(100), 1)
	assert.Empty(t, NewCounter().MostCommon(10))
}
