package keyword

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  string
	}{
		{text: "", out: ""},
		{text: "hello", out: "hello"},
		{text: "Hello, World!", out: "helloworld"},
		{text: "f-r-e-e m0ney", out: "freem0ney"},
		{text: "***", out: ""},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, Slugify(fix.text))
	}
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	kw, err := Validate("  scam ")
	assert.NoError(err)
	assert.Equal("scam", kw)

	kw, err = Validate("free money")
	assert.NoError(err)
	assert.Equal("free money", kw)

	_, err = Validate("   ")
	assert.ErrorIs(err, ErrEmptyKeyword)

	_, err = Validate("***")
	assert.ErrorIs(err, ErrKeywordNoLetter)

	_, err = Validate(strings.Repeat("a", MaxKeywordLength+1))
	assert.ErrorIs(err, ErrKeywordTooLong)

	_, err = Validate(strings.Repeat("a", MaxKeywordLength))
	assert.NoError(err)
}
