package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trackify-io/trackify/utils"
)

func TestEmail(t *testing.T) {
	expected := utils.Sha256("john.doe@example.com")
	assert.Equal(t, expected, Email("john.doe@example.com"))
	assert.Equal(t, expected, Email("  JOHN.DOE@Example.COM \t\n"))
	assert.True(t, IsHashed(expected))

	for _, invalid := range []string{"", "   ", "john", "john@", "@example.com", "john doe@example.com"} {
		assert.Equal(t, "", Email(invalid), invalid)
	}
}

func TestPhone(t *testing.T) {
	assert.Equal(t, Phone("15551234567"), Phone("+1 (555) 123-4567"))
	assert.Equal(t, utils.Sha256("15551234567"), Phone("+1 (555) 123-4567"))
	assert.Equal(t, "", Phone(""))
	assert.Equal(t, "", Phone("n/a"))
}

func TestText(t *testing.T) {
	assert.Equal(t, utils.Sha256("maryann"), Text("  Mary Ann "))
	assert.Equal(t, "", Text(" \t "))
}

func TestAddress(t *testing.T) {
	assert.Equal(t, utils.Sha256("newyork"), City("New York"))
	assert.Equal(t, utils.Sha256("ca"), State(" CA "))
	assert.Equal(t, utils.Sha256("us"), Country("US"))
	assert.Equal(t, utils.Sha256("sw1a1aa"), Postcode("SW1A 1AA"))
	assert.Equal(t, utils.Sha256("94035"), Postcode("94035-"))
	assert.Equal(t, "", Postcode("--"))
	assert.Equal(t, "", Country(""))
}

func TestGender(t *testing.T) {
	tests := []struct {
		value    string
		expected string
	}{
		{"m", utils.Sha256("m")},
		{"Male", utils.Sha256("m")},
		{" F ", utils.Sha256("f")},
		{"female", utils.Sha256("f")},
		{"x", ""},
		{"", ""},
		{"mister", ""},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, Gender(test.value), test.value)
	}
}

func TestDateOfBirth(t *testing.T) {
	assert.Equal(t, utils.Sha256("19900115"), DateOfBirth("1990-01-15"))
	assert.Equal(t, utils.Sha256("19900115"), DateOfBirth("19900115"))
	assert.Equal(t, "", DateOfBirth("1990-1-15"))
	assert.Equal(t, "", DateOfBirth("199001150"))
	assert.Equal(t, "", DateOfBirth(""))
}

func TestIsHashed(t *testing.T) {
	assert.True(t, IsHashed(utils.Sha256("x")))
	assert.False(t, IsHashed("x"))
	assert.False(t, IsHashed(""))
}
