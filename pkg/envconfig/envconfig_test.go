package envconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type base struct {
	Debug bool
}

type nested struct {
	Host string `default:"localhost"`
	Port int
}

type target struct {
	base
	Name    string
	Count   uint32   `envconfig:"MAX_COUNT"`
	Tags    []string `envconfig:"TAGS"`
	Nested  nested
	Skipped string `envconfig:"-"`
}

func reader(env map[string]string) Reader {
	return func(key string) (string, bool, error) {
		v, ok := env[key]
		return v, ok, nil
	}
}

func TestProcessWithReader(t *testing.T) {
	s := target{Name: "keep", Nested: nested{Host: "db"}}
	err := ProcessWithReader("app", &s, reader(map[string]string{
		"APP_DEBUG":       "true",
		"APP_MAX_COUNT":   "7",
		"APP_TAGS":        "[a, b]",
		"APP_NESTED_PORT": "5432",
		"APP_SKIPPED":     "x",
	}))
	require.NoError(t, err)
	assert.True(t, s.Debug)
	assert.Equal(t, "keep", s.Name)
	assert.EqualValues(t, 7, s.Count)
	assert.Equal(t, []string{"a", "b"}, s.Tags)
	assert.Equal(t, "db", s.Nested.Host)
	assert.Equal(t, 5432, s.Nested.Port)
	assert.Empty(t, s.Skipped)
}

func TestProcessWithReaderStringIsVerbatim(t *testing.T) {
	s := target{}
	err := ProcessWithReader("APP", &s, reader(map[string]string{"APP_NAME": "0123"}))
	require.NoError(t, err)
	assert.Equal(t, "0123", s.Name)
}

func TestProcessWithReaderInvalidValue(t *testing.T) {
	s := target{}
	err := ProcessWithReader("APP", &s, reader(map[string]string{"APP_MAX_COUNT": "abc"}))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "APP_MAX_COUNT", perr.Key)
	assert.Equal(t, "Count", perr.Field)
}

func TestProcessRequiresStructPointer(t *testing.T) {
	assert.Error(t, ProcessWithReader("APP", target{}, EnvironmentReader))
}
