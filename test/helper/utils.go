package helper

import (
	"os"
	"strings"
)

func SetEnvironments(envs map[string]string) {
	for name, value := range envs {
		if err := os.Setenv(name, value); err != nil {
			panic(err)
		}
	}
}

// ClearEnvironments unsets every variable starting with prefix.
func ClearEnvironments(prefix string) {
	for name := range Env() {
		if strings.HasPrefix(name, prefix) {
			_ = os.Unsetenv(name)
		}
	}
}

func Env() map[string]string {
	envs := make(map[string]string)
	for _, env := range os.Environ() {
		if k, v, ok := strings.Cut(env, "="); ok {
			envs[k] = v
		}
	}
	return envs
}
