package types

import (
	"encoding/json"
)

type Config interface {
	Validate() error
	PostProcess() error
}

type Map map[string]string

const PasswordMask = "******"

// Password is a secret that is masked when marshalled to JSON.
type Password string

func (p Password) MarshalJSON() ([]byte, error) {
	if p == "" {
		return json.Marshal("")
	}
	return json.Marshal(PasswordMask)
}

func (p Password) IsMasked() bool {
	return p == PasswordMask
}
