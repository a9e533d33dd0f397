package utils

import (
	"github.com/segmentio/ksuid"
)

func KSUID() string {
	return ksuid.New().String()
}

func IsValidKSUID(id string) bool {
	_, err := ksuid.Parse(id)
	return err == nil
}
