package main

import "github.com/trackify-io/trackify/cmd"

func main() {
	cmd.Execute()
}
