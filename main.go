package main

import "github.com/iksnae/libra-session/cmd"

func main() {
	cmd.Execute()
}
