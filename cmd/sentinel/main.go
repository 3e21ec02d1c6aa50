package main

import "github.com/dmitrymomot/sentinel/cmd/sentinel/cmd"

func main() {
	cmd.Execute()
}
