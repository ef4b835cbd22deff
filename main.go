package main

import "github.com/danilocontato-coder/quotemasterpro-sub002/cmd"

func main() {
	cmd.Execute()
}
