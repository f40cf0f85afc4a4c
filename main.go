package main

import "github.com/KaramelBytes/dqv-cli/cmd"

func main() {
	cmd.Execute()
}
