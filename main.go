package main

import "github.com/eryajf/qabot/cmd"

func main() {
	cmd.Execute()
}
