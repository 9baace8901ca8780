package main

import "github.com/ridoystarlord/modelforge/cmd"

func main() {
	cmd.Execute()
}
