package main

import "envsync/cmd"

func main() {
	cmd.Execute()
}
