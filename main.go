package main

import "github.com/jjenkins/recnotify/cmd"

func main() {
	cmd.Execute()
}
