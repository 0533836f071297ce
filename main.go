package main

import "github.com/user/trialchat/cmd"

func main() {
	cmd.Execute()
}
