package main

import "github.com/kozaktomas/attendance-dashboard/cmd"

func main() {
	cmd.Execute()
}
