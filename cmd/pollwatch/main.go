package main

import (
	"boscoin.io/pollwatch/cmd/pollwatch/cmd"
)

func main() {
	cmd.Execute()
}
