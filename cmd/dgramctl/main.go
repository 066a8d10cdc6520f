package main

import "github.com/rudransh-shrivastava/dgramsock/internal/cli/cmd"

func main() {
	cmd.Execute()
}
