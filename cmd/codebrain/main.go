package main

import "github.com/mvp-joe/codebrain/internal/cli"

func main() {
	cli.Execute()
}
