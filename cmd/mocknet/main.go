// mocknet CLI - validate, list and serve declarative HTTP mock files
package main

import "github.com/getmockd/mocknet/pkg/cli"

func main() {
	cli.Execute()
}
