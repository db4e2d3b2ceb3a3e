// Package main provides the nopickie CLI: the dashboard TUI and one-shot
// backend commands.
package main

func main() {
	Execute()
}
